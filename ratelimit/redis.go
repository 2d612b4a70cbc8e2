package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared limiter for multi-instance deployments. Each key
// is a sorted set of action timestamps scored in unix milliseconds.
// Prune, count and append run as separate commands, so two instances
// racing the same key can both pass a boundary check; for cooldown
// limiting that slack is acceptable.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (r *Redis) redisKey(subject, action string) string {
	return "ratelimit:" + key(subject, action)
}

func (r *Redis) Check(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	k := r.redisKey(subject, action)
	now := r.now()
	cutoff := now.Add(-window)

	if err := r.client.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(cutoff.UnixMilli(), 10)).Err(); err != nil {
		return false, err
	}

	count, err := r.client.ZCard(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(limit) {
		return false, nil
	}

	member := redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: now.UnixNano(),
	}
	if err := r.client.ZAdd(ctx, k, member).Err(); err != nil {
		return false, err
	}
	if err := r.client.Expire(ctx, k, retention).Err(); err != nil {
		return false, err
	}

	return true, nil
}

func (r *Redis) Remaining(ctx context.Context, subject, action string, window time.Duration) (time.Duration, error) {
	k := r.redisKey(subject, action)

	oldest, err := r.client.ZRangeWithScores(ctx, k, 0, 0).Result()
	if err != nil {
		return 0, err
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	remaining := window - r.now().Sub(time.UnixMilli(int64(oldest[0].Score)))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (r *Redis) Clear(ctx context.Context, subject, action string) error {
	return r.client.Del(ctx, r.redisKey(subject, action)).Err()
}
