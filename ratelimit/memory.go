package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Memory is the in-process limiter. All state lives in one map guarded
// by a mutex.
type Memory struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

func (m *Memory) Check(_ context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	k := key(subject, action)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	valid := pruneBefore(m.hits[k], now.Add(-window))

	if len(valid) >= limit {
		m.hits[k] = valid
		return false, nil
	}

	m.hits[k] = append(valid, now)
	return true, nil
}

func (m *Memory) Remaining(_ context.Context, subject, action string, window time.Duration) (time.Duration, error) {
	k := key(subject, action)

	m.mu.Lock()
	defer m.mu.Unlock()

	stamps := m.hits[k]
	if len(stamps) == 0 {
		return 0, nil
	}

	oldest := stamps[0]
	for _, ts := range stamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}

	remaining := window - m.now().Sub(oldest)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (m *Memory) Clear(_ context.Context, subject, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.hits, key(subject, action))
	return nil
}

// Sweep drops keys whose every timestamp has aged past the retention
// horizon, bounding map growth.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-retention)
	for k, stamps := range m.hits {
		valid := pruneBefore(stamps, cutoff)
		if len(valid) == 0 {
			delete(m.hits, k)
		} else {
			m.hits[k] = valid
		}
	}
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
			log.Debug("rate limit sweep completed")
		}
	}
}

// pruneBefore drops timestamps strictly older than cutoff; a stamp exactly
// cutoff old is still inside the window.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	valid := stamps[:0]
	for _, ts := range stamps {
		if !ts.Before(cutoff) {
			valid = append(valid, ts)
		}
	}
	return valid
}
