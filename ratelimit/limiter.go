// Package ratelimit provides sliding-window action limiting keyed by
// (subject, action). The in-memory limiter is the default and is
// per-process best-effort: each instance keeps its own counters, so a
// multi-instance deployment should use the redis limiter instead.
package ratelimit

import (
	"context"
	"time"
)

// retention bounds how long idle keys are kept around.
const retention = 24 * time.Hour

type Limiter interface {
	// Check reports whether the action is allowed right now and, when it
	// is, records it. Read, prune and append happen atomically per key.
	Check(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error)
	// Remaining returns the time until the oldest recorded action leaves
	// the window, floored at zero.
	Remaining(ctx context.Context, subject, action string, window time.Duration) (time.Duration, error)
	Clear(ctx context.Context, subject, action string) error
}

func key(subject, action string) string {
	return subject + ":" + action
}
