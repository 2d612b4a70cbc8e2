package services

import "time"

// CancelFunc stops a scheduled task that has not fired yet.
type CancelFunc func()

// Scheduler runs a task after a delay. Scheduled tasks live in process
// memory only: a restart drops tasks that have not fired, so a ticket
// delivered just before a crash keeps its channel until staff close it
// by hand. The store's delivered_at column makes such stragglers easy
// to find.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelFunc
}

type timerScheduler struct{}

// NewScheduler returns a Scheduler backed by real timers.
func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) After(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
