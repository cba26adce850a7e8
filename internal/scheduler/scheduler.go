package scheduler

import "time"

// CancelFunc stops a task that has not started yet and reports whether it did.
type CancelFunc func() bool

type Scheduler interface {
	AfterDelay(delay time.Duration, task func()) CancelFunc
}

type timerScheduler struct{}

// New returns a Scheduler backed by runtime timers. Each task runs once on
// its own goroutine.
func New() Scheduler {
	return &timerScheduler{}
}

func (that *timerScheduler) AfterDelay(delay time.Duration, task func()) CancelFunc {
	timer := time.AfterFunc(delay, task)
	return timer.Stop
}
