package runner

import (
	"sync"
	"time"
)

// DefaultSchedulerInterval is how often the TimerScheduler wakes the loop.
// It is well under one frame at 60fps so pacing is decided by the loop,
// not the timer.
const DefaultSchedulerInterval = 4 * time.Millisecond

// Clock reads wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Scheduler arms a single future callback. Schedule must not call fn
// synchronously. The returned cancel stops fn from running if it has not
// started yet.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// TimerScheduler schedules callbacks on a fixed delay.
type TimerScheduler struct {
	Interval time.Duration
}

func (s TimerScheduler) Schedule(fn func()) func() {
	d := s.Interval
	if d <= 0 {
		d = DefaultSchedulerInterval
	}
	t := time.AfterFunc(d, fn)
	var once sync.Once
	return func() { once.Do(func() { t.Stop() }) }
}
