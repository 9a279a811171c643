package realtime

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. Safe to call more than once.
type CancelFunc func()

// Scheduler owns every delayed or repeating callback the bus uses
// (two-phase refetch, cooldown expiry, poll fallback). Centralizing the
// timers here keeps teardown explicit and lets tests drive time by hand.
type Scheduler interface {
	After(d time.Duration, fn func()) CancelFunc
	Every(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler is the production Scheduler backed by time.Timer/Ticker.
type TimerScheduler struct{}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) After(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

func (s *TimerScheduler) Every(d time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
