// Package clock lets the polling loops be driven by wall time in production
// and by a manually advanced clock in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// System is the wall clock.
var System Clock = systemClock{}

// Fake never blocks. Sleep advances the clock by d and runs the OnSleep hook,
// which tests use to change the world at a given virtual time.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	OnSleep func(now time.Time)
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
		f.slept += d
	}
	now := f.now
	hook := f.OnSleep
	f.mu.Unlock()
	if hook != nil {
		hook(now)
	}
}

// Slept is the total virtual time spent in Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}
