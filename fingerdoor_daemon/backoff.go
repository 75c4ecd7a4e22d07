package main

import "time"

const exponential_backof_activation_threshold = 4 * time.Second

// Backoff doubles the wait after every failed attempt, starting at Base and
// stopping to grow after MaxExp doublings.
type Backoff struct {
	Base   time.Duration
	MaxExp uint32
	exp    uint32
}

func NewBackoff() *Backoff {
	return &Backoff{Base: 150 * time.Millisecond, MaxExp: 12}
}

func (b *Backoff) Next() time.Duration {
	d := b.Base * time.Duration(1<<b.exp)
	if b.exp < b.MaxExp {
		b.exp++
	}
	return d
}

func (b *Backoff) Reset() { b.exp = 0 }

// Ran resets the backoff if the previous attempt stayed up long enough to
// count as a success.
func (b *Backoff) Ran(run_time time.Duration) {
	if run_time > exponential_backof_activation_threshold {
		b.Reset()
	}
}
