// Package clock provides monotonic time sources for the button state machine.
// Only differences between instants are meaningful; the epoch is owned by
// each Clock implementation.
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Instant is a reading of a monotonic clock in nanoseconds since that clock's epoch.
type Instant int64

// Sub returns the time elapsed from earlier to i.
// It never returns a negative duration.
func (i Instant) Sub(earlier Instant) time.Duration {
	if i < earlier {
		return 0
	}
	return time.Duration(i - earlier)
}

// Add returns the instant d after i.
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d)
}

// Clock supplies monotonic instants. Now must never block.
type Clock interface {
	Now() Instant
}

// Since returns the time elapsed on c since i.
func Since(c Clock, i Instant) time.Duration {
	return c.Now().Sub(i)
}

// System reads the host's monotonic clock.
type System struct {
	start time.Time
}

// NewSystem creates a System clock whose epoch is the moment of the call.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Now returns the monotonic time elapsed since the clock was created.
func (s *System) Now() Instant {
	return Instant(time.Since(s.start))
}

// Counter is a software clock that only moves when advanced.
// Safe for concurrent use: one goroutine may Advance while another reads Now.
type Counter struct {
	ns atomic.Int64
}

// NewCounter creates a Counter starting at the given instant.
func NewCounter(start Instant) *Counter {
	c := &Counter{}
	c.ns.Store(int64(start))
	return c
}

// Now returns the current counter value.
func (c *Counter) Now() Instant {
	return Instant(c.ns.Load())
}

// Advance moves the counter forward by d. Negative durations are ignored.
func (c *Counter) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.ns.Add(int64(d))
}

// Drive advances c by period on every tick of a host timer until ctx is done.
// The counter's resolution is therefore period, like a timer interrupt
// incrementing a global tick count.
func Drive(ctx context.Context, c *Counter, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Advance(period)
		}
	}
}
