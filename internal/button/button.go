package button

import (
	"time"

	"github.com/sweeney/button-sensor/internal/clock"
)

// Button tracks a single input and derives clicks and holds from it.
//
// Accessors report finished values: Clicks is only non-zero once the click
// streak has settled. RawClicks and RawState expose the in-progress values.
//
// A Button is not safe for concurrent use. One goroutine calls Tick; other
// goroutines may read accessors only while holding a lock shared with it.
type Button struct {
	pin       Pin
	clock     clock.Clock
	debouncer Debouncer
	cfg       Config

	state   State
	samples int

	clicks  int
	held    time.Duration
	hasHeld bool
}

// Option customises a Button.
type Option func(*Button)

// WithClock sets the time source. The default is the host monotonic clock.
func WithClock(c clock.Clock) Option {
	return func(b *Button) { b.clock = c }
}

// WithDebouncer replaces the default time-based debounce strategy.
func WithDebouncer(d Debouncer) Option {
	return func(b *Button) { b.debouncer = d }
}

// New creates a Button in the Unknown state.
func New(pin Pin, cfg Config, opts ...Option) *Button {
	b := &Button{
		pin:   pin,
		cfg:   cfg,
		state: stateUnknown,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.clock == nil {
		b.clock = clock.NewSystem()
	}
	if b.debouncer == nil {
		b.debouncer = TimeBased{Debounce: cfg.Debounce}
	}
	return b
}

// Tick samples the pin and the clock once and advances the state machine by
// at most one transition. Call it as often as possible: a higher rate only
// improves timing resolution.
func (b *Button) Tick() {
	pressed := b.isPinPressed()
	now := b.clock.Now()

	switch b.state.Kind {
	case Unknown:
		if pressed {
			b.clicks = 1
			b.press(now)
		} else {
			b.state = stateReleased
		}

	case Down:
		if !pressed {
			// The first press of a streak never settled: nothing was clicked.
			// A bounce that extends a streak keeps its provisional count.
			if b.clicks == 1 {
				b.clicks = 0
			}
			b.state = stateReleased
			return
		}
		b.samples++
		if b.debouncer.Debounced(Press{Elapsed: now.Sub(b.state.Since), Samples: b.samples}) {
			b.state = at(Pressed, b.state.Since)
		}

	case Pressed:
		if !pressed {
			b.state = at(Up, now)
			return
		}
		if now.Sub(b.state.Since) >= b.cfg.Hold {
			b.clicks = 0
			b.state = at(Held, b.state.Since)
		}

	case Up:
		if now.Sub(b.state.Since) >= b.cfg.Release {
			b.state = stateReleased
			return
		}
		if pressed {
			b.clicks++
			b.press(now)
		}

	case Released:
		if pressed {
			b.clicks = 1
			b.held, b.hasHeld = 0, false
			b.press(now)
		}

	case Held:
		if !pressed {
			b.held, b.hasHeld = now.Sub(b.state.Since), true
			b.state = stateReleased
		}
	}
}

func (b *Button) press(now clock.Instant) {
	b.samples = 1
	b.state = at(Down, now)
}

// isPinPressed reads the pin and applies the configured polarity.
func (b *Button) isPinPressed() bool {
	return b.pin.IsHigh() != b.cfg.Mode.IsPullUp()
}

// Clicks returns the number of clicks in the last settled streak.
// It returns 0 while a streak is still in progress.
func (b *Button) Clicks() int {
	if b.state.Kind == Released {
		return b.clicks
	}
	return 0
}

// RawClicks returns the click counter regardless of state.
func (b *Button) RawClicks() int {
	return b.clicks
}

// IsClicked reports whether the last settled streak was a single click.
func (b *Button) IsClicked() bool { return b.Clicks() == 1 }

// IsDoubleClicked reports whether the last settled streak was a double click.
func (b *Button) IsDoubleClicked() bool { return b.Clicks() == 2 }

// IsTripleClicked reports whether the last settled streak was a triple click.
func (b *Button) IsTripleClicked() bool { return b.Clicks() == 3 }

// HeldTime returns the duration of the last completed hold.
// ok is false if no hold completed since the last Reset or new streak.
func (b *Button) HeldTime() (d time.Duration, ok bool) {
	return b.held, b.hasHeld
}

// CurrentHoldingTime returns how long the button has been held so far.
// ok is false unless the button is in the Held state.
func (b *Button) CurrentHoldingTime() (d time.Duration, ok bool) {
	if b.state.Kind != Held {
		return 0, false
	}
	return clock.Since(b.clock, b.state.Since), true
}

// RawState returns the current state.
func (b *Button) RawState() State {
	return b.state
}

// Config returns the configuration the button was created with.
func (b *Button) Config() Config {
	return b.cfg
}

// Reset clears the click counter and held time once the button is Released.
// It is a no-op in any other state so an in-progress gesture is never lost.
// Calling it after reading the accessors on every loop iteration reports each
// gesture exactly once.
func (b *Button) Reset() {
	if b.state.Kind == Released {
		b.clicks = 0
		b.held, b.hasHeld = 0, false
	}
}
