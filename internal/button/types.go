// Package button implements a debouncing state machine for a single digital
// input that classifies presses into clicks and holds.
// This package has NO hardware dependencies. The pin and the time source are
// injected, so every transition can be driven deterministically in tests.
package button

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/button-sensor/internal/clock"
)

// Default timings.
const (
	DefaultDebounce = 900 * time.Microsecond
	DefaultRelease  = 150 * time.Millisecond
	DefaultHold     = 500 * time.Millisecond
)

// Pin reports the raw, undebounced logic level of the monitored input.
// IsHigh must never block.
type Pin interface {
	IsHigh() bool
}

// IsLow reports whether p is at logic low.
func IsLow(p Pin) bool {
	return !p.IsHigh()
}

// PinFunc adapts a plain function to the Pin interface.
type PinFunc func() bool

// IsHigh calls f.
func (f PinFunc) IsHigh() bool {
	return f()
}

// Mode selects which raw level means "pressed".
type Mode uint8

const (
	// PullUp buttons idle high and read low while pressed.
	PullUp Mode = iota
	// PullDown buttons idle low and read high while pressed.
	PullDown
)

// IsPullUp reports whether the button is active low.
func (m Mode) IsPullUp() bool { return m == PullUp }

// IsPullDown reports whether the button is active high.
func (m Mode) IsPullDown() bool { return m == PullDown }

func (m Mode) String() string {
	switch m {
	case PullUp:
		return "pullup"
	case PullDown:
		return "pulldown"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses "pullup" or "pulldown" (case-insensitive, "-" and "_" ignored).
func ParseMode(s string) (Mode, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "pullup", "up", "activelow":
		return PullUp, nil
	case "pulldown", "down", "activehigh":
		return PullDown, nil
	}
	return PullUp, fmt.Errorf("unknown button mode %q", s)
}

// Config holds the timing and polarity of a button.
// As a rule Debounce < Release < Hold. This is not enforced: zero or
// out-of-order values are accepted and simply make the matching phase
// effectively instantaneous.
type Config struct {
	// Debounce is how long the pin must stay pressed before the press counts.
	Debounce time.Duration
	// Release is the longest gap between a release and the next press for
	// both to belong to the same click streak.
	Release time.Duration
	// Hold is how long a press must last before it becomes a hold.
	Hold time.Duration
	// Mode is the button polarity.
	Mode Mode
}

// DefaultConfig returns the default timings with a pull-up button.
func DefaultConfig() Config {
	return Config{
		Debounce: DefaultDebounce,
		Release:  DefaultRelease,
		Hold:     DefaultHold,
		Mode:     PullUp,
	}
}

// StateKind identifies a state of the button state machine.
//
//	Unknown  => Down | Released
//	Down     => Pressed | Released
//	Pressed  => Held | Up
//	Up       => Down | Released
//	Held     => Released
//	Released => Down
type StateKind uint8

const (
	// Unknown is the initial state before the first tick.
	Unknown StateKind = iota
	// Down means a press has just started and is being debounced.
	Down
	// Pressed is a debounced press.
	Pressed
	// Up means the button was just released and the streak may continue.
	Up
	// Held means the press lasted longer than the hold time.
	Held
	// Released is the idle, fully settled state.
	Released
)

func (k StateKind) String() string {
	switch k {
	case Unknown:
		return "UNKNOWN"
	case Down:
		return "DOWN"
	case Pressed:
		return "PRESSED"
	case Up:
		return "UP"
	case Held:
		return "HELD"
	case Released:
		return "RELEASED"
	default:
		return fmt.Sprintf("StateKind(%d)", uint8(k))
	}
}

// State is the current state together with the instant the current physical
// event began. Since is only meaningful for Down, Pressed, Up and Held and is
// always zero for Unknown and Released.
type State struct {
	Kind  StateKind
	Since clock.Instant
}

func at(kind StateKind, since clock.Instant) State {
	return State{Kind: kind, Since: since}
}

var (
	stateUnknown  = State{Kind: Unknown}
	stateReleased = State{Kind: Released}
)

// IsUnknown reports whether s is Unknown.
func (s State) IsUnknown() bool { return s.Kind == Unknown }

// IsDown reports whether s is Down.
func (s State) IsDown() bool { return s.Kind == Down }

// IsPressed reports whether s is Pressed.
func (s State) IsPressed() bool { return s.Kind == Pressed }

// IsUp reports whether s is Up.
func (s State) IsUp() bool { return s.Kind == Up }

// IsHeld reports whether s is Held.
func (s State) IsHeld() bool { return s.Kind == Held }

// IsReleased reports whether s is Released.
func (s State) IsReleased() bool { return s.Kind == Released }

func (s State) String() string {
	return s.Kind.String()
}
