// Package gesture turns the settled results of a button state machine into
// discrete events. It never steps the button itself: the caller ticks, then
// hands the button to a Classifier which reads and resets it.
// Wall-clock time is always injected via time.Time parameters.
package gesture

import (
	"time"

	"github.com/sweeney/button-sensor/internal/button"
)

// EventType identifies a gesture.
type EventType string

const (
	EventClick       EventType = "CLICK"
	EventDoubleClick EventType = "DOUBLE_CLICK"
	EventTripleClick EventType = "TRIPLE_CLICK"
	EventMultiClick  EventType = "MULTI_CLICK"
	EventHoldStart   EventType = "HOLD_START"
	EventHoldEnd     EventType = "HOLD_END"
)

// Event is a recognised gesture to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Clicks is the streak length for click events.
	Clicks int
	// Duration is the hold time for HOLD_END, and the time already held for HOLD_START.
	Duration time.Duration
}

// Source is the read side of a button plus Reset.
// *button.Button satisfies it.
type Source interface {
	RawState() button.State
	Clicks() int
	HeldTime() (time.Duration, bool)
	CurrentHoldingTime() (time.Duration, bool)
	Reset()
}

// Counts tracks the number of each event type since startup.
type Counts struct {
	Click       int
	DoubleClick int
	TripleClick int
	MultiClick  int
	HoldStart   int
	HoldEnd     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// ClickEventType maps a settled click count to its event type.
func ClickEventType(clicks int) EventType {
	switch clicks {
	case 1:
		return EventClick
	case 2:
		return EventDoubleClick
	case 3:
		return EventTripleClick
	default:
		return EventMultiClick
	}
}
