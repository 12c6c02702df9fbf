package gesture

import (
	"time"

	"github.com/sweeney/button-sensor/internal/button"
)

// Classifier reports each gesture of a button exactly once.
type Classifier struct {
	holding       bool
	ready         bool
	startTime     time.Time
	counts        Counts
	lastHeartbeat time.Time
}

// NewClassifier creates a classifier.
// The startTime is used for calculating uptime in heartbeat events.
func NewClassifier(startTime time.Time) *Classifier {
	return &Classifier{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe reads the button after a tick and returns the gestures it completed.
// Settled results are cleared with Reset, so calling Observe once per tick
// reports every click streak and hold a single time.
func (c *Classifier) Observe(src Source, now time.Time) []Event {
	state := src.RawState()
	if !state.IsUnknown() {
		c.ready = true
	}

	var events []Event

	if state.IsHeld() {
		if !c.holding {
			c.holding = true
			d, _ := src.CurrentHoldingTime()
			events = append(events, Event{Timestamp: now, Type: EventHoldStart, Duration: d})
		}
	} else {
		c.holding = false
	}

	if state.IsReleased() {
		if n := src.Clicks(); n > 0 {
			events = append(events, Event{Timestamp: now, Type: ClickEventType(n), Clicks: n})
		}
		if d, ok := src.HeldTime(); ok {
			events = append(events, Event{Timestamp: now, Type: EventHoldEnd, Duration: d})
		}
		src.Reset()
	}

	for _, e := range events {
		c.count(e.Type)
	}

	return events
}

func (c *Classifier) count(t EventType) {
	switch t {
	case EventClick:
		c.counts.Click++
	case EventDoubleClick:
		c.counts.DoubleClick++
	case EventTripleClick:
		c.counts.TripleClick++
	case EventMultiClick:
		c.counts.MultiClick++
	case EventHoldStart:
		c.counts.HoldStart++
	case EventHoldEnd:
		c.counts.HoldEnd++
	}
}

// IsReady returns whether the button has resolved its initial state.
func (c *Classifier) IsReady() bool {
	return c.ready
}

// CountsSnapshot returns a copy of the event counts.
func (c *Classifier) CountsSnapshot() Counts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet ready, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (c *Classifier) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !c.ready {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}

var _ Source = (*button.Button)(nil)
