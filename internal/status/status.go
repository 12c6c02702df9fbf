// Package status provides a thread-safe status tracker for the button-sensor daemon.
// The run loop writes it; HTTP handlers and system events read copies.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gesture"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  float64 // default debounce is below a millisecond
	ReleaseMs   int64
	HoldMs      int64
	HeartbeatMs int64
	Mode        string
	Debouncer   string
	Broker      string
	Encoding    string
	HTTPAddr    string
}

// Button is the observable part of the state machine after a tick.
type Button struct {
	State     button.StateKind
	RawClicks int
	// Holding is the current hold time; valid when IsHolding.
	Holding   time.Duration
	IsHolding bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Button        Button
	Ready         bool
	Counts        gesture.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	PinError      string
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the button view, readiness and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(b Button, ready bool, counts gesture.Counts) {
	t.mu.Lock()
	t.snap.Button = b
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetPinError records the latest pin read failure; nil clears it.
func (t *Tracker) SetPinError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.mu.Lock()
	t.snap.PinError = msg
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

// ButtonView reads what the tracker displays from a button.
func ButtonView(b *button.Button) Button {
	holding, ok := b.CurrentHoldingTime()
	return Button{
		State:     b.RawState().Kind,
		RawClicks: b.RawClicks(),
		Holding:   holding,
		IsHolding: ok,
	}
}
