package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	RawClicks     int        `json:"raw_clicks"`
	HoldingMs     *int64     `json:"holding_ms,omitempty"`
	Ready         bool       `json:"ready"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	PinError      string     `json:"pin_error,omitempty"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Click       int `json:"click"`
	DoubleClick int `json:"double_click"`
	TripleClick int `json:"triple_click"`
	MultiClick  int `json:"multi_click"`
	HoldStart   int `json:"hold_start"`
	HoldEnd     int `json:"hold_end"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64   `json:"poll_ms"`
	DebounceMs  float64 `json:"debounce_ms"`
	ReleaseMs   int64   `json:"release_ms"`
	HoldMs      int64   `json:"hold_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Mode        string  `json:"mode"`
	Debouncer   string  `json:"debouncer"`
	Broker      string  `json:"broker"`
	Encoding    string  `json:"encoding"`
	HTTPAddr    string  `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.Button.State.String(),
		RawClicks:     snap.Button.RawClicks,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		PinError:      snap.PinError,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Click:       snap.Counts.Click,
			DoubleClick: snap.Counts.DoubleClick,
			TripleClick: snap.Counts.TripleClick,
			MultiClick:  snap.Counts.MultiClick,
			HoldStart:   snap.Counts.HoldStart,
			HoldEnd:     snap.Counts.HoldEnd,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			ReleaseMs:   snap.Config.ReleaseMs,
			HoldMs:      snap.Config.HoldMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Mode:        snap.Config.Mode,
			Debouncer:   snap.Config.Debouncer,
			Broker:      snap.Config.Broker,
			Encoding:    snap.Config.Encoding,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Button.IsHolding {
		ms := snap.Button.Holding.Milliseconds()
		inner.HoldingMs = &ms
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
