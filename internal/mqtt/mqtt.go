// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/sweeney/button-sensor/internal/gesture"
)

// DefaultTopicPrefix is the topic root used when none is configured.
const DefaultTopicPrefix = "home/button/sensor"

// EventsTopic is the topic for gesture events under prefix.
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic is the topic for system lifecycle events under prefix.
func SystemTopic(prefix string) string { return prefix + "/system" }

// Encoding selects the wire format of payloads.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingJSON, EncodingCBOR:
		return Encoding(s), nil
	case "":
		return EncodingJSON, nil
	}
	return "", fmt.Errorf("unknown payload encoding %q", s)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a gesture event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event gesture.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, it replaces the simple system payload
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button" cbor:"button"`
}

// ButtonPayload contains the gesture details.
type ButtonPayload struct {
	Timestamp string `json:"timestamp" cbor:"timestamp"`
	Event     string `json:"event" cbor:"event"`
	Clicks    int    `json:"clicks,omitempty" cbor:"clicks,omitempty"`
	HeldMs    int64  `json:"held_ms,omitempty" cbor:"held_ms,omitempty"`
}

// FormatPayload creates the payload for a gesture event.
func FormatPayload(event gesture.Event, enc Encoding) ([]byte, error) {
	payload := Payload{
		Button: ButtonPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			Clicks:    event.Clicks,
			HeldMs:    event.Duration.Milliseconds(),
		},
	}
	return marshal(payload, enc)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system" cbor:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp" cbor:"timestamp"`
	Event     string `json:"event" cbor:"event"`
	Reason    string `json:"reason,omitempty" cbor:"reason,omitempty"`
}

// FormatSystemPayload creates the payload for a system event.
// If event.RawPayload is set it is used as the body; with CBOR encoding the
// JSON is re-encoded so a topic never mixes formats.
func FormatSystemPayload(event SystemEvent, enc Encoding) ([]byte, error) {
	if event.RawPayload != nil {
		if enc != EncodingCBOR {
			return event.RawPayload, nil
		}
		var v any
		if err := json.Unmarshal(event.RawPayload, &v); err != nil {
			return nil, fmt.Errorf("decode raw payload: %w", err)
		}
		return cbor.Marshal(v)
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return marshal(payload, enc)
}

func marshal(v any, enc Encoding) ([]byte, error) {
	if enc == EncodingCBOR {
		return cbor.Marshal(v)
	}
	return json.Marshal(v)
}
