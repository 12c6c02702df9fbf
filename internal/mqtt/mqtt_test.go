package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/sweeney/button-sensor/internal/gesture"
)

var testTime = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func TestFormatPayload(t *testing.T) {
	event := gesture.Event{
		Timestamp: testTime,
		Type:      gesture.EventDoubleClick,
		Clicks:    2,
	}

	payload, err := FormatPayload(event, EncodingJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Button.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Button.Timestamp)
	}
	if parsed.Button.Event != "DOUBLE_CLICK" {
		t.Errorf("unexpected event: %s", parsed.Button.Event)
	}
	if parsed.Button.Clicks != 2 {
		t.Errorf("unexpected clicks: %d", parsed.Button.Clicks)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event gesture.Event
		want  string
	}{
		{
			"click",
			gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1},
			`{"button":{"timestamp":"2026-02-02T22:18:12Z","event":"CLICK","clicks":1}}`,
		},
		{
			"hold end",
			gesture.Event{Timestamp: testTime, Type: gesture.EventHoldEnd, Duration: 1250 * time.Millisecond},
			`{"button":{"timestamp":"2026-02-02T22:18:12Z","event":"HOLD_END","held_ms":1250}}`,
		},
		{
			"sub-second timestamp",
			gesture.Event{Timestamp: testTime.Add(5 * time.Millisecond), Type: gesture.EventMultiClick, Clicks: 4},
			`{"button":{"timestamp":"2026-02-02T22:18:12.005Z","event":"MULTI_CLICK","clicks":4}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatPayload(tt.event, EncodingJSON)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("got  %s\nwant %s", payload, tt.want)
			}
		})
	}
}

func TestFormatPayloadCBOR(t *testing.T) {
	event := gesture.Event{Timestamp: testTime, Type: gesture.EventHoldStart, Duration: 500 * time.Millisecond}

	payload, err := FormatPayload(event, EncodingCBOR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if json.Valid(payload) {
		t.Fatal("CBOR payload should not be JSON")
	}

	var parsed Payload
	if err := cbor.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid CBOR: %v", err)
	}
	if parsed.Button.Event != "HOLD_START" {
		t.Errorf("unexpected event: %s", parsed.Button.Event)
	}
	if parsed.Button.HeldMs != 500 {
		t.Errorf("unexpected held_ms: %d", parsed.Button.HeldMs)
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": EncodingJSON, "json": EncodingJSON, "cbor": EncodingCBOR} {
		got, err := ParseEncoding(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("%q: got %s, want %s", in, got, want)
		}
	}
	if _, err := ParseEncoding("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestTopics(t *testing.T) {
	if got := EventsTopic(DefaultTopicPrefix); got != "home/button/sensor/events" {
		t.Errorf("unexpected events topic: %s", got)
	}
	if got := SystemTopic("hall/button"); got != "hall/button/system" {
		t.Errorf("unexpected system topic: %s", got)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}, EncodingJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "RECONNECTED"}, EncodingJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(payload), "reason") {
		t.Errorf("reason should be omitted: %s", payload)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP","uptime_ms":0}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw}, EncodingJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload altered: %s", payload)
	}
}

func TestFormatSystemPayloadRawToCBOR(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT","counts":{"click":3}}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw}, EncodingCBOR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed struct {
		System struct {
			Event  string         `cbor:"event"`
			Counts map[string]int `cbor:"counts"`
		} `cbor:"system"`
	}
	if err := cbor.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid CBOR: %v", err)
	}
	if parsed.System.Event != "HEARTBEAT" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Counts["click"] != 3 {
		t.Errorf("unexpected counts: %v", parsed.System.Counts)
	}
}

func TestFormatSystemPayloadRawInvalidForCBOR(t *testing.T) {
	_, err := FormatSystemPayload(SystemEvent{RawPayload: []byte("{not json")}, EncodingCBOR)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFakePublisher(t *testing.T) {
	pub := NewFakePublisher()
	event := gesture.Event{Timestamp: testTime, Type: gesture.EventClick, Clicks: 1}

	if err := pub.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.Events) != 1 || len(pub.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(pub.Events), len(pub.Payloads))
	}
	if pub.Events[0] != event {
		t.Errorf("recorded event mismatch: %+v", pub.Events[0])
	}
	if !json.Valid(pub.Payloads[0]) {
		t.Errorf("payload should be JSON: %s", pub.Payloads[0])
	}

	if err := pub.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := pub.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("unexpected system events: %v", names)
	}
	if types := pub.EventTypes(); len(types) != 1 || types[0] != gesture.EventClick {
		t.Errorf("unexpected event types: %v", types)
	}
}

func TestFakePublisherError(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker gone")
	pub.PublishSystemError = errors.New("broker gone")

	if err := pub.Publish(gesture.Event{Type: gesture.EventClick}); err == nil {
		t.Error("expected publish error")
	}
	if err := pub.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected publish system error")
	}
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	pub := NewFakePublisher()
	pub.Connected = true
	_ = pub.Publish(gesture.Event{Type: gesture.EventClick})
	_ = pub.Close()

	pub.Reset()

	if len(pub.Events) != 0 || len(pub.Payloads) != 0 {
		t.Error("events not cleared")
	}
	if pub.Closed || pub.Connected {
		t.Error("flags not cleared")
	}
}

var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
