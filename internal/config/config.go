// Package config loads the daemon configuration from a YAML file.
// Missing keys keep their defaults; unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gpio"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Debouncer names.
const (
	DebouncerTime    = "time"
	DebouncerNone    = "none"
	DebouncerSamples = "samples"
)

// Clock source names.
const (
	ClockMonotonic = "monotonic"
	ClockTicker    = "ticker"
)

// Payload encodings.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Config is the full daemon configuration.
type Config struct {
	Button    ButtonConfig  `yaml:"button"`
	Clock     ClockConfig   `yaml:"clock"`
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      HTTPConfig    `yaml:"http"`
}

// ButtonConfig describes the input line and its gesture timings.
type ButtonConfig struct {
	Chip      string        `yaml:"chip"`
	Pin       int           `yaml:"pin"`
	Mode      string        `yaml:"mode"`
	Debounce  time.Duration `yaml:"debounce"`
	Release   time.Duration `yaml:"release"`
	Hold      time.Duration `yaml:"hold"`
	Debouncer string        `yaml:"debouncer"`
	// Samples is the consecutive pressed ticks required by the "samples" debouncer.
	Samples int `yaml:"samples"`
}

// ClockConfig selects the button's time source.
type ClockConfig struct {
	Source string `yaml:"source"`
	// Period is the ticker resolution when Source is "ticker".
	Period time.Duration `yaml:"period"`
}

// MQTTConfig configures the event publisher.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Encoding    string `yaml:"encoding"`
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Button: ButtonConfig{
			Chip:      gpio.DefaultChip,
			Pin:       gpio.DefaultPin,
			Mode:      button.PullUp.String(),
			Debounce:  button.DefaultDebounce,
			Release:   button.DefaultRelease,
			Hold:      button.DefaultHold,
			Debouncer: DebouncerTime,
			Samples:   3,
		},
		Clock: ClockConfig{
			Source: ClockMonotonic,
			Period: time.Millisecond,
		},
		Poll:      time.Millisecond,
		Heartbeat: 15 * time.Minute,
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "home/button/sensor",
			Encoding:    EncodingJSON,
			BufferSize:  100,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
// An empty document yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks for values the daemon cannot run with.
func (c Config) Validate() error {
	var problems []string

	if c.Button.Pin < 0 {
		problems = append(problems, fmt.Sprintf("button.pin %d is negative", c.Button.Pin))
	}
	if _, err := button.ParseMode(c.Button.Mode); err != nil {
		problems = append(problems, "button.mode: "+err.Error())
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"button.debounce", c.Button.Debounce},
		{"button.release", c.Button.Release},
		{"button.hold", c.Button.Hold},
		{"heartbeat", c.Heartbeat},
	} {
		if d.v < 0 {
			problems = append(problems, fmt.Sprintf("%s %v is negative", d.name, d.v))
		}
	}
	switch c.Button.Debouncer {
	case DebouncerTime, DebouncerNone:
	case DebouncerSamples:
		if c.Button.Samples < 1 {
			problems = append(problems, "button.samples must be at least 1")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown button.debouncer %q", c.Button.Debouncer))
	}
	switch c.Clock.Source {
	case ClockMonotonic:
	case ClockTicker:
		if c.Clock.Period <= 0 {
			problems = append(problems, "clock.period must be positive for the ticker clock")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown clock.source %q", c.Clock.Source))
	}
	if c.Poll <= 0 {
		problems = append(problems, "poll must be positive")
	}
	switch c.MQTT.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		problems = append(problems, fmt.Sprintf("unknown mqtt.encoding %q", c.MQTT.Encoding))
	}
	if c.MQTT.BufferSize < 0 {
		problems = append(problems, "mqtt.buffer_size is negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Warnings lists settings that are accepted but will make gestures behave
// oddly, such as timings out of the usual debounce < release < hold order.
func (c Config) Warnings() []string {
	var w []string
	b := c.Button
	if b.Debouncer == DebouncerTime && b.Debounce >= b.Release {
		w = append(w, fmt.Sprintf("button.debounce %v is not shorter than button.release %v", b.Debounce, b.Release))
	}
	if b.Hold <= b.Release {
		w = append(w, fmt.Sprintf("button.hold %v is not longer than button.release %v", b.Hold, b.Release))
	}
	if b.Debouncer == DebouncerTime && b.Hold <= b.Debounce {
		w = append(w, fmt.Sprintf("button.hold %v is not longer than button.debounce %v", b.Hold, b.Debounce))
	}
	return w
}

// ButtonConfig converts the button section into the state machine config.
// It assumes Validate succeeded.
func (c Config) ButtonConfig() button.Config {
	mode, _ := button.ParseMode(c.Button.Mode)
	return button.Config{
		Debounce: c.Button.Debounce,
		Release:  c.Button.Release,
		Hold:     c.Button.Hold,
		Mode:     mode,
	}
}

// Debouncer returns the configured debounce strategy.
func (c Config) Debouncer() button.Debouncer {
	switch c.Button.Debouncer {
	case DebouncerNone:
		return button.NoDebounce{}
	case DebouncerSamples:
		return button.SampleBased{Samples: c.Button.Samples}
	default:
		return button.TimeBased{Debounce: c.Button.Debounce}
	}
}
