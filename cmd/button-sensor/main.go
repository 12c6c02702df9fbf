// Command button-sensor watches a push button on a GPIO line and publishes
// clicks and holds to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gesture"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the effective config: defaults, then the -config file,
// then any flags set explicitly on the command line.
func parseFlags(fs *flag.FlagSet, args []string) (config.Config, bool, error) {
	def := config.Default()

	configPath := fs.String("config", "", "YAML config file")
	poll := fs.Duration("poll", def.Poll, "GPIO polling interval")
	debounce := fs.Duration("debounce", def.Button.Debounce, "Minimum press duration")
	release := fs.Duration("release", def.Button.Release, "Quiet time that ends a click streak")
	hold := fs.Duration("hold", def.Button.Hold, "Press duration that counts as a hold")
	mode := fs.String("mode", def.Button.Mode, "Wiring: pullup (active low) or pulldown (active high)")
	pin := fs.Int("pin", def.Button.Pin, "GPIO line offset (BCM number on a Pi)")
	chip := fs.String("chip", def.Button.Chip, "GPIO chip name")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	encoding := fs.String("encoding", def.MQTT.Encoding, "MQTT payload encoding: json or cbor")
	printState := fs.Bool("print-state", false, "Print current pin state and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Button.Debounce = *debounce
		case "release":
			cfg.Button.Release = *release
		case "hold":
			cfg.Button.Hold = *hold
		case "mode":
			cfg.Button.Mode = *mode
		case "pin":
			cfg.Button.Pin = *pin
		case "chip":
			cfg.Button.Chip = *chip
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "encoding":
			cfg.MQTT.Encoding = *encoding
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, err
	}
	return cfg, *printState, nil
}

func run(cfg config.Config, printState bool) error {
	bcfg := cfg.ButtonConfig()

	reader, err := gpio.NewRealReader(cfg.Button.Chip, cfg.Button.Pin, bcfg.Mode)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		high, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("pin %d: %s (%s, %s)\n", cfg.Button.Pin, levelString(high), pressedString(high != bcfg.Mode.IsPullUp()), bcfg.Mode)
		return nil
	}

	for _, w := range cfg.Warnings() {
		log.Printf("config warning: %s", w)
	}

	// An idle pull-up line reads high, an idle pull-down line low.
	pin := gpio.NewPin(reader, bcfg.Mode.IsPullUp())

	var clk clock.Clock = clock.NewSystem()
	if cfg.Clock.Source == config.ClockTicker {
		counter := clock.NewCounter(0)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go clock.Drive(ctx, counter, cfg.Clock.Period)
		clk = counter
	}

	btn := button.New(pin, bcfg, button.WithClock(clk), button.WithDebouncer(cfg.Debouncer()))

	enc, err := mqtt.ParseEncoding(cfg.MQTT.Encoding)
	if err != nil {
		return err
	}
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Encoding:    enc,
		BufferSize:  cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: chip=%s pin=%d mode=%s bias=%s poll=%v debounce=%v (%s) release=%v hold=%v clock=%s broker=%s encoding=%s heartbeat=%v",
		cfg.Button.Chip, cfg.Button.Pin, bcfg.Mode, gpio.Bias(bcfg.Mode), cfg.Poll, bcfg.Debounce, cfg.Button.Debouncer,
		bcfg.Release, bcfg.Hold, cfg.Clock.Source, cfg.MQTT.Broker, enc, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(btn, pin, publisher, publisher, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// pinHealth reports read failures hidden behind the infallible button.Pin.
type pinHealth interface {
	Err() error
}

func runLoop(btn *button.Button, pin pinHealth, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	classifier := gesture.NewClassifier(now())
	var pinErr error

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			btn.Tick()

			// Log once per failure streak; the pin keeps its last good level meanwhile.
			if err := pin.Err(); err != nil {
				if pinErr == nil {
					log.Printf("gpio read error: %v", err)
					if tracker != nil {
						tracker.SetPinError(err)
					}
				}
				pinErr = err
			} else if pinErr != nil {
				log.Printf("gpio read recovered")
				pinErr = nil
				if tracker != nil {
					tracker.SetPinError(nil)
				}
			}

			for _, event := range classifier.Observe(btn, t) {
				logEvent(event)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Update status tracker for HTTP consumers and the heartbeat payload
			if tracker != nil {
				tracker.Update(status.ButtonView(btn), classifier.IsReady(), classifier.CountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if hbData := classifier.CheckHeartbeat(t, heartbeat); hbData != nil {
				c := hbData.Counts
				log.Printf("heartbeat: uptime=%v click=%d double=%d triple=%d multi=%d hold=%d",
					hbData.Uptime, c.Click, c.DoubleClick, c.TripleClick, c.MultiClick, c.HoldEnd)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func logEvent(e gesture.Event) {
	switch e.Type {
	case gesture.EventHoldStart, gesture.EventHoldEnd:
		log.Printf("event: %s (%v)", e.Type, e.Duration)
	default:
		log.Printf("event: %s (clicks=%d)", e.Type, e.Clicks)
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  float64(cfg.Button.Debounce) / float64(time.Millisecond),
		ReleaseMs:   cfg.Button.Release.Milliseconds(),
		HoldMs:      cfg.Button.Hold.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Mode:        cfg.ButtonConfig().Mode.String(),
		Debouncer:   cfg.Button.Debouncer,
		Broker:      cfg.MQTT.Broker,
		Encoding:    cfg.MQTT.Encoding,
		HTTPAddr:    cfg.HTTP.Addr,
	}
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

func pressedString(pressed bool) string {
	if pressed {
		return "pressed"
	}
	return "released"
}
