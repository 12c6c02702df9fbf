//go:build tinygo

// Command button-mcu runs the button state machine on a microcontroller.
// A background goroutine plays the part of a timer interrupt, advancing a
// counter clock every tick period. Gestures are printed over the serial
// console and a click toggles the on-board LED.
//
// Build with: tinygo flash -target=<board> ./cmd/button-mcu
package main

import (
	"context"
	"machine"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/gesture"
	"github.com/sweeney/button-sensor/internal/gpio"
)

const (
	buttonPin  = machine.Pin(2)
	tickPeriod = 2 * time.Millisecond
)

func main() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	cfg := button.DefaultConfig()
	pin := gpio.NewMachinePin(buttonPin, cfg.Mode)

	counter := clock.NewCounter(0)
	go clock.Drive(context.Background(), counter, tickPeriod)

	btn := button.New(pin, cfg, button.WithClock(counter))
	classifier := gesture.NewClassifier(time.Now())

	println("button-mcu: started, mode", cfg.Mode.String())

	lit := false
	for {
		btn.Tick()
		for _, ev := range classifier.Observe(btn, time.Now()) {
			switch ev.Type {
			case gesture.EventHoldEnd:
				println("button-mcu:", string(ev.Type), "held_ms", ev.Duration.Milliseconds())
			case gesture.EventHoldStart:
				println("button-mcu:", string(ev.Type))
			default:
				println("button-mcu:", string(ev.Type), "clicks", ev.Clicks)
				lit = !lit
				led.Set(lit)
			}
		}
		// Yield so the clock goroutine runs on single-core schedulers.
		time.Sleep(time.Millisecond)
	}
}
