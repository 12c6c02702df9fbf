//go:build tinygo

package gpio

import (
	"machine"

	"github.com/sweeney/button-sensor/internal/button"
)

// MachinePin reads a microcontroller pin through TinyGo's machine package.
// machine.Pin.Get never blocks, so it satisfies button.Pin directly.
type MachinePin struct {
	pin machine.Pin
}

// NewMachinePin configures p as an input with the bias matching mode.
func NewMachinePin(p machine.Pin, mode button.Mode) MachinePin {
	m := machine.PinInputPulldown
	if mode.IsPullUp() {
		m = machine.PinInputPullup
	}
	p.Configure(machine.PinConfig{Mode: m})
	return MachinePin{pin: p}
}

// IsHigh returns the current pin level.
func (p MachinePin) IsHigh() bool {
	return p.pin.Get()
}
