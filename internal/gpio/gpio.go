// Package gpio provides raw GPIO input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/button-sensor/internal/button"

// Reader reads the raw level of a single GPIO input line.
type Reader interface {
	// Read returns true when the line is at logic high.
	// No inversion is applied; polarity belongs to the button mode.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering on a Raspberry Pi).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// Bias selects the internal resistor for a button mode: a pull-up button
// needs the line pulled high at rest, a pull-down button pulled low.
func Bias(mode button.Mode) string {
	if mode.IsPullUp() {
		return "pull-up"
	}
	return "pull-down"
}
