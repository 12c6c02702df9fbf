package button

import "time"

// Press describes the press currently being debounced.
type Press struct {
	// Elapsed is the time since the press edge.
	Elapsed time.Duration
	// Samples is the number of consecutive ticks that saw the pin pressed,
	// counting the edge tick.
	Samples int
}

// Debouncer decides whether a press in the Down state is real.
type Debouncer interface {
	Debounced(p Press) bool
}

// NoDebounce accepts every press on the tick after its edge.
// Use it when the input is debounced in hardware.
type NoDebounce struct{}

// Debounced always returns true.
func (NoDebounce) Debounced(Press) bool { return true }

// TimeBased accepts a press once it has lasted at least Debounce.
type TimeBased struct {
	Debounce time.Duration
}

// Debounced reports whether the press has lasted long enough.
func (t TimeBased) Debounced(p Press) bool {
	return p.Elapsed >= t.Debounce
}

// SampleBased accepts a press once it has been observed on Samples
// consecutive ticks. Its resolution depends on the tick rate rather than
// on the time source. Values below 1 behave like 1.
type SampleBased struct {
	Samples int
}

// Debounced reports whether enough consecutive pressed samples were seen.
func (s SampleBased) Debounced(p Press) bool {
	return p.Samples >= s.Samples
}
