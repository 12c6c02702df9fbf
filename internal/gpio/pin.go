package gpio

// Pin adapts a fallible Reader to the infallible button.Pin.
// When a read fails it keeps reporting the last good level and records the
// error, so a transient fault never looks like a press or a release.
type Pin struct {
	r     Reader
	level bool
	err   error
}

// NewPin wraps r. initial is the level reported until the first good read.
func NewPin(r Reader, initial bool) *Pin {
	return &Pin{r: r, level: initial}
}

// IsHigh reads the line, falling back to the last good level on error.
func (p *Pin) IsHigh() bool {
	v, err := p.r.Read()
	if err != nil {
		p.err = err
		return p.level
	}
	p.err = nil
	p.level = v
	return v
}

// Err returns the error from the most recent read, or nil if it succeeded.
func (p *Pin) Err() error {
	return p.err
}

// Close closes the underlying reader.
func (p *Pin) Close() error {
	return p.r.Close()
}
