package gpio

import (
	"sync"
	"time"

	"github.com/arloliu/go-gasera/timerbank"
)

// Edge is a change of the debounced level.
type Edge int

const (
	NoEdge Edge = iota
	RisingEdge
	FallingEdge
)

func (e Edge) String() string {
	switch e {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "none"
	}
}

// DebouncedInput filters a digital input.
//
// A raw level change becomes the stable level only after every sample taken
// during at least the debounce interval agreed on it. A single deviating sample
// restarts the wait.
type DebouncedInput struct {
	io       DigitalIO
	pin      string
	interval time.Duration
	clock    timerbank.Clock

	mu        sync.Mutex
	stable    Level
	candidate Level
	since     time.Time
}

// DebounceOption configures a DebouncedInput.
type DebounceOption func(*DebouncedInput)

// WithClock replaces the monotonic clock, mainly for tests.
func WithClock(clock timerbank.Clock) DebounceOption {
	return func(d *DebouncedInput) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewDebouncedInput creates a filter for pin starting at the stable level initial.
// Inputs wired with pull-ups idle High.
func NewDebouncedInput(io DigitalIO, pin string, interval time.Duration, initial Level, opts ...DebounceOption) *DebouncedInput {
	d := &DebouncedInput{
		io:        io,
		pin:       pin,
		interval:  interval,
		clock:     timerbank.MonotonicClock,
		stable:    initial,
		candidate: initial,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.since = d.clock.Now()

	return d
}

// Pin returns the pin name.
func (d *DebouncedInput) Pin() string { return d.pin }

// Poll samples the pin once and returns the edge of the stable level, if any.
// On a read error the filter state is left untouched.
func (d *DebouncedInput) Poll() (Edge, error) {
	raw, err := d.io.Read(d.pin)
	if err != nil {
		return NoEdge, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if raw != d.candidate {
		d.candidate = raw
		d.since = now
	}

	if d.candidate == d.stable || now.Sub(d.since) < d.interval {
		return NoEdge, nil
	}

	d.stable = d.candidate
	if d.stable == Low {
		return FallingEdge, nil
	}

	return RisingEdge, nil
}

// Stable returns the last accepted level.
func (d *DebouncedInput) Stable() Level {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stable
}
