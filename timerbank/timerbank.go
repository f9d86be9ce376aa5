// Package timerbank keeps named countdown timers for the sampling sequencer.
//
// A Bank is polled, it never calls back: the owner checks Expired on every tick.
// Expiries are computed from a Clock whose Now carries Go's monotonic reading, so
// wall-clock adjustments don't shorten or stretch a running timer.
//
// Bank is safe for concurrent use.
package timerbank

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Clock is the time source of a Bank.
type Clock interface {
	Now() time.Time
}

type monotonicClock struct{}

// Now returns time.Now(), which carries a monotonic clock reading.
func (monotonicClock) Now() time.Time { return time.Now() }

// MonotonicClock is the default Clock.
var MonotonicClock Clock = monotonicClock{}

// Bank is a set of named timers.
type Bank struct {
	clock   Clock
	expires *xsync.MapOf[string, time.Time]
}

// New creates an empty Bank. A nil clock selects MonotonicClock.
func New(clock Clock) *Bank {
	if clock == nil {
		clock = MonotonicClock
	}

	return &Bank{
		clock:   clock,
		expires: xsync.NewMapOf[string, time.Time](),
	}
}

// Start arms the timer name to expire after delay, replacing any running timer
// of the same name. A non-positive delay arms a timer that is already expired.
func (b *Bank) Start(name string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	b.expires.Store(name, b.clock.Now().Add(delay))
}

// Restart is an alias of Start.
func (b *Bank) Restart(name string, delay time.Duration) {
	b.Start(name, delay)
}

// Stop removes the timer name. Stopping an unknown timer is a no-op.
func (b *Bank) Stop(name string) {
	b.expires.Delete(name)
}

// Expired reports whether the timer name exists and its delay has elapsed.
// A stopped or never started timer is not expired.
func (b *Bank) Expired(name string) bool {
	expiry, ok := b.expires.Load(name)
	if !ok {
		return false
	}

	return !b.clock.Now().Before(expiry)
}

// IsActive reports whether the timer name exists and has not expired yet.
func (b *Bank) IsActive(name string) bool {
	expiry, ok := b.expires.Load(name)
	if !ok {
		return false
	}

	return b.clock.Now().Before(expiry)
}

// Remaining returns the time left on the timer name, zero when it is expired or unknown.
func (b *Bank) Remaining(name string) time.Duration {
	expiry, ok := b.expires.Load(name)
	if !ok {
		return 0
	}

	if left := expiry.Sub(b.clock.Now()); left > 0 {
		return left
	}

	return 0
}

// Names returns the names of all timers in the bank, expired ones included.
func (b *Bank) Names() []string {
	names := make([]string, 0, b.expires.Size())
	b.expires.Range(func(name string, _ time.Time) bool {
		names = append(names, name)
		return true
	})

	return names
}

// Clear removes every timer.
func (b *Bank) Clear() {
	b.expires.Clear()
}
