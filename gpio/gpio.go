package gpio

import (
	"errors"
	"fmt"
)

// Level is the logic level of a digital pin.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// String returns "low" or "high".
func (l Level) String() string {
	if l == Low {
		return "low"
	}

	return "high"
}

// LevelOf converts a 0/1 style integer into a Level, any non-zero value is High.
func LevelOf(v int) Level {
	if v == 0 {
		return Low
	}

	return High
}

// DigitalIO reads and drives named pins.
type DigitalIO interface {
	Read(pin string) (Level, error)
	Write(pin string, level Level) error
}

var (
	// ErrEmptyPin is returned when a pin name is empty.
	ErrEmptyPin = errors.New("empty pin name")
	// ErrPinFault is the parent of injected and hardware pin failures.
	ErrPinFault = errors.New("pin fault")
)

// PinError describes a failed pin operation.
type PinError struct {
	Op  string
	Pin string
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("gpio %s %s: %v", e.Op, e.Pin, e.Err)
}

func (e *PinError) Unwrap() error { return e.Err }
