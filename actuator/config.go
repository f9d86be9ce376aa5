package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gasera/logger"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultGraceDelay   = 300 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
	DefaultDebounce     = 200 * time.Millisecond

	MinTimeout = 100 * time.Millisecond
	MaxTimeout = 10 * time.Minute
)

// DefaultPins is the wiring of the sampler board. Limit inputs are board
// specific and left empty.
var DefaultPins = [NumActuators]Pins{
	{CW: "PH3", CCW: "PC11", LimitBlocks: CW},
	{CW: "PC5", CCW: "PC8", LimitBlocks: CCW},
}

// Config holds the settings of a Coordinator.
type Config struct {
	Pins [NumActuators]Pins
	// Timeout bounds a single motion.
	Timeout time.Duration
	// GraceDelay is the time a monitor waits before the first limit check.
	GraceDelay time.Duration
	// PollInterval is the limit switch sampling period.
	PollInterval time.Duration
	// Debounce is the time a limit reading must persist to count.
	Debounce time.Duration
	Logger   logger.Logger
}

// DefaultConfig returns a configuration with the board pins and default timings.
func DefaultConfig() Config {
	return Config{
		Pins:         DefaultPins,
		Timeout:      DefaultTimeout,
		GraceDelay:   DefaultGraceDelay,
		PollInterval: DefaultPollInterval,
		Debounce:     DefaultDebounce,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error

	for i, p := range c.Pins {
		if p.CW == "" || p.CCW == "" {
			errs = append(errs, fmt.Errorf("actuator%d: output pins are required", i))
		}
		if p.LimitBlocks != "" && p.LimitBlocks != None && p.LimitBlocks != CW && p.LimitBlocks != CCW {
			errs = append(errs, fmt.Errorf("actuator%d: %w: %q", i, ErrInvalidDirection, p.LimitBlocks))
		}
	}

	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		errs = append(errs, fmt.Errorf("timeout out of range [%v, %v]", MinTimeout, MaxTimeout))
	}
	if c.GraceDelay < 0 {
		errs = append(errs, errors.New("grace delay must not be negative"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Debounce < 0 {
		errs = append(errs, errors.New("debounce must not be negative"))
	}

	return errors.Join(errs...)
}
