package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/timerbank"
)

const (
	DefaultTickPeriod          = 500 * time.Millisecond
	DefaultStatusRetryLimit    = 3
	DefaultQueryDelay          = 100 * time.Millisecond
	DefaultStatusRetryDelay    = time.Second
	DefaultStartDelay          = time.Second
	DefaultCheckInterval       = 5 * time.Second
	DefaultAbortWait           = time.Second
	DefaultMeasurementDuration = 600 * time.Second
	DefaultTriggerDebounce     = 200 * time.Millisecond
	DefaultTriggerPin          = "PC10"

	MinTickPeriod = 10 * time.Millisecond
	MaxTickPeriod = 10 * time.Second
)

// Config holds the settings of a Sequencer.
type Config struct {
	// TaskID is the measurement task started on the device.
	TaskID string
	// TickPeriod is the period of the loop run by Start.
	TickPeriod time.Duration
	// StatusRetryLimit is the number of non-idle status replies before the cycle gives up.
	StatusRetryLimit int
	// QueryDelay is the wait before the first status query of a cycle.
	QueryDelay time.Duration
	// StatusRetryDelay is the wait between two status queries.
	StatusRetryDelay time.Duration
	// StartDelay is the settle time between the probes arriving and the start command.
	StartDelay time.Duration
	// CheckInterval is the countdown step while measuring.
	CheckInterval time.Duration
	// AbortWait is the wait before the stop command.
	AbortWait time.Duration
	// MeasurementDuration is the initial measurement duration, adjustable at runtime.
	MeasurementDuration time.Duration

	// TriggerPin is the hardware trigger input, pulled low when pressed.
	TriggerPin      string
	TriggerDebounce time.Duration

	// Clock drives the cycle timers, nil selects the monotonic clock.
	Clock  timerbank.Clock
	Logger logger.Logger
}

// DefaultConfig returns the settings of the sampler board.
func DefaultConfig() Config {
	return Config{
		TaskID:              gasera.TaskDefault,
		TickPeriod:          DefaultTickPeriod,
		StatusRetryLimit:    DefaultStatusRetryLimit,
		QueryDelay:          DefaultQueryDelay,
		StatusRetryDelay:    DefaultStatusRetryDelay,
		StartDelay:          DefaultStartDelay,
		CheckInterval:       DefaultCheckInterval,
		AbortWait:           DefaultAbortWait,
		MeasurementDuration: DefaultMeasurementDuration,
		TriggerPin:          DefaultTriggerPin,
		TriggerDebounce:     DefaultTriggerDebounce,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error

	if !gasera.KnownTaskID(c.TaskID) {
		errs = append(errs, fmt.Errorf("%w: %q", gasera.ErrUnknownTask, c.TaskID))
	}
	if c.TickPeriod < MinTickPeriod || c.TickPeriod > MaxTickPeriod {
		errs = append(errs, fmt.Errorf("tick period out of range [%v, %v]", MinTickPeriod, MaxTickPeriod))
	}
	if c.StatusRetryLimit < 1 {
		errs = append(errs, errors.New("status retry limit must be at least 1"))
	}
	if c.QueryDelay < 0 || c.StatusRetryDelay < 0 || c.StartDelay < 0 || c.AbortWait < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("check interval must be positive"))
	}
	if c.MeasurementDuration <= 0 {
		errs = append(errs, errors.New("measurement duration must be positive"))
	}
	if c.TriggerDebounce < 0 {
		errs = append(errs, errors.New("trigger debounce must not be negative"))
	}

	return errors.Join(errs...)
}
