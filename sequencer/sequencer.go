package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/internal/task"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/timerbank"
	"github.com/google/uuid"
)

// timer names
const (
	timerDeviceStatus = "device_status"
	timerMeasurement  = "measurement_timer"
	timerAbortWait    = "abort_wait"
)

// event levels of last_event
const (
	levelInfo    = "INFO"
	levelWarn    = "WARN"
	levelError   = "ERROR"
	levelTrigger = "TRIGGER"
)

// Device is the part of the analyzer controller a cycle uses.
type Device interface {
	CheckConnection(ctx context.Context) bool
	Status(ctx context.Context) (gasera.DeviceStatus, error)
	StartMeasurement(ctx context.Context, taskID string) (gasera.Result, error)
	StopMeasurement(ctx context.Context) (gasera.Result, error)
}

// Actuators moves the two probes together.
type Actuators interface {
	StartBoth(dir actuator.Direction) error
	StopBoth() error
	AreBothDone() bool
}

// Poller is sampled once per loop iteration, such as *actuator.Jog.
type Poller interface {
	Poll() error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithNotifier sets the alert notifier, the default discards alerts.
func WithNotifier(n alert.Notifier) Option {
	return func(s *Sequencer) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTriggerInput enables the hardware trigger on cfg.TriggerPin of io.
func WithTriggerInput(io gpio.DigitalIO) Option {
	return func(s *Sequencer) {
		s.triggerIO = io
	}
}

// WithPoller adds an input sampled by the loop before every tick.
func WithPoller(p Poller) Option {
	return func(s *Sequencer) {
		if p != nil {
			s.pollers = append(s.pollers, p)
		}
	}
}

// Status is a read-only snapshot of a Sequencer.
type Status struct {
	State     string `yaml:"state" json:"state"`
	LastEvent string `yaml:"last_event" json:"last_event"`
	CycleID   string `yaml:"cycle_id,omitempty" json:"cycle_id,omitempty"`
	// Remaining is the measurement time left, in seconds, while measuring.
	Remaining int  `yaml:"remaining,omitempty" json:"remaining,omitempty"`
	Pending   bool `yaml:"pending" json:"pending"`
}

// Sequencer drives one sampling cycle at a time.
type Sequencer struct {
	cfg      Config
	device   Device
	motors   Actuators
	notifier alert.Notifier
	logger   logger.Logger
	timers   *timerbank.Bank
	tasks    *task.Manager

	triggerIO gpio.DigitalIO
	hwTrigger *gpio.DebouncedInput
	pollers   []Poller

	duration atomic.Int64 // time.Duration
	running  atomic.Bool

	tickMu sync.Mutex // one tick at a time

	mu        sync.Mutex
	state     State
	entered   bool // entry action of state has run
	gen       uint64
	pending   bool
	source    string
	retries   int
	remaining time.Duration
	lastEvent string
	cycleID   string
	aborted   bool
	failed    bool

	metrics Metrics
}

// New creates a Sequencer in IDLE. Its loop runs after Start, until ctx is
// done or Close is called.
func New(ctx context.Context, device Device, motors Actuators, cfg Config, opts ...Option) (*Sequencer, error) {
	if device == nil {
		return nil, errors.New("device is nil")
	}
	if motors == nil {
		return nil, errors.New("actuators are nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := cfg.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("component", "sequencer")

	s := &Sequencer{
		cfg:      cfg,
		device:   device,
		motors:   motors,
		notifier: alert.Nop{},
		logger:   l,
		timers:   timerbank.New(cfg.Clock),
		tasks:    task.NewManager(ctx, l),
		state:    Idle,
		entered:  true,
	}
	s.duration.Store(int64(cfg.MeasurementDuration))

	for _, opt := range opts {
		opt(s)
	}

	if s.triggerIO != nil {
		if cfg.TriggerPin == "" {
			return nil, fmt.Errorf("trigger input: %w", gpio.ErrEmptyPin)
		}
		s.hwTrigger = gpio.NewDebouncedInput(s.triggerIO, cfg.TriggerPin, cfg.TriggerDebounce, gpio.High,
			gpio.WithClock(cfg.Clock))
	}

	return s, nil
}

// Metrics returns the live cycle counters.
func (s *Sequencer) Metrics() *Metrics { return &s.metrics }

// MeasurementDuration returns the duration applied to the next measurement.
func (s *Sequencer) MeasurementDuration() time.Duration {
	return time.Duration(s.duration.Load())
}

// SetMeasurementDuration changes the duration of subsequent measurements.
// A non-positive d selects DefaultMeasurementDuration.
func (s *Sequencer) SetMeasurementDuration(d time.Duration) {
	if d <= 0 {
		d = DefaultMeasurementDuration
	}
	s.duration.Store(int64(d))
	s.logger.Info("measurement duration changed", "duration", d)
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Status returns a snapshot for display.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state.Display(),
		LastEvent: s.lastEvent,
		CycleID:   s.cycleID,
		Pending:   s.pending,
	}
	if s.state == Measuring {
		st.Remaining = int(s.remaining / time.Second)
	}

	return st
}

// Start runs the loop: every tick period it samples the hardware trigger and
// the pollers, then advances the cycle by one step.
func (s *Sequencer) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("sequencer already started")
	}

	err := s.tasks.StartInterval("sequencer-tick", func() bool {
		ctx := s.tasks.Context()
		s.CheckHWTrigger(ctx)
		for _, p := range s.pollers {
			if err := p.Poll(); err != nil {
				s.logger.Debug("input poll failed", "error", err)
			}
		}
		s.Tick(ctx)

		return true
	}, s.cfg.TickPeriod, false)
	if err != nil {
		s.running.Store(false)
	}

	return err
}

// Close stops the loop and waits for a running tick to return.
func (s *Sequencer) Close() {
	s.tasks.Stop()
	s.tasks.Wait()
	s.running.Store(false)
}

// Trigger requests a new cycle. It is accepted only in IDLE with the device
// reachable; the cycle leaves IDLE on the next tick. The returned message
// describes the outcome and is also stored as the last event.
func (s *Sequencer) Trigger(ctx context.Context, source string) string {
	online := s.device.CheckConnection(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !online {
		s.metrics.RejectedTriggerCount.Add(1)
		s.notifier.Notify(alert.Warning)

		return s.eventLocked(levelWarn, "Gasera not reachable, cannot start measurement")
	}

	switch s.state {
	case Idle:
		s.pending = true
		s.source = source
		s.notifier.Notify(alert.Triggered)

		return s.eventLocked(levelInfo, fmt.Sprintf("Starting measurement sequence (source: %s)", source))
	case Measuring:
		s.metrics.RejectedTriggerCount.Add(1)
		return s.eventLocked(levelWarn, "Measurement already in progress")
	default:
		s.metrics.RejectedTriggerCount.Add(1)
		return s.eventLocked(levelError, fmt.Sprintf("Cannot trigger measurement from state %s", s.state.Display()))
	}
}

// SetAbort cuts the running cycle short. The state is overridden at once with
// the nearest safe exit: a started measurement is stopped, moving probes are
// retracted and a status poll is abandoned. The next tick continues from there.
func (s *Sequencer) SetAbort() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next State
	switch s.state {
	case Idle:
		s.pending = false
		return s.eventLocked(levelInfo, "Gasera already IDLE")
	case StartMeasurement, Measuring:
		next = StopMeasurement
	case MovingToProbe:
		next = MovingHome
	case CheckStatus:
		next = Cleanup
	default:
		return s.eventLocked(levelInfo, fmt.Sprintf("Abort already in progress (%s)", s.state.Display()))
	}

	s.aborted = true
	s.notifier.Notify(alert.Cancel)
	msg := s.eventLocked(levelWarn, fmt.Sprintf("Abort requested in %s", s.state.Display()))

	s.state = next
	s.entered = false
	s.gen++
	s.logger.Info("state overridden by abort", "state", next, "cycle", s.cycleID)

	return msg
}

// CheckHWTrigger samples the hardware trigger once. A debounced press starts a
// cycle when idle and aborts the running one otherwise.
func (s *Sequencer) CheckHWTrigger(ctx context.Context) {
	if s.hwTrigger == nil {
		return
	}

	edge, err := s.hwTrigger.Poll()
	if err != nil {
		s.logger.Debug("trigger input read failed", "error", err)
		return
	}
	if edge != gpio.FallingEdge {
		return
	}

	s.mu.Lock()
	idle := s.state == Idle
	s.eventLocked(levelTrigger, "Falling edge with debounce passed.")
	s.mu.Unlock()

	if idle {
		s.Trigger(ctx, "HW")
	} else {
		s.SetAbort()
	}
}

// Tick advances the cycle by one step. Calls are serialized; device exchanges
// run without holding the state lock and their result is dropped when an abort
// overrode the state meanwhile.
func (s *Sequencer) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.entered {
		s.enterLocked()
	}

	switch s.state {
	case Idle:
		if s.pending {
			s.pending = false
			s.beginCycleLocked()
			s.transitionLocked(CheckStatus)
		}

	case CheckStatus:
		if !s.timers.Expired(timerDeviceStatus) {
			return
		}
		gen := s.gen
		status, err := unlocked(&s.mu, func() (gasera.DeviceStatus, error) { return s.device.Status(ctx) })
		if gen != s.gen {
			return
		}
		s.handleStatusLocked(status, err)

	case MovingToProbe:
		if s.motors.AreBothDone() {
			s.eventLocked(levelInfo, "Probes in sample position")
			s.transitionLocked(StartMeasurement)
		}

	case StartMeasurement:
		if !s.timers.Expired(timerDeviceStatus) {
			return
		}
		gen := s.gen
		res, err := unlocked(&s.mu, func() (gasera.Result, error) {
			return s.device.StartMeasurement(ctx, s.cfg.TaskID)
		})
		if gen != s.gen {
			return
		}
		if err != nil || res.Error {
			s.failLocked("Measurement start failed", err)
			s.transitionLocked(MovingHome)

			return
		}
		s.notifier.Notify(alert.MeasurementStarted)
		s.eventLocked(levelInfo, fmt.Sprintf("Measurement started, task %s", s.cfg.TaskID))
		s.transitionLocked(Measuring)

	case Measuring:
		if !s.timers.Expired(timerMeasurement) {
			return
		}
		s.remaining -= s.cfg.CheckInterval
		if s.remaining > 0 {
			secs := int(s.remaining / time.Second)
			s.eventLocked(levelInfo, fmt.Sprintf("Measuring... remaining: %02d:%02d", secs/60, secs%60))
			s.timers.Restart(timerMeasurement, s.cfg.CheckInterval)

			return
		}
		s.remaining = 0
		s.notifier.Notify(alert.MeasurementFinished)
		s.transitionLocked(StopMeasurement)

	case StopMeasurement:
		if !s.timers.Expired(timerAbortWait) {
			return
		}
		gen := s.gen
		res, err := unlocked(&s.mu, func() (gasera.Result, error) { return s.device.StopMeasurement(ctx) })
		if gen != s.gen {
			return
		}
		switch {
		case err != nil:
			s.eventLocked(levelWarn, fmt.Sprintf("Stop measurement got no response: %v", err))
		case res.Error:
			s.eventLocked(levelWarn, "Stop measurement rejected by device")
		default:
			s.eventLocked(levelInfo, "Measurement stopped")
		}
		s.transitionLocked(MovingHome)

	case MovingHome:
		if s.motors.AreBothDone() {
			s.eventLocked(levelInfo, "Probes home")
			s.transitionLocked(Cleanup)
		}

	case Cleanup:
		s.endCycleLocked()
		s.transitionLocked(Idle)
	}
}

func (s *Sequencer) handleStatusLocked(status gasera.DeviceStatus, err error) {
	if err == nil && status.IsIdle() {
		s.eventLocked(levelInfo, "Gasera idle, moving probes")
		s.transitionLocked(MovingToProbe)

		return
	}

	s.retries++
	s.metrics.StatusRetryCount.Add(1)

	if s.retries >= s.cfg.StatusRetryLimit {
		s.failLocked(fmt.Sprintf("Gasera not idle after %d attempts", s.retries), err)
		s.transitionLocked(Cleanup)

		return
	}

	reason := status.Label
	if err != nil {
		reason = "no response"
	}
	s.notifier.Notify(alert.DeviceBusy)
	s.eventLocked(levelInfo, fmt.Sprintf("Waiting for Gasera to become idle (%s, attempt %d/%d)",
		reason, s.retries, s.cfg.StatusRetryLimit))
	s.timers.Restart(timerDeviceStatus, s.cfg.StatusRetryDelay)
}

func (s *Sequencer) transitionLocked(next State) {
	s.state = next
	s.gen++
	s.logger.Debug("transitioning", "state", next, "cycle", s.cycleID)
	s.enterLocked()
}

// enterLocked runs the entry action of the current state.
func (s *Sequencer) enterLocked() {
	s.entered = true

	switch s.state {
	case CheckStatus:
		s.timers.Start(timerDeviceStatus, s.cfg.QueryDelay)

	case MovingToProbe:
		if err := s.motors.StartBoth(actuator.CW); err != nil {
			s.failLocked("Failed to move probes", err)
			s.transitionLocked(MovingHome)
		}

	case StartMeasurement:
		s.timers.Start(timerDeviceStatus, s.cfg.StartDelay)

	case Measuring:
		s.remaining = s.MeasurementDuration()
		s.timers.Start(timerMeasurement, s.cfg.CheckInterval)

	case StopMeasurement:
		s.timers.Start(timerAbortWait, s.cfg.AbortWait)

	case MovingHome:
		err := errors.Join(s.motors.StopBoth(), s.motors.StartBoth(actuator.CCW))
		if err != nil {
			s.failLocked("Failed to retract probes", err)
		}

	case Cleanup:
		s.pending = false
		s.retries = 0
		s.remaining = 0
		s.timers.Clear()
	}
}

func (s *Sequencer) beginCycleLocked() {
	s.cycleID = uuid.NewString()
	s.aborted = false
	s.failed = false
	s.retries = 0
	s.metrics.CycleCount.Add(1)
	s.logger.Info("sampling cycle started", "cycle", s.cycleID, "source", s.source)
}

func (s *Sequencer) endCycleLocked() {
	switch {
	case s.aborted:
		s.metrics.AbortedCount.Add(1)
		s.eventLocked(levelWarn, "Measurement aborted.")
	case s.failed:
		s.metrics.FailedCount.Add(1)
		s.eventLocked(levelError, "Measurement sequence failed.")
	default:
		s.metrics.CompletedCount.Add(1)
		s.notifier.Notify(alert.Ended)
		s.eventLocked(levelInfo, "Measurement complete.")
	}
}

func (s *Sequencer) failLocked(msg string, err error) {
	s.failed = true
	s.notifier.Notify(alert.Error)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	s.eventLocked(levelError, msg)
}

// eventLocked stores msg as the last event and logs it.
func (s *Sequencer) eventLocked(level, msg string) string {
	tagged := "[" + level + "] " + msg
	s.lastEvent = tagged

	kv := []any{"state", s.state}
	if s.cycleID != "" {
		kv = append(kv, "cycle", s.cycleID)
	}

	switch level {
	case levelWarn:
		s.logger.Warn(msg, kv...)
	case levelError:
		s.logger.Error(msg, kv...)
	case levelTrigger:
		s.logger.Debug(msg, kv...)
	default:
		s.logger.Info(msg, kv...)
	}

	return tagged
}

// unlocked runs fn with mu released and locks mu again before returning.
func unlocked[T any](mu *sync.Mutex, fn func() (T, error)) (T, error) {
	mu.Unlock()
	defer mu.Lock()

	return fn()
}
