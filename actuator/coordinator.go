package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/internal/pool"
	"github.com/arloliu/go-gasera/internal/task"
	"github.com/arloliu/go-gasera/logger"
)

// outcome is the terminal result a monitor observed for motion seq.
type outcome struct {
	id     ID
	seq    uint64
	status Status
}

type actuatorState struct {
	pins      Pins
	status    Status
	direction Direction
	seq       uint64
	cancel    context.CancelFunc
}

// Coordinator drives the actuators and tracks their motion state.
//
// All methods are safe for concurrent use. Only the most recent Start or Stop
// of an actuator decides its state.
type Coordinator struct {
	io     gpio.DigitalIO
	cfg    Config
	logger logger.Logger
	tasks  *task.Manager

	timeout atomic.Int64 // time.Duration

	mu        sync.Mutex
	actuators [NumActuators]*actuatorState
	closed    bool

	outcomes chan outcome
	metrics  Metrics
}

// NewCoordinator creates a Coordinator, forces every output low and starts the
// goroutine applying monitor outcomes. It runs until ctx is done or Close is called.
func NewCoordinator(ctx context.Context, io gpio.DigitalIO, cfg Config) (*Coordinator, error) {
	if io == nil {
		return nil, errors.New("digital io is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := cfg.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("component", "actuator")

	c := &Coordinator{
		io:       io,
		cfg:      cfg,
		logger:   l,
		tasks:    task.NewManager(ctx, l),
		outcomes: make(chan outcome, NumActuators*4),
	}
	c.timeout.Store(int64(cfg.Timeout))

	for i := range c.actuators {
		c.actuators[i] = &actuatorState{pins: cfg.Pins[i], status: Idle, direction: None}
		if err := c.forceLow(c.actuators[i]); err != nil {
			c.logger.Warn("failed to reset outputs", "actuator", i, "error", err)
		}
	}

	if err := c.tasks.Go("actuator-coordinator", c.coordinate); err != nil {
		return nil, err
	}

	return c, nil
}

// Metrics returns the live motion counters.
func (c *Coordinator) Metrics() *Metrics { return &c.metrics }

// Timeout returns the timeout applied to new motions.
func (c *Coordinator) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// SetTimeout changes the timeout of subsequent motions. Values out of range
// select DefaultTimeout.
func (c *Coordinator) SetTimeout(d time.Duration) {
	if d < MinTimeout || d > MaxTimeout {
		c.logger.Warn("actuator timeout out of range, using default", "timeout", d, "default", DefaultTimeout)
		d = DefaultTimeout
	}
	c.timeout.Store(int64(d))
	c.logger.Info("actuator timeout changed", "timeout", d)
}

// Start moves actuator id in dir.
//
// Starting an actuator that is already moving logs a warning and does nothing.
// If the limit switch is active and dir is the blocked direction of that
// actuator, no output is driven and the status becomes limit.
func (c *Coordinator) Start(id ID, dir Direction) error {
	if !id.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidActuator, id)
	}
	if dir != CW && dir != CCW {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	a := c.actuators[id]
	if a.status == Moving {
		c.logger.Warn("actuator already moving", "actuator", id, "direction", a.direction, "requested", dir)
		return nil
	}

	if c.limitBlocks(a, dir) {
		c.logger.Warn("start blocked by limit switch", "actuator", id, "direction", dir)
		a.status = Limit
		a.direction = dir
		c.metrics.recordOutcome(Limit)

		return nil
	}

	c.retire(a)
	if err := c.forceLow(a); err != nil {
		return fmt.Errorf("start %s: %w", id, err)
	}
	if err := c.io.Write(a.pins.output(dir), gpio.High); err != nil {
		_ = c.forceLow(a)
		return fmt.Errorf("start %s: %w", id, err)
	}

	a.seq++
	a.status = Moving
	a.direction = dir
	c.metrics.MotionCount.Add(1)

	mctx, cancel := context.WithCancel(c.tasks.Context())
	a.cancel = cancel

	seq, timeout := a.seq, c.Timeout()
	err := c.tasks.Go(fmt.Sprintf("%s-monitor", id), func(context.Context) {
		c.monitor(mctx, id, seq, timeout)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start %s monitor: %w", id, err)
	}

	c.logger.Info("actuator started", "actuator", id, "direction", dir, "timeout", timeout)

	return nil
}

// Stop forces both outputs of actuator id low. A moving actuator becomes user_stop
// and keeps its direction for reporting.
func (c *Coordinator) Stop(id ID) error {
	if !id.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidActuator, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.actuators[id]
	c.retire(a)
	err := c.forceLow(a)

	if a.status == Moving {
		a.status = UserStop
		c.metrics.recordOutcome(UserStop)
		c.logger.Info("actuator stopped", "actuator", id, "direction", a.direction)
	}

	return err
}

// StartBoth starts every actuator in dir.
func (c *Coordinator) StartBoth(dir Direction) error {
	var errs []error
	for _, id := range IDs {
		if err := c.Start(id, dir); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// StopBoth stops every actuator.
func (c *Coordinator) StopBoth() error {
	var errs []error
	for _, id := range IDs {
		if err := c.Stop(id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Status returns the status and last direction of actuator id.
func (c *Coordinator) Status(id ID) (Status, Direction) {
	if !id.valid() {
		return Idle, None
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.actuators[id]

	return a.status, a.direction
}

// IsDone reports whether actuator id rests in idle, limit, timeout or user_stop.
// Unknown IDs report done.
func (c *Coordinator) IsDone(id ID) bool {
	s, _ := c.Status(id)
	return s.Done()
}

// AreBothDone reports whether no actuator is moving.
func (c *Coordinator) AreBothDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range c.actuators {
		if !a.status.Done() {
			return false
		}
	}

	return true
}

// Snapshot returns the state of every actuator.
func (c *Coordinator) Snapshot() []State {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make([]State, 0, NumActuators)
	for i, a := range c.actuators {
		states = append(states, State{ID: ID(i), Status: a.status, Direction: a.direction})
	}

	return states
}

// Close stops every motion, waits for the background goroutines and leaves all
// outputs low.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.tasks.Stop()
	c.tasks.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, a := range c.actuators {
		c.retire(a)
		if err := c.forceLow(a); err != nil {
			errs = append(errs, err)
		}
		if a.status == Moving {
			a.status = UserStop
		}
	}

	return errors.Join(errs...)
}

// retire cancels the monitor of the current motion. Called with c.mu held.
func (c *Coordinator) retire(a *actuatorState) {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// forceLow drives both outputs of a low. Called with c.mu held or before the
// coordinator is shared.
func (c *Coordinator) forceLow(a *actuatorState) error {
	return errors.Join(
		c.io.Write(a.pins.CW, gpio.Low),
		c.io.Write(a.pins.CCW, gpio.Low),
	)
}

func (c *Coordinator) limitBlocks(a *actuatorState, dir Direction) bool {
	if a.pins.Limit == "" || a.pins.LimitBlocks != dir {
		return false
	}

	level, err := c.io.Read(a.pins.Limit)
	if err != nil {
		c.logger.Warn("failed to read limit switch", "pin", a.pins.Limit, "error", err)
		return false
	}

	return level == gpio.Low
}

// monitor watches motion seq of actuator id until it ends or is superseded.
func (c *Coordinator) monitor(ctx context.Context, id ID, seq uint64, timeout time.Duration) {
	deadline := time.Now().Add(timeout)

	c.mu.Lock()
	limitPin := c.actuators[id].pins.Limit
	c.mu.Unlock()

	var limit *gpio.DebouncedInput
	if limitPin != "" {
		limit = gpio.NewDebouncedInput(c.io, limitPin, c.cfg.Debounce, gpio.High)
	}

	if pool.Sleep(ctx, c.cfg.GraceDelay) != nil {
		return
	}

	for {
		if limit != nil {
			if _, err := limit.Poll(); err != nil {
				c.logger.Warn("failed to read limit switch", "actuator", id, "pin", limitPin, "error", err)
			} else if limit.Stable() == gpio.Low {
				c.report(ctx, outcome{id: id, seq: seq, status: Limit})
				return
			}
		}

		if !time.Now().Before(deadline) {
			c.report(ctx, outcome{id: id, seq: seq, status: Timeout})
			return
		}

		if pool.Sleep(ctx, c.cfg.PollInterval) != nil {
			return
		}
	}
}

func (c *Coordinator) report(ctx context.Context, o outcome) {
	select {
	case c.outcomes <- o:
	case <-ctx.Done():
	}
}

// coordinate applies monitor outcomes until ctx is done.
func (c *Coordinator) coordinate(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-c.outcomes:
			c.apply(o)
		}
	}
}

func (c *Coordinator) apply(o outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.actuators[o.id]
	if a.seq != o.seq || a.status != Moving {
		c.logger.Debug("discard stale motion outcome", "actuator", o.id, "outcome", o.status)
		return
	}

	c.retire(a)
	if err := c.forceLow(a); err != nil {
		c.logger.Error("failed to stop actuator", "actuator", o.id, "error", err)
	}
	a.status = o.status
	c.metrics.recordOutcome(o.status)

	if o.status == Timeout {
		c.logger.Warn("actuator timed out", "actuator", o.id, "direction", a.direction)
	} else {
		c.logger.Info("actuator reached limit", "actuator", o.id, "direction", a.direction)
	}
}
