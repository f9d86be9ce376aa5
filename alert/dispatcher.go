package alert

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-gasera/internal/pool"
	"github.com/arloliu/go-gasera/internal/queue"
	"github.com/arloliu/go-gasera/internal/task"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/timerbank"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultMinSilence is the pause the worker keeps between two jobs.
const DefaultMinSilence = 50 * time.Millisecond

type job struct {
	name   string
	pulses []Pulse
}

// DispatcherMetrics counts the fate of notifications.
type DispatcherMetrics struct {
	// PlayedCount indicates the number of jobs the player finished.
	PlayedCount atomic.Uint64
	// DroppedCount indicates the number of notifications that were unknown, rate limited or late.
	DroppedCount atomic.Uint64
	// FailedCount indicates the number of jobs the player returned an error for.
	FailedCount atomic.Uint64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithUnit sets the Morse dot length.
func WithUnit(unit time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if unit > 0 {
			d.unit = unit
		}
	}
}

// WithPatterns adds or overrides pattern definitions.
func WithPatterns(patterns map[string]string) DispatcherOption {
	return func(d *Dispatcher) {
		for name, def := range patterns {
			d.patterns[name] = def
		}
	}
}

// WithRateLimits replaces the per-pattern minimum intervals.
func WithRateLimits(limits map[string]time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimits = make(map[string]time.Duration, len(limits))
		for name, limit := range limits {
			d.rateLimits[name] = limit
		}
	}
}

// WithMinSilence sets the pause between two jobs.
func WithMinSilence(silence time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.minSilence = max(0, silence)
	}
}

// WithDispatcherLogger sets the logger of the dispatcher.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDispatcherClock sets the clock used for rate limiting.
func WithDispatcherClock(clock timerbank.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// Dispatcher is the asynchronous Notifier that plays patterns on a Player.
//
// Notifications are queued in call order and played one at a time by a single
// worker goroutine. A pattern with a rate limit is dropped when it was accepted
// less than the limit ago.
type Dispatcher struct {
	player     Player
	logger     logger.Logger
	clock      timerbank.Clock
	unit       time.Duration
	minSilence time.Duration
	patterns   map[string]string
	rateLimits map[string]time.Duration

	jobs       queue.Queue[job]
	signal     chan struct{}
	lastPlayed *xsync.MapOf[string, time.Time]
	tasks      *task.Manager
	closed     atomic.Bool

	metrics DispatcherMetrics
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher and starts its worker. The worker stops
// when ctx is done or Close is called. A nil player plays nothing.
func NewDispatcher(ctx context.Context, player Player, opts ...DispatcherOption) *Dispatcher {
	if player == nil {
		player = silentPlayer{}
	}

	d := &Dispatcher{
		player:     player,
		logger:     logger.GetLogger(),
		clock:      timerbank.MonotonicClock,
		unit:       DefaultUnit,
		minSilence: DefaultMinSilence,
		patterns:   DefaultPatterns(),
		rateLimits: DefaultRateLimits(),
		jobs:       queue.NewLockFree[job](),
		signal:     make(chan struct{}, 1),
		lastPlayed: xsync.NewMapOf[string, time.Time](),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "alert")
	d.tasks = task.NewManager(ctx, d.logger)

	if err := d.tasks.Go("alert-dispatcher", d.run); err != nil {
		d.logger.Warn("alert worker not started", "error", err)
		d.closed.Store(true)
	}

	return d
}

// Metrics returns the live notification counters.
func (d *Dispatcher) Metrics() *DispatcherMetrics { return &d.metrics }

// Pending returns the number of queued jobs.
func (d *Dispatcher) Pending() int { return d.jobs.Len() }

// Notify implements Notifier.
func (d *Dispatcher) Notify(pattern string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("alert notify panicked", "pattern", pattern, "panic", r)
		}
	}()

	if d.closed.Load() {
		d.metrics.DroppedCount.Add(1)
		return
	}

	def, ok := d.patterns[pattern]
	if !ok {
		d.logger.Warn("unknown alert pattern", "pattern", pattern)
		d.metrics.DroppedCount.Add(1)

		return
	}

	if !d.allow(pattern) {
		d.logger.Debug("alert rate limited", "pattern", pattern)
		d.metrics.DroppedCount.Add(1)

		return
	}

	pulses := PatternPulses(def, d.unit)
	if len(pulses) == 0 {
		d.metrics.DroppedCount.Add(1)
		return
	}

	d.jobs.Enqueue(job{name: pattern, pulses: pulses})

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Close stops the worker and waits for it. Queued jobs are dropped.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.tasks.Stop()
	d.tasks.Wait()

	for {
		if _, ok := d.jobs.Dequeue(); !ok {
			break
		}
		d.metrics.DroppedCount.Add(1)
	}
}

// allow records the acceptance time of a rate-limited pattern and reports
// whether the previous acceptance is at least the limit ago.
func (d *Dispatcher) allow(pattern string) bool {
	limit, ok := d.rateLimits[pattern]
	if !ok || limit <= 0 {
		return true
	}

	now := d.clock.Now()
	allowed := true
	d.lastPlayed.Compute(pattern, func(last time.Time, loaded bool) (time.Time, bool) {
		if loaded && now.Sub(last) < limit {
			allowed = false
			return last, false
		}

		return now, false
	})

	return allowed
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.signal:
		}

		for {
			j, ok := d.jobs.Dequeue()
			if !ok {
				break
			}

			d.play(ctx, j)

			if err := pool.Sleep(ctx, d.minSilence); err != nil {
				return
			}
		}
	}
}

func (d *Dispatcher) play(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.FailedCount.Add(1)
			d.logger.Error("alert player panicked", "pattern", j.name, "panic", r)
		}
	}()

	if err := d.player.Play(ctx, j.pulses); err != nil {
		d.metrics.FailedCount.Add(1)
		if ctx.Err() == nil {
			d.logger.Warn("alert play failed", "pattern", j.name, "error", err)
		}

		return
	}

	d.metrics.PlayedCount.Add(1)
}

type silentPlayer struct{}

func (silentPlayer) Play(context.Context, []Pulse) error { return nil }
