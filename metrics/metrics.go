// Package metrics exports the live counters of the sampler to Prometheus.
//
// The counters themselves are atomics owned by each component (link, sequencer,
// actuator, alert); this package only reads them through CounterFunc and
// GaugeFunc collectors, so registering metrics never changes component
// behaviour.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/link"
	"github.com/arloliu/go-gasera/sequencer"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gasera"

// LinkSource is the device link being observed.
type LinkSource interface {
	Metrics() *link.ConnectionMetrics
	Connected() bool
}

// SequencerSource is the sequencer being observed.
type SequencerSource interface {
	Metrics() *sequencer.Metrics
	State() sequencer.State
}

// ActuatorSource is the actuator coordinator being observed.
type ActuatorSource interface {
	Metrics() *actuator.Metrics
	Status(id actuator.ID) (actuator.Status, actuator.Direction)
}

// AlertSource is the alert dispatcher being observed.
type AlertSource interface {
	Metrics() *alert.DispatcherMetrics
}

// Sources lists the components to export. Nil sources are skipped.
type Sources struct {
	Link      LinkSource
	Sequencer SequencerSource
	Actuators ActuatorSource
	Alerts    AlertSource
}

// Register registers collectors for every non-nil source on reg.
func Register(reg prometheus.Registerer, src Sources) error {
	var collectors []prometheus.Collector

	if src.Link != nil {
		collectors = append(collectors, linkCollectors(src.Link)...)
	}
	if src.Sequencer != nil {
		collectors = append(collectors, sequencerCollectors(src.Sequencer)...)
	}
	if src.Actuators != nil {
		collectors = append(collectors, actuatorCollectors(src.Actuators)...)
	}
	if src.Alerts != nil {
		collectors = append(collectors, alertCollectors(src.Alerts)...)
	}

	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func counter(subsystem, name, help string, fn func() uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) })
}

func gauge(subsystem, name, help string, labels prometheus.Labels, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, fn)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

func linkCollectors(src LinkSource) []prometheus.Collector {
	m := src.Metrics()

	return []prometheus.Collector{
		counter("link", "commands_total", "Commands sent to the device.", m.CommandSendCount.Load),
		counter("link", "commands_ok_total", "Commands that received a frame.", m.CommandOKCount.Load),
		counter("link", "no_response_total", "Commands that failed on every attempt.", m.NoResponseCount.Load),
		counter("link", "retries_total", "Second attempts of a command.", m.RetryCount.Load),
		counter("link", "connect_errors_total", "Failed dials.", m.ConnectErrCount.Load),
		counter("link", "drained_bytes_total", "Stale bytes drained before sending.", m.DrainedBytes.Load),
		counter("link", "discarded_bytes_total", "Junk bytes dropped in front of a frame.", m.DiscardedBytes.Load),
		gauge("link", "connected", "1 when the last exchange with the device connected.", nil,
			func() float64 { return boolValue(src.Connected()) }),
	}
}

func sequencerCollectors(src SequencerSource) []prometheus.Collector {
	m := src.Metrics()

	collectors := []prometheus.Collector{
		counter("sequencer", "cycles_total", "Sampling cycles that left IDLE.", m.CycleCount.Load),
		counter("sequencer", "cycles_completed_total", "Sampling cycles that ran to the end.", m.CompletedCount.Load),
		counter("sequencer", "cycles_aborted_total", "Sampling cycles cut short by an abort.", m.AbortedCount.Load),
		counter("sequencer", "cycles_failed_total", "Sampling cycles ended by a failure.", m.FailedCount.Load),
		counter("sequencer", "status_retries_total", "Status replies that were not idle.", m.StatusRetryCount.Load),
		counter("sequencer", "triggers_rejected_total", "Refused trigger requests.", m.RejectedTriggerCount.Load),
	}

	for _, st := range sequencer.States() {
		collectors = append(collectors, gauge("sequencer", "state", "1 for the current state of the sequencer.",
			prometheus.Labels{"state": string(st)},
			func() float64 { return boolValue(src.State() == st) }))
	}

	return collectors
}

var actuatorStatuses = []actuator.Status{
	actuator.Idle, actuator.Moving, actuator.Limit, actuator.Timeout, actuator.UserStop,
}

func actuatorCollectors(src ActuatorSource) []prometheus.Collector {
	m := src.Metrics()

	collectors := []prometheus.Collector{
		counter("actuator", "motions_total", "Started motions.", m.MotionCount.Load),
		counter("actuator", "limits_total", "Motions ended by a limit switch.", m.LimitCount.Load),
		counter("actuator", "timeouts_total", "Motions ended by the timeout.", m.TimeoutCount.Load),
		counter("actuator", "user_stops_total", "Motions ended by a stop request.", m.UserStopCount.Load),
	}

	for _, id := range actuator.IDs {
		for _, st := range actuatorStatuses {
			collectors = append(collectors, gauge("actuator", "status", "1 for the current status of an actuator.",
				prometheus.Labels{"actuator": id.String(), "status": string(st)},
				func() float64 {
					cur, _ := src.Status(id)
					return boolValue(cur == st)
				}))
		}
	}

	return collectors
}

func alertCollectors(src AlertSource) []prometheus.Collector {
	m := src.Metrics()

	return []prometheus.Collector{
		counter("alert", "played_total", "Alert patterns played.", m.PlayedCount.Load),
		counter("alert", "dropped_total", "Alerts dropped as unknown, rate limited or late.", m.DroppedCount.Load),
		counter("alert", "failed_total", "Alerts the player failed on.", m.FailedCount.Load),
	}
}

// InstrumentedLink wraps a gasera.Link and observes the latency of every
// exchange per opcode and outcome.
type InstrumentedLink struct {
	next     gasera.Link
	duration *prometheus.HistogramVec
}

var _ gasera.Link = (*InstrumentedLink)(nil)

// NewInstrumentedLink wraps next and registers its histogram on reg.
func NewInstrumentedLink(reg prometheus.Registerer, next gasera.Link) (*InstrumentedLink, error) {
	if next == nil {
		return nil, errors.New("link is nil")
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "exchange_duration_seconds",
		Help:      "Duration of device exchanges, retries included.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"opcode", "outcome"})

	if err := reg.Register(duration); err != nil {
		return nil, err
	}

	return &InstrumentedLink{next: next, duration: duration}, nil
}

// SendCommand implements gasera.Link.
func (l *InstrumentedLink) SendCommand(ctx context.Context, cmd string) (string, error) {
	start := time.Now()
	reply, err := l.next.SendCommand(ctx, cmd)

	outcome := "ok"
	if err != nil {
		outcome = "no_response"
	}
	l.duration.WithLabelValues(opcode(cmd), outcome).Observe(time.Since(start).Seconds())

	return reply, err
}

// IsReachable implements gasera.Link.
func (l *InstrumentedLink) IsReachable(ctx context.Context, timeout time.Duration) bool {
	return l.next.IsReachable(ctx, timeout)
}

func opcode(cmd string) string {
	op, _, err := frame.Decode(cmd)
	if err != nil || op == "" {
		return "unknown"
	}

	return op
}
