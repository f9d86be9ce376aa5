// Package samplerintegration contains end-to-end tests that run the sampling
// sequencer against the simulated analyzer over real TCP.
//
// Every test wires the production components (link client, device controller,
// actuator coordinator and sequencer) and only replaces the board I/O with an
// in-memory pin bank whose limit switches follow the motor outputs.
package samplerintegration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/internal/simulator"
	"github.com/arloliu/go-gasera/link"
	"github.com/arloliu/go-gasera/logger"
	"github.com/arloliu/go-gasera/sequencer"
	"github.com/stretchr/testify/require"
)

// travelTime is how long a probe needs to reach its end position.
const travelTime = 40 * time.Millisecond

var testPins = [actuator.NumActuators]actuator.Pins{
	{CW: "M0CW", CCW: "M0CCW", Limit: "M0LIM", LimitBlocks: actuator.None},
	{CW: "M1CW", CCW: "M1CCW", Limit: "M1LIM", LimitBlocks: actuator.None},
}

type rig struct {
	sim      *simulator.Simulator
	client   *link.Client
	device   *gasera.Device
	io       *gpio.Memory
	coord    *actuator.Coordinator
	seq      *sequencer.Sequencer
	recorder *alert.Recorder
}

// probeModel drives the limit inputs: a raised output releases the limit
// switch and closes it again once the probe traveled.
type probeModel struct {
	io     *gpio.Memory
	mu     sync.Mutex
	timers []*time.Timer
}

func (p *probeModel) onWrite(pin string, level gpio.Level) {
	if level != gpio.High {
		return
	}

	for _, pins := range testPins {
		if pin != pins.CW && pin != pins.CCW {
			continue
		}

		limit := pins.Limit
		p.io.Set(limit, gpio.High)

		p.mu.Lock()
		p.timers = append(p.timers, time.AfterFunc(travelTime, func() { p.io.Set(limit, gpio.Low) }))
		p.mu.Unlock()
	}
}

func (p *probeModel) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.timers {
		t.Stop()
	}
}

func testSequencerConfig() sequencer.Config {
	cfg := sequencer.DefaultConfig()
	cfg.TickPeriod = 10 * time.Millisecond
	cfg.QueryDelay = 0
	cfg.StatusRetryDelay = 20 * time.Millisecond
	cfg.StartDelay = 0
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.AbortWait = 0
	cfg.MeasurementDuration = 50 * time.Millisecond
	cfg.Logger = logger.NewNop()

	return cfg
}

// newRig starts a simulator and the controller stack around it. mutate may
// adjust the sequencer configuration.
func newRig(t *testing.T, mutate func(*sequencer.Config), simOpts ...simulator.Option) *rig {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	r := &rig{recorder: &alert.Recorder{}}

	r.sim = simulator.New(append([]simulator.Option{simulator.WithLogger(logger.NewNop())}, simOpts...)...)
	require.NoError(r.sim.Start(ctx))
	t.Cleanup(r.sim.Close)

	host, port := r.sim.HostPort()
	linkCfg, err := link.NewConnectionConfig(host, port,
		link.WithIOTimeout(300*time.Millisecond),
		link.WithReadHeadroom(0),
		link.WithReadSliceTimeout(20*time.Millisecond),
		link.WithMaxJitter(0),
		link.WithDrainBudget(0),
		link.WithProbeTimeout(200*time.Millisecond),
		link.WithLogger(logger.NewNop()),
	)
	require.NoError(err)

	r.client, err = link.NewClient(linkCfg)
	require.NoError(err)
	r.device = gasera.NewDevice(r.client, gasera.WithDeviceLogger(logger.NewNop()))

	r.io = gpio.NewMemory(gpio.High)
	model := &probeModel{io: r.io}
	r.io.OnWrite(model.onWrite)
	t.Cleanup(model.stop)

	r.coord, err = actuator.NewCoordinator(ctx, r.io, actuator.Config{
		Pins:         testPins,
		Timeout:      2 * time.Second,
		GraceDelay:   10 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Debounce:     5 * time.Millisecond,
		Logger:       logger.NewNop(),
	})
	require.NoError(err)
	t.Cleanup(func() { _ = r.coord.Close() })

	cfg := testSequencerConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	r.seq, err = sequencer.New(ctx, r.device, r.coord, cfg, sequencer.WithNotifier(r.recorder))
	require.NoError(err)
	t.Cleanup(r.seq.Close)
	require.NoError(r.seq.Start())

	return r
}

func (r *rig) trigger(t *testing.T) {
	t.Helper()

	msg := r.seq.Trigger(context.Background(), "API")
	require.Equal(t, "[INFO] Starting measurement sequence (source: API)", msg)
}

// waitIdle waits until the sequencer finished n cycles of any outcome and is back in IDLE.
func (r *rig) waitIdle(t *testing.T, n uint64) {
	t.Helper()

	require.Eventually(t, func() bool {
		m := r.seq.Metrics()
		done := m.CompletedCount.Load() + m.AbortedCount.Load() + m.FailedCount.Load()

		return done == n && r.seq.State() == sequencer.Idle
	}, 10*time.Second, 10*time.Millisecond)
}

func (r *rig) waitState(t *testing.T, state sequencer.State) {
	t.Helper()

	require.Eventually(t, func() bool { return r.seq.State() == state }, 10*time.Second, 5*time.Millisecond)
}

// subsequence reports whether want appears in got in order, not necessarily adjacent.
func subsequence(got, want []string) bool {
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}

	return i == len(want)
}
