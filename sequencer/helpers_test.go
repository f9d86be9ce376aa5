package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/actuator"
	"github.com/arloliu/go-gasera/alert"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/logger"
	"github.com/stretchr/testify/require"
)

var errNoReply = errors.New("no reply")

var (
	idleStatus = gasera.DeviceStatus{Code: gasera.StatusIdle, Label: gasera.StatusLabel(gasera.StatusIdle)}
	busyStatus = gasera.DeviceStatus{Code: gasera.StatusMeasuring, Label: gasera.StatusLabel(gasera.StatusMeasuring)}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeDevice struct {
	mu          sync.Mutex
	offline     bool
	statuses    []gasera.DeviceStatus // consumed in order, the last one repeats
	statusErr   error
	startResult gasera.Result
	startErr    error
	stopResult  gasera.Result
	stopErr     error
	onStatus    func()
	calls       []string
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, call)
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.calls))
	copy(out, d.calls)

	return out
}

func (d *fakeDevice) setOffline(offline bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.offline = offline
}

func (d *fakeDevice) CheckConnection(context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return !d.offline
}

func (d *fakeDevice) Status(context.Context) (gasera.DeviceStatus, error) {
	d.record("status")

	d.mu.Lock()
	hook := d.onStatus
	d.mu.Unlock()
	if hook != nil {
		hook()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.statusErr != nil {
		return gasera.DeviceStatus{}, d.statusErr
	}
	if len(d.statuses) == 0 {
		return idleStatus, nil
	}

	st := d.statuses[0]
	if len(d.statuses) > 1 {
		d.statuses = d.statuses[1:]
	}

	return st, nil
}

func (d *fakeDevice) StartMeasurement(_ context.Context, taskID string) (gasera.Result, error) {
	d.record("start " + taskID)

	d.mu.Lock()
	defer d.mu.Unlock()

	res := d.startResult
	res.Command = gasera.OpStartByID

	return res, d.startErr
}

func (d *fakeDevice) StopMeasurement(context.Context) (gasera.Result, error) {
	d.record("stop")

	d.mu.Lock()
	defer d.mu.Unlock()

	res := d.stopResult
	res.Command = gasera.OpStop

	return res, d.stopErr
}

type fakeMotors struct {
	mu         sync.Mutex
	done       bool
	autoArrive bool
	startErr   error
	calls      []string
}

var _ Actuators = (*fakeMotors)(nil)

func (m *fakeMotors) StartBoth(dir actuator.Direction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "start "+string(dir))
	if m.startErr != nil {
		return m.startErr
	}
	m.done = m.autoArrive

	return nil
}

func (m *fakeMotors) StopBoth() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "stop")
	m.done = true

	return nil
}

func (m *fakeMotors) AreBothDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.done
}

func (m *fakeMotors) arrive() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.done = true
}

func (m *fakeMotors) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.calls))
	copy(out, m.calls)

	return out
}

type fixture struct {
	seq      *Sequencer
	device   *fakeDevice
	motors   *fakeMotors
	clock    *fakeClock
	notifier *alert.Recorder
}

func testConfig(clock *fakeClock) Config {
	cfg := DefaultConfig()
	cfg.QueryDelay = 100 * time.Millisecond
	cfg.StatusRetryDelay = time.Second
	cfg.StartDelay = time.Second
	cfg.CheckInterval = 5 * time.Second
	cfg.MeasurementDuration = 10 * time.Second
	cfg.AbortWait = time.Second
	cfg.TriggerDebounce = 0
	cfg.Logger = logger.NewNop()
	if clock != nil {
		cfg.Clock = clock
	}

	return cfg
}

func newFixture(t *testing.T, mutate func(*Config), opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		device:   &fakeDevice{},
		motors:   &fakeMotors{done: true},
		clock:    newFakeClock(),
		notifier: &alert.Recorder{},
	}

	cfg := testConfig(f.clock)
	if mutate != nil {
		mutate(&cfg)
	}

	opts = append([]Option{WithNotifier(f.notifier)}, opts...)
	seq, err := New(context.Background(), f.device, f.motors, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(seq.Close)
	f.seq = seq

	return f
}

func (f *fixture) tick() { f.seq.Tick(context.Background()) }

func (f *fixture) trigger() string { return f.seq.Trigger(context.Background(), "test") }

func (f *fixture) requireState(t *testing.T, want State) {
	t.Helper()
	require.Equal(t, want, f.seq.State())
}

// driveTo advances the fixture along the normal cycle until it reaches state.
func (f *fixture) driveTo(t *testing.T, state State) {
	t.Helper()

	for i := 0; i < 20 && f.seq.State() != state; i++ {
		switch f.seq.State() {
		case Idle:
			f.trigger()
		case CheckStatus:
			f.clock.Advance(100 * time.Millisecond)
		case MovingToProbe, MovingHome:
			f.motors.arrive()
		case StartMeasurement, StopMeasurement:
			f.clock.Advance(time.Second)
		case Measuring:
			f.clock.Advance(5 * time.Second)
		}
		f.tick()
	}
	f.requireState(t, state)
}
