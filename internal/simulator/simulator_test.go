package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/frame"
	"github.com/arloliu/go-gasera/gasera"
	"github.com/arloliu/go-gasera/link"
	"github.com/arloliu/go-gasera/logger"
	"github.com/stretchr/testify/require"
)

func startSimulator(t *testing.T, opts ...Option) *Simulator {
	t.Helper()

	sim := New(append([]Option{WithLogger(logger.NewNop())}, opts...)...)
	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("startSimulator: %v", err)
	}
	t.Cleanup(sim.Close)

	return sim
}

func newClient(t *testing.T, sim *Simulator) *link.Client {
	t.Helper()

	host, port := sim.HostPort()
	cfg, err := link.NewConnectionConfig(host, port,
		link.WithIOTimeout(300*time.Millisecond),
		link.WithReadHeadroom(0),
		link.WithReadSliceTimeout(20*time.Millisecond),
		link.WithMaxJitter(0),
		link.WithDrainBudget(0),
		link.WithLogger(logger.NewNop()),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}

	client, err := link.NewClient(cfg)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}

	return client
}

func newDevice(t *testing.T, sim *Simulator) *gasera.Device {
	t.Helper()

	return gasera.NewDevice(newClient(t, sim), gasera.WithDeviceLogger(logger.NewNop()))
}

func TestSimulator_MeasurementCycle(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t)
	dev := newDevice(t, sim)

	require.True(dev.CheckConnection(ctx))

	st, err := dev.Status(ctx)
	require.NoError(err)
	require.True(st.IsIdle())

	res, err := dev.StartMeasurement(ctx, gasera.TaskDefault)
	require.NoError(err)
	require.False(res.Error)

	st, err = dev.Status(ctx)
	require.NoError(err)
	require.Equal(gasera.StatusMeasuring, st.Code)

	// a second start is refused while measuring
	res, err = dev.StartMeasurement(ctx, gasera.TaskDefault)
	require.NoError(err)
	require.True(res.Error)

	res, err = dev.StopMeasurement(ctx)
	require.NoError(err)
	require.False(res.Error)
	require.Equal(gasera.StatusIdle, sim.Status())
	require.Equal(1, sim.Iteration())

	require.Equal([]string{"ASTS", "STAM", "ASTS", "STAM", "STPM"}, sim.ReceivedOps())
}

func TestSimulator_MeasurementCompletes(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t, WithMeasurementTime(50*time.Millisecond))
	dev := newDevice(t, sim)

	res, err := dev.StartMeasurement(ctx, gasera.TaskFlush)
	require.NoError(err)
	require.False(res.Error)

	require.Eventually(func() bool {
		st, err := dev.Status(ctx)
		return err == nil && st.IsIdle()
	}, 2*time.Second, 20*time.Millisecond)

	conc, err := dev.Concentrations(ctx)
	require.NoError(err)
	require.False(conc.Error)
	require.Len(conc.Records, 3)
	require.Equal("74-82-8", conc.Records[0].CAS)

	iter, err := dev.IterationCount(ctx)
	require.NoError(err)
	require.Equal(1, iter.Iteration)
}

func TestSimulator_UnknownTask(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t)
	client := newClient(t, sim)

	reply, err := client.SendCommand(ctx, gasera.StartMeasurementByID("99"))
	require.NoError(err)
	require.Equal("STAM 1", frame.Body(reply))
	require.Equal(gasera.StatusIdle, sim.Status())
}

func TestSimulator_StartByName(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t)
	dev := newDevice(t, sim)

	res, err := dev.StartMeasurementByName(ctx, "Calibration Task")
	require.NoError(err)
	require.False(res.Error)
	require.Equal(gasera.StatusMeasuring, sim.Status())
}

func TestSimulator_QueryReplies(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t, WithActiveErrors("8001", "8002"), WithParameter("CellTemp", "50"))
	dev := newDevice(t, sim)

	errs, err := dev.ActiveErrors(ctx)
	require.NoError(err)
	require.Equal([]string{"8001", "8002"}, errs.Codes)

	tasks, err := dev.Tasks(ctx)
	require.NoError(err)
	require.Len(tasks.Tasks, len(gasera.KnownTasks()))

	param, err := dev.Parameter(ctx, "CellTemp")
	require.NoError(err)
	require.Equal("50", param.Value)

	param, err = dev.Parameter(ctx, "Missing")
	require.NoError(err)
	require.True(param.Error)

	netCfg, err := dev.NetworkSettings(ctx)
	require.NoError(err)
	require.False(netCfg.Error)
	require.Equal("192.168.0.100", netCfg.IP)

	sys, err := dev.SystemParameters(ctx)
	require.NoError(err)
	require.Len(sys.Params, 2)

	sampler, err := dev.SamplerParameters(ctx)
	require.NoError(err)
	require.True(sampler.Connected)
	require.Len(sampler.Inlets, 2)

	selfTest, err := dev.SelfTestResult(ctx)
	require.NoError(err)
	require.Equal("Passed", selfTest.Label)

	res, err := dev.SetOnlineMode(ctx, true)
	require.NoError(err)
	require.False(res.Error)
	require.True(sim.OnlineMode())

	reply, err := newClient(t, sim).SendCommand(ctx, gasera.Command("ZZZZ"))
	require.NoError(err)
	require.Equal("ZZZZ 1", frame.Body(reply))
}

func TestSimulator_Faults(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{name: "garbage", fault: Fault{Kind: FaultGarbage}},
		{name: "split", fault: Fault{Kind: FaultSplit}},
		{name: "delay", fault: Fault{Kind: FaultDelay, Delay: 50 * time.Millisecond}},
		{name: "close", fault: Fault{Kind: FaultClose}},
		{name: "drop", fault: Fault{Kind: FaultDrop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			sim := startSimulator(t)
			dev := newDevice(t, sim)

			sim.InjectFault(tt.fault)
			require.Equal(1, sim.PendingFaults())

			st, err := dev.Status(context.Background())
			require.NoError(err)
			require.True(st.IsIdle())
			require.Zero(sim.PendingFaults())
		})
	}
}

func TestSimulator_FaultsExhaustRetries(t *testing.T) {
	require := require.New(t)

	sim := startSimulator(t)
	dev := newDevice(t, sim)

	sim.InjectFault(Fault{Kind: FaultClose})
	sim.InjectFault(Fault{Kind: FaultClose})

	_, err := dev.Status(context.Background())
	require.ErrorIs(err, gasera.ErrNoResponse)
	require.Len(sim.Received(), 2)
}

func TestSimulator_ErrorFlagFault(t *testing.T) {
	require := require.New(t)

	sim := startSimulator(t)
	dev := newDevice(t, sim)

	sim.InjectFault(Fault{Kind: FaultErrorFlag})

	st, err := dev.Status(context.Background())
	require.NoError(err)
	require.True(st.Error)
	require.Equal(gasera.StatusUnknown, st.Code)
}

func TestSimulator_FaultForOp(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t)
	dev := newDevice(t, sim)

	sim.InjectFault(Fault{Kind: FaultErrorFlag, Op: gasera.OpStartByID})

	st, err := dev.Status(ctx)
	require.NoError(err)
	require.False(st.Error)
	require.Equal(1, sim.PendingFaults())

	res, err := dev.StartMeasurement(ctx, gasera.TaskDefault)
	require.NoError(err)
	require.True(res.Error)
	require.Zero(sim.PendingFaults())
	require.Equal(gasera.StatusIdle, sim.Status())
}

func TestSimulator_Restart(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sim := startSimulator(t)
	dev := newDevice(t, sim)
	addr := sim.Addr()

	require.ErrorIs(sim.Start(ctx), ErrAlreadyStarted)

	sim.Close()
	require.False(dev.CheckConnection(ctx))

	sim.SetStatus(gasera.StatusMeasuring)
	require.NoError(sim.Start(ctx))
	require.Equal(addr, sim.Addr())

	st, err := dev.Status(ctx)
	require.NoError(err)
	require.Equal(gasera.StatusMeasuring, st.Code)
}

func TestParseFaultKind(t *testing.T) {
	require := require.New(t)

	for _, k := range []FaultKind{FaultNone, FaultDrop, FaultDelay, FaultGarbage, FaultClose, FaultErrorFlag, FaultSplit} {
		got, err := ParseFaultKind(k.String())
		require.NoError(err)
		require.Equal(k, got)
	}

	_, err := ParseFaultKind("meltdown")
	require.ErrorIs(err, ErrUnknownFault)
	require.Equal("fault(42)", FaultKind(42).String())
}
