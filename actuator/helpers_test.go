package actuator

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/logger"
	"github.com/stretchr/testify/require"
)

var testPins = [NumActuators]Pins{
	{CW: "M0CW", CCW: "M0CCW", Limit: "L0", LimitBlocks: CW},
	{CW: "M1CW", CCW: "M1CCW", Limit: "L1", LimitBlocks: CCW},
}

func testConfig() Config {
	return Config{
		Pins:         testPins,
		Timeout:      2 * time.Second,
		GraceDelay:   10 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Debounce:     0,
		Logger:       logger.NewNop(),
	}
}

func newTestCoordinator(t *testing.T, mutate func(*Config)) (*Coordinator, *gpio.Memory) {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mem := gpio.NewMemory(gpio.High)
	coord, err := NewCoordinator(context.Background(), mem, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coord.Close() })

	mem.ResetHistory()

	return coord, mem
}

func requireOutputsLow(t *testing.T, mem *gpio.Memory, id ID) {
	t.Helper()

	require.Equal(t, gpio.Low, mem.Level(testPins[id].CW), "%s cw output", id)
	require.Equal(t, gpio.Low, mem.Level(testPins[id].CCW), "%s ccw output", id)
}

func requireStatus(t *testing.T, coord *Coordinator, id ID, want Status) {
	t.Helper()

	require.Eventually(t, func() bool {
		s, _ := coord.Status(id)
		return s == want
	}, 2*time.Second, 5*time.Millisecond, "%s never reached %s", id, want)
}
