package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-gasera/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestManager_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockLogger := logger.NewMockLogger().AllowDebug()

	mgr := NewManager(ctx, mockLogger)

	var runs atomic.Int32
	require.NoError(t, mgr.Start("loop", func() bool {
		runs.Add(1)
		time.Sleep(time.Millisecond)
		return true
	}))

	require.Eventually(t, func() bool { return runs.Load() > 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, mgr.Count())

	// canceling the parent context stops the task
	cancel()
	require.Eventually(t, func() bool { return mgr.Count() == 0 }, time.Second, 5*time.Millisecond)

	mockLogger.AssertNotCalled(t, "Error", mock.Anything, mock.Anything)
}

func TestManager_StartStopsOnFalse(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	var runs atomic.Int32
	require.NoError(t, mgr.Start("three", func() bool {
		return runs.Add(1) < 3
	}))

	mgr.Wait()
	assert.EqualValues(t, 3, runs.Load())
	assert.Equal(t, 0, mgr.Count())
}

func TestManager_Go(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	done := make(chan struct{})
	require.NoError(t, mgr.Go("once", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	}))
	assert.Equal(t, 1, mgr.Count())

	mgr.Stop()
	mgr.Wait()

	select {
	case <-done:
	default:
		t.Fatal("task did not observe the stop")
	}
	assert.Equal(t, 0, mgr.Count())

	// the manager is re-armed after Wait
	require.NoError(t, mgr.Go("again", func(context.Context) {}))
	mgr.Wait()
}

func TestManager_StartAfterStop(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())
	mgr.Stop()

	require.Error(t, mgr.Go("late", func(context.Context) {}))
	require.Error(t, mgr.StartInterval("late", func() bool { return true }, time.Millisecond, false))
}

func TestManager_StartInterval(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	var runs atomic.Int32
	require.NoError(t, mgr.StartInterval("interval", func() bool {
		runs.Add(1)
		return true
	}, 10*time.Millisecond, true))
	assert.EqualValues(t, 1, runs.Load(), "runNow executes synchronously")

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.Error(t, mgr.StartInterval("interval", func() bool { return true }, time.Second, false))
	require.Error(t, mgr.StartInterval("bad", func() bool { return true }, 0, false))

	require.NoError(t, mgr.StopInterval("interval"))
	require.Error(t, mgr.StopInterval("interval"))

	mgr.Stop()
	mgr.Wait()
	assert.Equal(t, 0, mgr.Count())
}

func TestManager_StartIntervalRunNowFalse(t *testing.T) {
	mgr := NewManager(context.Background(), logger.NewNop())

	require.NoError(t, mgr.StartInterval("stop-now", func() bool { return false }, time.Millisecond, true))
	assert.Equal(t, 0, mgr.Count())

	// the name is free again
	require.NoError(t, mgr.StartInterval("stop-now", func() bool { return false }, time.Millisecond, false))
	mgr.Wait()
}

func TestManager_RecoversPanics(t *testing.T) {
	mockLogger := logger.NewMockLogger().AllowDebug()
	mockLogger.On("Error", "panic in task", mock.Anything).Return()

	mgr := NewManager(context.Background(), mockLogger)

	var runs atomic.Int32
	require.NoError(t, mgr.StartInterval("panicky", func() bool {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		return false
	}, 5*time.Millisecond, false))

	require.NoError(t, mgr.Go("panic-once", func(context.Context) {
		panic("boom")
	}))

	mgr.Wait()
	assert.EqualValues(t, 2, runs.Load(), "the interval keeps running after a recovered panic")
	mockLogger.AssertNumberOfCalls(t, "Error", 2)
}
