// Package task manages the background goroutines of the sampler: the sequencer
// tick loop, actuator monitors and the alert dispatcher.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-gasera/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Func is the body of a looping task. It returns false to stop the goroutine.
type Func func() bool

// CtxFunc is the body of a one-shot task. It should return once ctx is done.
type CtxFunc func(ctx context.Context)

// Manager manages the lifecycle of goroutines started through it.
//
// Every goroutine observes the manager's context, Stop cancels it and Wait
// blocks until all goroutines returned. Panics inside task bodies are recovered
// and logged, a misbehaving task never takes the process down.
//
// Example Usage:
//
//	mgr := task.NewManager(ctx, logger)
//
//	_ = mgr.StartInterval("tick", func() bool {
//	    seq.Tick()
//	    return true
//	}, 500*time.Millisecond, false)
//
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	pctx    context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers *xsync.MapOf[string, *time.Ticker]
	mu      sync.RWMutex // protect ctx and cancel
	taskMu  sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a Manager whose goroutines stop when ctx is done.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &Manager{
		pctx:    ctx,
		logger:  l,
		tickers: xsync.NewMapOf[string, *time.Ticker](),
	}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by the running tasks.
func (mgr *Manager) Context() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Start runs taskFunc in a loop on a new goroutine until it returns false or
// the manager stops.
func (mgr *Manager) Start(name string, taskFunc Func) error {
	mgr.logger.Debug("start task", "name", name)

	return mgr.spawn(name, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if !mgr.callWithRecoverBool(name, taskFunc) {
					return
				}
			}
		}
	})
}

// Go runs taskFunc once on a new goroutine with the manager's context.
func (mgr *Manager) Go(name string, taskFunc CtxFunc) error {
	return mgr.spawn(name, func(ctx context.Context) {
		mgr.callWithRecover(name, func() { taskFunc(ctx) })
	})
}

// StartInterval runs taskFunc every interval until it returns false, the
// interval is stopped or the manager stops. With runNow the first run happens
// synchronously before StartInterval returns.
func (mgr *Manager) StartInterval(name string, taskFunc Func, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "run_now", runNow)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		mgr.tickers.Compute(name, func(cur *time.Ticker, loaded bool) (*time.Ticker, bool) {
			// a later interval task with the same name may own the slot already
			return cur, !loaded || cur == ticker
		})
	}

	if runNow && !mgr.callWithRecoverBool(name, taskFunc) {
		cleanup()
		return nil
	}

	err := mgr.spawn(name, func(ctx context.Context) {
		defer cleanup()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecoverBool(name, taskFunc) {
					return
				}
			}
		}
	})
	if err != nil {
		cleanup()
	}

	return err
}

// StopInterval stops the interval task name. Its goroutine exits once the
// manager stops.
func (mgr *Manager) StopInterval(name string) error {
	ticker, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("interval task %s not found", name)
	}
	ticker.Stop()

	return nil
}

// Stop signals all goroutines to terminate.
func (mgr *Manager) Stop() {
	mgr.tickers.Range(func(_ string, ticker *time.Ticker) bool {
		ticker.Stop()
		return true
	})

	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait blocks until all goroutines terminated, then re-arms the manager so it
// can start new tasks.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// Count returns the number of running goroutines.
func (mgr *Manager) Count() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) spawn(name string, body CtxFunc) error {
	ctx := mgr.Context()
	if ctx.Err() != nil {
		return fmt.Errorf("task manager already stopped, can't start %s", name)
	}

	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.Count())
		}()

		body(ctx)
	}()

	return nil
}

func (mgr *Manager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
		}
	}()

	fn()
}

func (mgr *Manager) callWithRecoverBool(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			ok = true // keep looping after a recovered panic
		}
	}()

	return fn()
}
