package gpio

import (
	"sync"

	"github.com/arloliu/go-gasera/internal/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// WriteRecord is one output change observed by Memory.
type WriteRecord struct {
	Pin   string
	Level Level
}

// WriteHook is called after every successful write to a Memory pin.
type WriteHook func(pin string, level Level)

// Memory is a DigitalIO that keeps pin levels in memory.
//
// Pins that were never written read as the idle level given to NewMemory.
// Inputs are driven with Set, which does not appear in the write history.
type Memory struct {
	idle   Level
	levels *xsync.MapOf[string, Level]
	faults *xsync.MapOf[string, error]

	mu      sync.Mutex
	history []WriteRecord
	hooks   []WriteHook
}

var _ DigitalIO = (*Memory)(nil)

// NewMemory creates a Memory whose unset pins read as idle.
func NewMemory(idle Level) *Memory {
	return &Memory{
		idle:   idle,
		levels: xsync.NewMapOf[string, Level](),
		faults: xsync.NewMapOf[string, error](),
	}
}

// Read implements DigitalIO.
func (m *Memory) Read(pin string) (Level, error) {
	if pin == "" {
		return Low, &PinError{Op: "read", Pin: pin, Err: ErrEmptyPin}
	}
	if err, ok := m.faults.Load(pin); ok {
		return Low, &PinError{Op: "read", Pin: pin, Err: err}
	}

	if level, ok := m.levels.Load(pin); ok {
		return level, nil
	}

	return m.idle, nil
}

// Write implements DigitalIO.
func (m *Memory) Write(pin string, level Level) error {
	if pin == "" {
		return &PinError{Op: "write", Pin: pin, Err: ErrEmptyPin}
	}
	if err, ok := m.faults.Load(pin); ok {
		return &PinError{Op: "write", Pin: pin, Err: err}
	}

	m.levels.Store(pin, level)

	m.mu.Lock()
	m.history = append(m.history, WriteRecord{Pin: pin, Level: level})
	hooks := m.hooks
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(pin, level)
	}

	return nil
}

// Set drives an input pin, as the outside world would.
func (m *Memory) Set(pin string, level Level) {
	m.levels.Store(pin, level)
}

// Level returns the current level of pin without fault injection.
func (m *Memory) Level(pin string) Level {
	if level, ok := m.levels.Load(pin); ok {
		return level
	}

	return m.idle
}

// Fault makes every access to pin fail with err wrapped in a PinError.
// A nil err clears the fault.
func (m *Memory) Fault(pin string, err error) {
	if err == nil {
		m.faults.Delete(pin)
		return
	}
	m.faults.Store(pin, err)
}

// OnWrite registers hook to run after each successful write. Hooks run on the
// writer's goroutine and must not write to the same Memory synchronously.
func (m *Memory) OnWrite(hook WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook)
}

// History returns a copy of all writes in order.
func (m *Memory) History() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return util.CloneSlice(m.history)
}

// ResetHistory forgets recorded writes.
func (m *Memory) ResetHistory() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}
