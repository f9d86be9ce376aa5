package actuator

import "sync/atomic"

// Metrics counts motions and their outcomes.
type Metrics struct {
	MotionCount   atomic.Uint64
	LimitCount    atomic.Uint64
	TimeoutCount  atomic.Uint64
	UserStopCount atomic.Uint64
}

func (m *Metrics) recordOutcome(s Status) {
	switch s {
	case Limit:
		m.LimitCount.Add(1)
	case Timeout:
		m.TimeoutCount.Add(1)
	case UserStop:
		m.UserStopCount.Add(1)
	}
}
