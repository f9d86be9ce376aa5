package link

import (
	"sync/atomic"
)

// ConnectionMetrics contains atomic metrics for a link.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnectionMetrics struct {
	// CommandSendCount indicates the number of SendCommand calls.
	CommandSendCount atomic.Uint64
	// CommandOKCount indicates the number of commands that received a frame.
	CommandOKCount atomic.Uint64
	// NoResponseCount indicates the number of commands that failed on every attempt.
	NoResponseCount atomic.Uint64
	// RetryCount indicates the number of second attempts.
	RetryCount atomic.Uint64
	// ConnectErrCount indicates the number of failed dials.
	ConnectErrCount atomic.Uint64
	// DrainedBytes indicates the number of stale bytes drained before sending.
	DrainedBytes atomic.Uint64
	// DiscardedBytes indicates the number of junk bytes dropped in front of a frame.
	DiscardedBytes atomic.Uint64
}

func (m *ConnectionMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *ConnectionMetrics) incCommandOKCount() {
	m.CommandOKCount.Add(1)
}

func (m *ConnectionMetrics) incNoResponseCount() {
	m.NoResponseCount.Add(1)
}

func (m *ConnectionMetrics) incRetryCount() {
	m.RetryCount.Add(1)
}

func (m *ConnectionMetrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *ConnectionMetrics) addDrainedBytes(n int) {
	m.DrainedBytes.Add(uint64(n))
}

func (m *ConnectionMetrics) addDiscardedBytes(n int) {
	m.DiscardedBytes.Add(uint64(n))
}
