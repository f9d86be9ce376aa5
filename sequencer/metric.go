package sequencer

import "sync/atomic"

// Metrics counts sampling cycles.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// CycleCount indicates the number of cycles that left IDLE.
	CycleCount atomic.Uint64
	// CompletedCount indicates the number of cycles that ran to the end.
	CompletedCount atomic.Uint64
	// AbortedCount indicates the number of cycles cut short by an abort.
	AbortedCount atomic.Uint64
	// FailedCount indicates the number of cycles ended by a device or actuator failure.
	FailedCount atomic.Uint64
	// StatusRetryCount indicates the number of non-idle status replies.
	StatusRetryCount atomic.Uint64
	// RejectedTriggerCount indicates the number of refused triggers.
	RejectedTriggerCount atomic.Uint64
}
