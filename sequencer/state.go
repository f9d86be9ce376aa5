package sequencer

import (
	"strings"

	"github.com/arloliu/go-gasera/internal/util"
)

// State is a step of the sampling cycle.
type State string

const (
	Idle             State = "IDLE"
	CheckStatus      State = "CHECK_STATUS"
	MovingToProbe    State = "MOVING_TO_PROBE"
	StartMeasurement State = "START_MEASUREMENT"
	Measuring        State = "GASERA_MEASURES"
	StopMeasurement  State = "STOP_MEASUREMENT"
	MovingHome       State = "MOVING_HOME"
	Cleanup          State = "CLEANUP"
)

var states = []State{
	Idle, CheckStatus, MovingToProbe, StartMeasurement,
	Measuring, StopMeasurement, MovingHome, Cleanup,
}

// States returns every state in cycle order.
func States() []State {
	return util.CloneSlice(states)
}

// Index returns the position of s in cycle order, -1 for an unknown state.
func (s State) Index() int {
	for i, st := range states {
		if st == s {
			return i
		}
	}

	return -1
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool { return s.Index() >= 0 }

// Display returns the state name with underscores replaced by spaces.
func (s State) Display() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func (s State) String() string { return string(s) }
