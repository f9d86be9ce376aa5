package actuator

import "fmt"

// ID identifies an actuator.
type ID int

const (
	Actuator0 ID = iota
	Actuator1

	// NumActuators is the number of actuators of the sampler.
	NumActuators = 2
)

// IDs lists every actuator in start order.
var IDs = [NumActuators]ID{Actuator0, Actuator1}

func (id ID) valid() bool { return id >= 0 && int(id) < NumActuators }

func (id ID) String() string { return fmt.Sprintf("actuator%d", int(id)) }

// Direction is the commanded direction of a motion.
type Direction string

const (
	None Direction = "none"
	CW   Direction = "cw"
	CCW  Direction = "ccw"
)

// ParseDirection converts "cw"/"ccw" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case CW, CCW:
		return Direction(s), nil
	default:
		return None, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Status is the motion state of an actuator.
type Status string

const (
	Idle     Status = "idle"
	Moving   Status = "moving"
	Limit    Status = "limit"
	Timeout  Status = "timeout"
	UserStop Status = "user_stop"
)

// Done reports whether s is a resting state: idle, limit, timeout or user_stop.
func (s Status) Done() bool {
	switch s {
	case Idle, Limit, Timeout, UserStop:
		return true
	default:
		return false
	}
}

// Pins names the outputs and the limit input of one actuator.
type Pins struct {
	CW    string `yaml:"cw"`
	CCW   string `yaml:"ccw"`
	Limit string `yaml:"limit"`
	// LimitBlocks is the direction an already active limit switch refuses to
	// start in. None disables the check.
	LimitBlocks Direction `yaml:"limit_blocks"`
}

func (p Pins) output(dir Direction) string {
	if dir == CCW {
		return p.CCW
	}

	return p.CW
}

// State is a snapshot of one actuator.
type State struct {
	ID        ID
	Status    Status
	Direction Direction
}
