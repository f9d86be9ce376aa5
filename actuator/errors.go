package actuator

import "errors"

var (
	// ErrInvalidActuator is returned for an actuator ID outside [0, NumActuators).
	ErrInvalidActuator = errors.New("invalid actuator")
	// ErrInvalidDirection is returned for a direction other than cw or ccw.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrClosed is returned by operations on a closed Coordinator.
	ErrClosed = errors.New("actuator coordinator closed")
)
