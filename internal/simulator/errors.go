package simulator

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running simulator.
	ErrAlreadyStarted = errors.New("simulator already started")
	// ErrUnknownFault is returned by ParseFaultKind for an unknown name.
	ErrUnknownFault = errors.New("unknown fault kind")
)
