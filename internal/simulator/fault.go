package simulator

import (
	"fmt"
	"time"
)

// FaultKind selects how an exchange misbehaves.
type FaultKind int

const (
	// FaultNone answers normally.
	FaultNone FaultKind = iota
	// FaultDrop reads the command and never answers. The connection is closed
	// once the client gives up.
	FaultDrop
	// FaultDelay answers after Fault.Delay.
	FaultDelay
	// FaultGarbage writes noise bytes before the reply frame.
	FaultGarbage
	// FaultClose closes the connection without answering.
	FaultClose
	// FaultErrorFlag answers with the error flag set.
	FaultErrorFlag
	// FaultSplit writes the reply in single-byte chunks.
	FaultSplit
)

var faultNames = map[FaultKind]string{
	FaultNone:      "none",
	FaultDrop:      "drop",
	FaultDelay:     "delay",
	FaultGarbage:   "garbage",
	FaultClose:     "close",
	FaultErrorFlag: "error_flag",
	FaultSplit:     "split",
}

func (k FaultKind) String() string {
	if name, ok := faultNames[k]; ok {
		return name
	}

	return fmt.Sprintf("fault(%d)", int(k))
}

// ParseFaultKind returns the kind named name.
func ParseFaultKind(name string) (FaultKind, error) {
	for k, n := range faultNames {
		if n == name {
			return k, nil
		}
	}

	return FaultNone, fmt.Errorf("%w: %q", ErrUnknownFault, name)
}

// Fault is a one-shot misbehavior applied to the next exchange.
type Fault struct {
	Kind FaultKind
	// Delay is the reply delay of FaultDelay.
	Delay time.Duration
	// Op restricts the fault to commands with this operation code. Empty matches any.
	Op string
}

func (f Fault) matches(op string) bool {
	return f.Op == "" || f.Op == op
}
