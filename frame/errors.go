package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol is the parent of every codec level error. A caller that cannot
	// use a reply should test errors.Is(err, ErrProtocol) and treat it like "no response".
	ErrProtocol = errors.New("protocol error")

	// ErrFraming indicates that the input does not start with STX or does not end with ETX.
	ErrFraming = fmt.Errorf("%w: invalid response framing", ErrProtocol)

	// ErrMalformed indicates a correctly framed reply carrying fewer than two tokens.
	ErrMalformed = fmt.Errorf("%w: malformed response", ErrProtocol)

	// ErrMarkerInBody indicates an attempt to encode a body that contains STX or ETX.
	ErrMarkerInBody = errors.New("frame body contains a frame marker")
)
