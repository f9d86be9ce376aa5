package frame

import (
	"strings"
)

const (
	// STX is the start-of-text marker.
	STX byte = 0x02
	// ETX is the end-of-text marker.
	ETX byte = 0x03
)

// Encode wraps body between the frame markers with the spacing the device expects.
//
// The body is not escaped. Use EncodeChecked when the body comes from user input.
func Encode(body string) string {
	var sb strings.Builder
	sb.Grow(len(body) + 4)
	sb.WriteByte(STX)
	sb.WriteByte(' ')
	sb.WriteString(body)
	sb.WriteByte(' ')
	sb.WriteByte(ETX)

	return sb.String()
}

// EncodeChecked is like Encode but rejects bodies containing a frame marker.
func EncodeChecked(body string) (string, error) {
	if strings.IndexByte(body, STX) >= 0 || strings.IndexByte(body, ETX) >= 0 {
		return "", ErrMarkerInBody
	}

	return Encode(body), nil
}

// Decode splits a complete frame into the echoed command token and the remaining tokens.
//
// tokens[0] is the error flag of a reply. Decode returns ErrFraming when the
// input is not STX...ETX and ErrMalformed when fewer than two tokens remain
// after the markers are stripped.
func Decode(frame string) (command string, tokens []string, err error) {
	if len(frame) < 2 || frame[0] != STX || frame[len(frame)-1] != ETX {
		return "", nil, ErrFraming
	}

	parts := strings.Fields(frame[1 : len(frame)-1])
	if len(parts) < 2 {
		return "", nil, ErrMalformed
	}

	return parts[0], parts[1:], nil
}

// Body returns the frame content without markers and surrounding whitespace.
// It is meant for logging and returns the input unchanged when it is not framed.
func Body(frame string) string {
	s := strings.TrimPrefix(frame, string(STX))
	s = strings.TrimSuffix(s, string(ETX))

	return strings.TrimSpace(s)
}
