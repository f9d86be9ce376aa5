package frame

import (
	"bytes"
)

// Assembler collects chunks read from a stream until a complete frame is present.
//
// Bytes that precede the last start marker seen so far are treated as leftovers
// of an earlier, broken exchange and are dropped. The zero value is ready to use.
// Assembler is NOT goroutine-safe.
type Assembler struct {
	buf       []byte
	discarded int
}

// Write appends chunk and reports the first complete frame, if any.
//
// When a frame is returned, the assembler keeps nothing: a reply is one frame and
// the exchange ends as soon as it is complete.
func (a *Assembler) Write(chunk []byte) (frame []byte, ok bool) {
	a.buf = append(a.buf, chunk...)

	lastSTX := bytes.LastIndexByte(a.buf, STX)
	if lastSTX < 0 {
		return nil, false
	}

	if lastSTX > 0 {
		a.discarded += lastSTX
		a.buf = append(a.buf[:0], a.buf[lastSTX:]...)
	}

	etx := bytes.IndexByte(a.buf[1:], ETX)
	if etx < 0 {
		return nil, false
	}

	frame = make([]byte, etx+2)
	copy(frame, a.buf[:etx+2])
	a.buf = a.buf[:0]

	return frame, true
}

// Buffered returns a copy of the bytes held while waiting for the end marker.
func (a *Assembler) Buffered() []byte {
	return bytes.Clone(a.buf)
}

// Discarded returns the number of junk bytes dropped so far.
func (a *Assembler) Discarded() int {
	return a.discarded
}

// Reset drops all buffered state.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
	a.discarded = 0
}
