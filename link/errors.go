package link

import "errors"

var (
	// ErrConnConfigNil indicates that a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("connection config is nil")

	// ErrConnect indicates that the TCP connection to the device could not be established.
	ErrConnect = errors.New("connect failed")

	// ErrIOTimeout indicates that no complete frame arrived before the I/O deadline.
	ErrIOTimeout = errors.New("timeout waiting for frame")

	// ErrPeerClosed indicates that the device closed the socket before a frame was complete.
	ErrPeerClosed = errors.New("connection closed by device")

	// ErrNoResponse is returned by SendCommand after every attempt failed.
	// It wraps the cause of the last attempt.
	ErrNoResponse = errors.New("no response from device")
)
