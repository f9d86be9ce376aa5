package gasera

import "errors"

var (
	// ErrNoResponse is returned when the link produced no usable reply, either
	// because the exchange failed or because the reply could not be decoded.
	ErrNoResponse = errors.New("no response from device")
	// ErrUnknownTask is returned when a measurement task is not in the known task table.
	ErrUnknownTask = errors.New("unknown measurement task")
	// ErrUnknownCommand is returned by Dispatcher for an unregistered command name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidArgs is returned by Dispatcher when arguments don't fit the command.
	ErrInvalidArgs = errors.New("invalid arguments")
)
