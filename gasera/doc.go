// Package gasera implements the command/response protocol of the gas analyzer
// and a controller binding it to the device link.
//
// Builders return complete frames: the operation code, the fixed session token
// K0 and the arguments, space joined and wrapped by the frame codec.
//
//	gasera.AskStatus()                // "\x02 ASTS K0 \x03"
//	gasera.StartMeasurementByID("11") // "\x02 STAM K0 11 \x03"
//
// Parsers take a raw reply frame and map its tokens positionally into a typed
// result. A reply whose error flag is not "0" is not a Go error: the parser
// returns a result with Error set and default payload fields. A reply that does
// not fit the protocol shape returns an error wrapping frame.ErrProtocol, and
// callers treat it like a missing reply.
//
// Device runs builder, link exchange and parser for every operation. Dispatcher
// exposes the operations by name for command line and remote use.
package gasera
