// Package link provides the TCP transport to the gas analyzer.
//
// The analyzer does not cope well with long-lived or multiplexed sessions, so
// every command is a one-shot exchange on a fresh socket:
//
//  1. wait a small random jitter so requests don't phase-lock with the device's own polling
//  2. dial host:port with the connect timeout
//  3. drain stale bytes left over from an earlier exchange (bounded time budget)
//  4. write the framed command verbatim, without line terminators
//  5. read until a complete STX..ETX frame is assembled or the I/O deadline passes
//  6. close the socket
//
// A failed dial or receive retries the whole sequence exactly once. When both
// attempts fail SendCommand returns ErrNoResponse; device misbehaviour never
// panics the caller.
//
// Exchanges are serialized: concurrent callers queue on an internal mutex.
//
// Usage Example:
//
//	cfg, err := link.NewConnectionConfig("192.168.0.100", 8888,
//	    link.WithConnectTimeout(2*time.Second),
//	    link.WithIOTimeout(2*time.Second),
//	)
//	// ... handle error ...
//	client := link.NewClient(cfg)
//	client.AddConnChangeHandler(func(connected bool) { ... })
//
//	reply, err := client.SendCommand(ctx, frame.Encode("ASTS K0"))
//	if errors.Is(err, link.ErrNoResponse) {
//	    // device unreachable or silent
//	}
package link
