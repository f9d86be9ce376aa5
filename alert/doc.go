// Package alert plays short audible patterns on state changes of the sampler.
//
// Callers hold a Notifier and call Notify with a pattern name such as
// "triggered" or "tcp_link_lost". Notify is fire-and-forget: it never blocks,
// never panics and never returns an error, so alerts cannot change the control
// flow of the caller.
//
// Dispatcher is the production Notifier. It resolves the pattern to Morse text,
// converts the text to on/off pulses and hands the job to a background worker,
// which drives a Player such as BuzzerPlayer. Nop discards everything and
// Recorder keeps the names for assertions in tests.
package alert
