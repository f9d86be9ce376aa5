// Package sequencer runs the sampling cycle of the gas analyzer.
//
// A cycle moves the probes to the sample position, starts a measurement on the
// device, waits for the configured duration, stops the measurement and
// retracts the probes. The cycle is a state machine advanced one step per Tick.
// Ticks never wait: delays are named timers checked on the next tick, and the
// only blocking calls are the bounded device exchanges.
//
// Trigger and SetAbort may be called from any goroutine. Ticks must come from
// a single loop, which Start runs on a fixed period together with the hardware
// trigger input and the optional jog buttons.
//
//	seq, err := sequencer.New(ctx, device, coordinator, cfg,
//	    sequencer.WithNotifier(alerts),
//	    sequencer.WithTriggerInput(io),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = seq.Start()
//	defer seq.Close()
//
//	msg := seq.Trigger(ctx, "API")
package sequencer
