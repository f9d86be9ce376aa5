// Package actuator coordinates the two linear drives that move the sampling probe.
//
// Each actuator has a clockwise and a counter-clockwise output and one limit
// switch that reads Low while active. Start drives one output high and launches
// a monitor for that motion. The monitor waits a grace delay, so a drive leaving
// its limit zone is not stopped right away, then polls the debounced limit
// switch until it trips or the motion times out.
//
// Monitors never touch the outputs. They report their outcome on a channel to
// the coordinator goroutine, which applies it only if the motion is still the
// current one. Stop and Start cancel the previous motion's context, so a
// superseded monitor exits without side effects.
//
// Jog polls optional manual buttons: pressing one starts its actuator, releasing
// it stops the actuator.
package actuator
