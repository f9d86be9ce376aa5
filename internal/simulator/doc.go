// Package simulator implements an in-process gas analyzer that speaks the
// framed AK protocol over TCP.
//
// The simulator keeps a small device model (status, iteration counter, last
// results) and answers every known operation code. Faults can be queued to make
// the next exchanges misbehave the way a real device on a flaky network does:
// no reply, a late reply, noise before the frame or an abrupt close.
//
// It is used by the package tests of the controller and by the runnable
// example under examples/simulator.
package simulator
