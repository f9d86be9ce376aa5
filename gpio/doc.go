// Package gpio is the digital I/O boundary of the sampler.
//
// Pin access itself belongs to the host board and is consumed through the
// DigitalIO interface: Read(pin) returns Low or High, Write(pin, level) drives an
// output. Memory is an in-process implementation used by tests, the simulator
// and boards without GPIO support.
//
// DebouncedInput turns raw pin samples into stable levels and edges. It serves
// limit switches, jog buttons and the hardware trigger alike.
package gpio
