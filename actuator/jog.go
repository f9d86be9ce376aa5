package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/timerbank"
)

// JogButton binds a push button to an actuator and direction. Buttons pull
// their input Low while pressed.
type JogButton struct {
	ID        ID        `yaml:"actuator"`
	Direction Direction `yaml:"direction"`
	Pin       string    `yaml:"pin"`
}

type jogInput struct {
	button JogButton
	input  *gpio.DebouncedInput
}

// Jog turns manual button presses into actuator motions.
type Jog struct {
	coord  *Coordinator
	inputs []jogInput
}

// NewJog creates a Jog for buttons. A nil clock selects the monotonic clock.
func NewJog(coord *Coordinator, io gpio.DigitalIO, buttons []JogButton, debounce time.Duration, clock timerbank.Clock) (*Jog, error) {
	j := &Jog{coord: coord, inputs: make([]jogInput, 0, len(buttons))}

	for _, b := range buttons {
		if !b.ID.valid() {
			return nil, fmt.Errorf("jog button %q: %w: %d", b.Pin, ErrInvalidActuator, b.ID)
		}
		if b.Direction != CW && b.Direction != CCW {
			return nil, fmt.Errorf("jog button %q: %w: %q", b.Pin, ErrInvalidDirection, b.Direction)
		}
		if b.Pin == "" {
			return nil, fmt.Errorf("jog button for %s %s: %w", b.ID, b.Direction, gpio.ErrEmptyPin)
		}

		j.inputs = append(j.inputs, jogInput{
			button: b,
			input:  gpio.NewDebouncedInput(io, b.Pin, debounce, gpio.High, gpio.WithClock(clock)),
		})
	}

	return j, nil
}

// Poll samples every button once. A press starts the bound actuator, a release
// stops it.
func (j *Jog) Poll() error {
	var errs []error

	for _, in := range j.inputs {
		edge, err := in.input.Poll()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		switch edge {
		case gpio.FallingEdge:
			j.coord.logger.Debug("jog pressed", "actuator", in.button.ID, "direction", in.button.Direction)
			err = j.coord.Start(in.button.ID, in.button.Direction)
		case gpio.RisingEdge:
			j.coord.logger.Debug("jog released", "actuator", in.button.ID, "direction", in.button.Direction)
			err = j.coord.Stop(in.button.ID)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
