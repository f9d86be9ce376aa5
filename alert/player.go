package alert

import (
	"context"
	"errors"

	"github.com/arloliu/go-gasera/gpio"
	"github.com/arloliu/go-gasera/internal/pool"
)

// Player outputs a pulse train. Play returns early when ctx is done.
type Player interface {
	Play(ctx context.Context, pulses []Pulse) error
}

// BuzzerPlayer drives an active buzzer wired to a digital output, high is sound.
type BuzzerPlayer struct {
	io  gpio.DigitalIO
	pin string
}

var _ Player = (*BuzzerPlayer)(nil)

// NewBuzzerPlayer creates a BuzzerPlayer on pin.
func NewBuzzerPlayer(io gpio.DigitalIO, pin string) (*BuzzerPlayer, error) {
	if io == nil {
		return nil, errors.New("digital io is nil")
	}
	if pin == "" {
		return nil, gpio.ErrEmptyPin
	}

	return &BuzzerPlayer{io: io, pin: pin}, nil
}

// Play implements Player. The buzzer is always left silent on return.
func (b *BuzzerPlayer) Play(ctx context.Context, pulses []Pulse) (err error) {
	defer func() {
		err = errors.Join(err, b.io.Write(b.pin, gpio.Low))
	}()

	for _, p := range pulses {
		if err := b.io.Write(b.pin, gpio.High); err != nil {
			return err
		}
		if err := pool.Sleep(ctx, p.On); err != nil {
			return err
		}
		if err := b.io.Write(b.pin, gpio.Low); err != nil {
			return err
		}
		if err := pool.Sleep(ctx, p.Off); err != nil {
			return err
		}
	}

	return nil
}
