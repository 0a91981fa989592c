package camera

import (
	"context"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gpio"
)

// GPIOWake wakes a sleeping camera before connecting by half-pressing the
// shutter through the remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: half-press (active LOW)
//
// Wake sequence:
// 1. FOCUS to LOW
// 2. Hold
// 3. FOCUS back to HIGH
// 4. Wait for the camera to bring its USB interface up
type GPIOWake struct {
	gpio     gpio.Driver
	focusPin int
	hold     time.Duration
	settle   time.Duration
}

// NewGPIOWake configures focusPin as an output, idle HIGH.
func NewGPIOWake(g gpio.Driver, focusPin int, hold, settle time.Duration) (*GPIOWake, error) {
	if err := g.SetupOutput(focusPin); err != nil {
		return nil, err
	}
	if err := g.WritePin(focusPin, gpio.High); err != nil {
		return nil, err
	}
	return &GPIOWake{gpio: g, focusPin: focusPin, hold: hold, settle: settle}, nil
}

func (w *GPIOWake) Prepare(ctx context.Context) error {
	debug.Verbose("Wake: pulsing FOCUS (pin %d) for %v", w.focusPin, w.hold)
	if err := gpio.Pulse(ctx, w.gpio, w.focusPin, gpio.Low, w.hold); err != nil {
		return err
	}

	debug.Verbose("Wake: waiting %v for the camera", w.settle)
	t := time.NewTimer(w.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return nil
}
