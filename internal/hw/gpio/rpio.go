package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
}

// NewRPiDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
	}, nil
}

func (r *RPiDriver) SetupOutput(pin int) error {
	debug.GPIO("SetupOutput", pin, nil)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setup(pin)
	return nil
}

// setup configures pin as output. Callers hold r.mu.
func (r *RPiDriver) setup(pin int) rpio.Pin {
	p := rpio.Pin(pin)
	p.Output()
	r.pins[pin] = p
	return p
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pins[pin]
	if !ok {
		p = r.setup(pin)
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	r.mu.Lock()
	defer r.mu.Unlock()

	// Back to input so the remote lines float.
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}
	return rpio.Close()
}
