// Package gpio drives output lines wired to a camera's remote connector.
package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Driver is the output side of a GPIO controller.
// A Raspberry Pi implementation and a mock are provided.
type Driver interface {
	SetupOutput(pin int) error
	WritePin(pin int, level Level) error
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiDriver()
}

// Pulse drives pin to active for hold, then back to the opposite level.
// The line is released even when ctx is cancelled during the hold.
func Pulse(ctx context.Context, d Driver, pin int, active Level, hold time.Duration) error {
	if err := d.WritePin(pin, active); err != nil {
		return err
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	var cerr error
	select {
	case <-ctx.Done():
		cerr = ctx.Err()
	case <-t.C:
	}
	if err := d.WritePin(pin, !active); err != nil {
		return err
	}
	return cerr
}

// Write is one recorded MockDriver write.
type Write struct {
	Pin   int
	Level Level
}

// MockDriver records writes instead of touching hardware.
// Used for development on PC or testing.
type MockDriver struct {
	mu     sync.Mutex
	writes []Write
	closed bool
}

func (m *MockDriver) SetupOutput(pin int) error {
	debug.GPIO("SetupOutput", pin, nil)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, Write{Pin: pin, Level: level})
	return nil
}

// Writes returns the writes recorded so far.
func (m *MockDriver) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
