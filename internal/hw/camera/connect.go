package camera

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// State is the connection state of a Camera.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// State returns the current connection state. It never waits for a device
// operation.
func (c *Camera) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether a session is live.
func (c *Camera) IsConnected() bool {
	return c.State() == StateConnected
}

// SessionInfo returns the live session, if any.
func (c *Camera) SessionInfo() (SessionInfo, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.info, c.state == StateConnected
}

func (c *Camera) setState(s State) {
	c.stateMu.Lock()
	prev := c.state
	if prev == StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = s
	if s != StateConnected {
		c.info = SessionInfo{}
	}
	c.stateMu.Unlock()
	if prev != s {
		debug.State(prev.String(), s.String())
	}
}

func (c *Camera) setConnected(info SessionInfo) {
	c.stateMu.Lock()
	c.info = info
	c.stateMu.Unlock()
	c.setState(StateConnected)
}

// Connect makes one attempt to open a session and reports whether the
// camera is connected afterwards. With both model and port set the session
// is bound to them; otherwise the first auto-detected camera is used.
// Failures are logged, never returned.
func (c *Camera) Connect(ctx context.Context, model, port string) bool {
	return c.TryConnect(ctx, model, port) == nil
}

// TryConnect is Connect with the reason for a failed attempt:
// ErrLookupFailed when a catalog stage fails, ErrModelNotFound when no
// matching camera answers, ErrNotConnected for any other device result.
// A connected Camera returns nil without touching the device.
func (c *Camera) TryConnect(ctx context.Context, model, port string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateClosed:
		return ErrClosed
	case StateConnected:
		return nil
	}
	c.setState(StateConnecting)

	if err := c.connectLocked(ctx, model, port); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

func (c *Camera) connectLocked(ctx context.Context, model, port string) error {
	// A demoted session is replaced, not reused.
	if err := c.releaseLocked(); err != nil {
		debug.Verbose("releasing stale session: %v", err)
	}

	octx, cancel := c.dctx.opContext(ctx, c.opts.OpTimeout)
	defer cancel()

	if err := c.opts.Preparer.Prepare(octx); err != nil {
		debug.Errorf("pre-connect hook: %v", err)
	}

	var (
		dev gphoto.Device
		err error
	)
	if model != "" && port != "" {
		dev, err = c.bind(octx, model, port)
	} else {
		debug.Verbose("No model/port given, using auto-detection")
		dev, err = c.driver.NewDevice()
		if err != nil {
			err = fail(gphoto.OpNewDevice, "", ErrNotConnected, err)
		}
	}
	if err != nil {
		return err
	}

	if err := dev.Init(octx); err != nil {
		_ = dev.Free()
		if gphoto.AsResult(err) == gphoto.ErrorModelNotFound {
			e := newOpError(gphoto.OpInit, "", ErrModelNotFound, err)
			debug.Info("No camera found: %v", e)
			return e
		}
		return fail(gphoto.OpInit, "", ErrNotConnected, err)
	}

	s := newSession(dev, model, port)
	c.session = s
	c.setConnected(s.SessionInfo)
	debug.Info("Camera connected (session %s)", s.ID)
	return nil
}

// bind resolves model and port through the catalogs and returns a device
// handle configured with them. Every stage failure is ErrLookupFailed.
func (c *Camera) bind(ctx context.Context, model, port string) (gphoto.Device, error) {
	debug.Verbose("Binding camera %q at %q", model, port)

	abilities, err := c.driver.LoadAbilities(ctx)
	if err != nil {
		return nil, fail(gphoto.OpLoadAbilities, "", ErrLookupFailed, err)
	}
	idx, err := abilities.LookupModel(model)
	if err != nil {
		return nil, fail(gphoto.OpLookupModel, model, ErrLookupFailed, err)
	}
	a, err := abilities.Abilities(idx)
	if err != nil {
		return nil, fail(gphoto.OpAbilities, model, ErrLookupFailed, err)
	}

	ports, err := c.driver.LoadPortInfo(ctx)
	if err != nil {
		return nil, fail(gphoto.OpLoadPortInfo, "", ErrLookupFailed, err)
	}
	pidx, err := ports.LookupPath(port)
	if err != nil {
		return nil, fail(gphoto.OpLookupPath, port, ErrLookupFailed, err)
	}
	p, err := ports.Info(pidx)
	if err != nil {
		return nil, fail(gphoto.OpPortInfo, port, ErrLookupFailed, err)
	}
	// A generic entry ("usb:") matched; it stands for the requested address.
	if strings.HasSuffix(p.Path, ":") && p.Path != port {
		p.Path = port
	}

	dev, err := c.driver.NewDevice()
	if err != nil {
		return nil, fail(gphoto.OpNewDevice, "", ErrNotConnected, err)
	}
	if err := dev.SetAbilities(a); err != nil {
		_ = dev.Free()
		return nil, fail(gphoto.OpSetAbilities, model, ErrLookupFailed, err)
	}
	if err := dev.SetPortInfo(p); err != nil {
		_ = dev.Free()
		return nil, fail(gphoto.OpSetPortInfo, port, ErrLookupFailed, err)
	}
	return dev, nil
}

// WaitForConnection calls TryConnect until it succeeds, sleeping interval
// between failed attempts. There is no attempt limit. It returns nil once
// connected, ctx.Err() if ctx ends and ErrClosed if the camera is closed,
// including while sleeping.
func (c *Camera) WaitForConnection(ctx context.Context, interval time.Duration, model, port string) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		debug.Attempt(attempt, model, port)
		err := c.TryConnect(ctx, model, port)
		if err == nil {
			debug.Info("Camera connected after %d attempt(s)", attempt)
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		debug.Live("Waiting for camera... (retry in %v)", interval)

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-c.dctx.Done():
			t.Stop()
			return ErrClosed
		case <-t.C:
		}
	}
}

// WaitForConnectionAsync runs WaitForConnection on its own goroutine. The
// channel receives its result and is then closed.
func (c *Camera) WaitForConnectionAsync(ctx context.Context, interval time.Duration, model, port string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- c.WaitForConnection(ctx, interval, model, port)
	}()
	return done
}

// Disconnect releases the session. The camera can connect again later.
func (c *Camera) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return ErrClosed
	}
	err := c.releaseLocked()
	c.setState(StateDisconnected)
	return err
}

// demoteLocked marks the session dead after an I/O fault. The handles are
// released on the next connect. Callers hold c.mu.
func (c *Camera) demoteLocked(cause error) {
	debug.Info("Camera lost: %v", cause)
	c.setState(StateDisconnected)
}
