// Package camera controls one attached camera through a gphoto.Driver.
//
// A Camera owns the device context and at most one session. Connect and
// WaitForConnection establish the session; GetValue/SetValue and the
// capture calls borrow it for one call. An I/O fault during a capture
// demotes the camera to disconnected until the next successful connect.
package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// Decoder turns captured bytes into an image.
type Decoder interface {
	Decode(data []byte, mimeType string) (image.Image, error)
}

// Options configures a Camera. The zero value is usable.
type Options struct {
	// Preparer runs before every connect attempt. Nil means no-op.
	Preparer Preparer
	// Decoder decodes captures. Nil leaves Shot.Image unset.
	Decoder Decoder
	// Keys maps the convenience accessors to device setting names.
	Keys SettingKeys
	// OpTimeout bounds each device round-trip. Zero means no limit.
	OpTimeout time.Duration
}

// Camera is the control object for a single camera.
type Camera struct {
	driver gphoto.Driver
	opts   Options
	dctx   *DeviceContext

	// mu serializes device operations and guards session.
	mu      sync.Mutex
	session *Session

	stateMu sync.RWMutex
	state   State
	info    SessionInfo
}

// New creates a disconnected Camera. Close releases it.
func New(driver gphoto.Driver, opts Options) *Camera {
	if opts.Preparer == nil {
		opts.Preparer = NopPreparer{}
	}
	return &Camera{
		driver: driver,
		opts:   opts,
		dctx:   NewDeviceContext(context.Background()),
	}
}

// Keys returns the configured setting names.
func (c *Camera) Keys() SettingKeys {
	return c.opts.Keys
}

// Close tears down the device context: retry loops and in-flight operations
// are cancelled, then the session is released. Safe to call more than once.
func (c *Camera) Close() error {
	var err error
	c.dctx.Teardown(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		err = c.releaseLocked()
		c.setState(StateClosed)
	})
	return err
}

// releaseLocked drops the current session. Callers hold c.mu.
func (c *Camera) releaseLocked() error {
	if c.session == nil {
		return nil
	}
	s := c.session
	c.session = nil
	return s.release()
}

// withSession lends the session to fn under the device lock. fn gets a
// context bound to both ctx and the device context.
func (c *Camera) withSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateClosed:
		return ErrClosed
	case StateConnected:
	default:
		return ErrNotConnected
	}
	octx, cancel := c.dctx.opContext(ctx, c.opts.OpTimeout)
	defer cancel()
	return fn(octx, c.session)
}

// fail builds an OpError and logs it.
func fail(op gphoto.Op, name string, sentinel, cause error) error {
	err := newOpError(op, name, sentinel, cause)
	if cause != nil {
		debug.Call(string(op), int(err.Code))
	}
	debug.Error(err)
	return err
}
