package camera

import (
	"context"
	"sync"
	"time"
)

// DeviceContext is the cancellation scope shared by every device operation
// of one Camera. Teardown cancels in-flight operations and sleeping retry
// loops, then releases the session.
type DeviceContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewDeviceContext creates a context bound to parent.
func NewDeviceContext(parent context.Context) *DeviceContext {
	ctx, cancel := context.WithCancel(parent)
	return &DeviceContext{ctx: ctx, cancel: cancel}
}

func (d *DeviceContext) Done() <-chan struct{} { return d.ctx.Done() }
func (d *DeviceContext) Err() error           { return d.ctx.Err() }

// Teardown cancels the context, then runs release. Only the first call has
// any effect.
func (d *DeviceContext) Teardown(release func()) {
	d.once.Do(func() {
		d.cancel()
		if release != nil {
			release()
		}
	})
}

// opContext derives the context of one device round-trip from the caller's
// ctx. It is cancelled by either ctx or teardown, and by timeout when set.
func (d *DeviceContext) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		octx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		octx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		octx, cancel = context.WithCancel(ctx)
	}
	stop := context.AfterFunc(d.ctx, cancel)
	return octx, func() {
		stop()
		cancel()
	}
}
