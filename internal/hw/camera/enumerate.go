package camera

import (
	"context"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// Device is one reachable camera.
type Device struct {
	Name string `json:"name"`
	Port string `json:"port"`
}

// ListDevices runs auto-detection. It never fails: a fault is logged and
// reported as no devices.
func (c *Camera) ListDevices(ctx context.Context) []Device {
	octx, cancel := c.dctx.opContext(ctx, 0)
	defer cancel()

	found, err := c.driver.Autodetect(octx)
	if err != nil {
		_ = fail(gphoto.OpAutodetect, "", ErrLookupFailed, err)
		found = nil
	}

	devices := make([]Device, 0, len(found))
	for _, d := range found {
		devices = append(devices, Device{Name: d.Model, Port: d.Port})
	}
	debug.Info("%d camera(s) detected", len(devices))
	for i, d := range devices {
		debug.Info("%d. %s - %s", i+1, d.Name, d.Port)
	}
	return devices
}
