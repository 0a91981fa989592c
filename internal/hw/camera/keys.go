package camera

import (
	"context"
	"strconv"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// SettingKeys names the device settings behind the convenience accessors.
// Names are driver specific and come from configuration.
type SettingKeys struct {
	Aperture     string
	ISO          string
	ShutterSpeed string
	FocalLength  string
	ImageQuality string
	BatteryLevel string
	AutoFocus    string
}

// DefaultSettingKeys returns the names used by most gphoto2 PTP drivers.
func DefaultSettingKeys() SettingKeys {
	return SettingKeys{
		Aperture:     "aperture",
		ISO:          "iso",
		ShutterSpeed: "shutterspeed",
		FocalLength:  "focallength",
		ImageQuality: "imagequality",
		BatteryLevel: "batterylevel",
		AutoFocus:    "autofocusdrive",
	}
}

func (c *Camera) getKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", newOpError(gphoto.OpConfig, "", ErrNotFound, nil)
	}
	return c.GetValue(ctx, key)
}

func (c *Camera) setKey(ctx context.Context, key, value string) error {
	if key == "" {
		return newOpError(gphoto.OpSetConfig, "", ErrNotFound, nil)
	}
	return c.SetValue(ctx, key, value)
}

func (c *Camera) Aperture(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.Aperture)
}

func (c *Camera) ISO(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.ISO)
}

func (c *Camera) ShutterSpeed(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.ShutterSpeed)
}

// FocalLength is read-only here; drivers differ on how to drive zoom.
func (c *Camera) FocalLength(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.FocalLength)
}

func (c *Camera) ImageQuality(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.ImageQuality)
}

func (c *Camera) BatteryLevel(ctx context.Context) (string, error) {
	return c.getKey(ctx, c.opts.Keys.BatteryLevel)
}

// SetAperture writes an f-number such as 5.6.
func (c *Camera) SetAperture(ctx context.Context, f float64) error {
	return c.setKey(ctx, c.opts.Keys.Aperture, strconv.FormatFloat(f, 'f', -1, 64))
}

func (c *Camera) SetISO(ctx context.Context, iso uint) error {
	return c.setKey(ctx, c.opts.Keys.ISO, strconv.FormatUint(uint64(iso), 10))
}

// SetShutterSpeed writes a driver value such as "1/125" or "bulb".
func (c *Camera) SetShutterSpeed(ctx context.Context, s string) error {
	return c.setKey(ctx, c.opts.Keys.ShutterSpeed, s)
}

func (c *Camera) SetAutoFocus(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return c.setKey(ctx, c.opts.Keys.AutoFocus, v)
}
