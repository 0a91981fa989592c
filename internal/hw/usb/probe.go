// Package usb lists still-image class devices straight from the USB bus.
// It complements auto-detection when the camera driver cannot see a device,
// for example because another process has claimed it.
package usb

import (
	"fmt"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/google/gousb"
)

// stillImageClass is the USB interface class of PTP cameras.
const stillImageClass = gousb.Class(0x06)

// Camera is a still-image device on the bus.
type Camera struct {
	Port         string `json:"port"`
	Vendor       string `json:"vendor"`
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Probe lists still-image devices. Strings are read best-effort.
func Probe() ([]Camera, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(hasStillImage)
	for _, dev := range devices {
		defer dev.Close()
	}
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err != nil {
		// Some devices matched but could not be opened.
		debug.Verbose("usb probe: %v", err)
	}

	cams := make([]Camera, 0, len(devices))
	for _, dev := range devices {
		desc := dev.Desc
		cam := Camera{
			Port:    PortPath(desc),
			Vendor:  fmt.Sprintf("%04x", uint16(desc.Vendor)),
			Product: fmt.Sprintf("%04x", uint16(desc.Product)),
		}
		cam.Manufacturer, _ = dev.Manufacturer()
		cam.Name, _ = dev.Product()
		debug.Trace("usb probe: %s %s:%s %s", cam.Port, cam.Vendor, cam.Product, cam.Name)
		cams = append(cams, cam)
	}
	return cams, nil
}

// PortPath renders the gphoto2 port string of a device, e.g. "usb:001,005".
func PortPath(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf("usb:%03d,%03d", desc.Bus, desc.Address)
}

// hasStillImage reports whether any interface setting of the device is of
// the still-image class.
func hasStillImage(desc *gousb.DeviceDesc) bool {
	if desc.Class == stillImageClass {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == stillImageClass {
					return true
				}
			}
		}
	}
	return false
}
