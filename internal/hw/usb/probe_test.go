package usb

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
)

func descWithInterfaceClass(class gousb.Class) *gousb.DeviceDesc {
	return &gousb.DeviceDesc{
		Bus:     1,
		Address: 5,
		Configs: map[int]gousb.ConfigDesc{
			1: {
				Number: 1,
				Interfaces: []gousb.InterfaceDesc{{
					Number:      0,
					AltSettings: []gousb.InterfaceSetting{{Class: class}},
				}},
			},
		},
	}
}

func TestHasStillImage(t *testing.T) {
	assert.True(t, hasStillImage(descWithInterfaceClass(stillImageClass)))
	assert.False(t, hasStillImage(descWithInterfaceClass(gousb.ClassMassStorage)))
	assert.True(t, hasStillImage(&gousb.DeviceDesc{Class: stillImageClass}))
	assert.False(t, hasStillImage(&gousb.DeviceDesc{}))
}

func TestPortPath(t *testing.T) {
	assert.Equal(t, "usb:001,005", PortPath(descWithInterfaceClass(stillImageClass)))
	assert.Equal(t, "usb:012,100", PortPath(&gousb.DeviceDesc{Bus: 12, Address: 100}))
}
