package camera

import (
	"context"
	"testing"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
	"github.com/stretchr/testify/require"
)

const (
	testModel = "Canon EOS R5"
	testPort  = "usb:001,002"
)

func newTestCamera(t *testing.T, opts Options) (*Camera, *gphoto.SimDriver) {
	t.Helper()
	sim := gphoto.NewSimDriver()
	if opts.Keys == (SettingKeys{}) {
		opts.Keys = DefaultSettingKeys()
	}
	cam := New(sim, opts)
	t.Cleanup(func() { _ = cam.Close() })
	return cam, sim
}

func newConnectedCamera(t *testing.T, opts Options) (*Camera, *gphoto.SimDriver) {
	t.Helper()
	cam, sim := newTestCamera(t, opts)
	require.True(t, cam.Connect(context.Background(), testModel, testPort))
	return cam, sim
}
