package gphoto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initSim(t *testing.T, s *SimDriver) Device {
	t.Helper()
	dev, err := s.NewDevice()
	require.NoError(t, err)
	require.NoError(t, dev.Init(context.Background()))
	return dev
}

func TestSimDriver_FaultQueue(t *testing.T) {
	s := NewSimDriver()
	s.Fail(OpAutodetect, ErrorIO, OK, ErrorTimeout)
	ctx := context.Background()

	_, err := s.Autodetect(ctx)
	assert.ErrorIs(t, err, ErrorIO)
	found, err := s.Autodetect(ctx)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	_, err = s.Autodetect(ctx)
	assert.ErrorIs(t, err, ErrorTimeout)
	_, err = s.Autodetect(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 4, s.Calls(OpAutodetect))
}

func TestSimDevice_InitMatchesBinding(t *testing.T) {
	s := NewSimDriver()
	ctx := context.Background()

	dev, err := s.NewDevice()
	require.NoError(t, err)
	require.NoError(t, dev.SetAbilities(Abilities{Model: "Nikon DSC Z 6"}))
	assert.ErrorIs(t, dev.Init(ctx), ErrorModelNotFound)

	dev, err = s.NewDevice()
	require.NoError(t, err)
	require.NoError(t, dev.SetAbilities(Abilities{Model: "Canon EOS R5"}))
	require.NoError(t, dev.SetPortInfo(PortInfo{Path: "usb:"}))
	assert.NoError(t, dev.Init(ctx))
}

func TestSimDevice_DetachTurnsIntoIOFault(t *testing.T) {
	s := NewSimDriver()
	dev := initSim(t, s)
	s.DetachAll()

	_, err := dev.Config(context.Background())
	assert.ErrorIs(t, err, ErrorIO)
	var fp FilePath
	assert.ErrorIs(t, dev.Capture(context.Background(), &fp), ErrorIO)
}

func TestSimDevice_CaptureAndFetch(t *testing.T) {
	s := NewSimDriver()
	dev := initSim(t, s)
	ctx := context.Background()

	fp := FilePath{Folder: "/", Name: "tmp.jpg"}
	require.NoError(t, dev.Capture(ctx, &fp))
	assert.Equal(t, "/store_00020001/DCIM/100CANON/IMG_0001.JPG", fp.String())

	f := NewFile()
	require.NoError(t, dev.FileGet(ctx, fp.Folder, fp.Name, f))
	assert.Equal(t, "image/jpeg", f.MIMEType())
	assert.NotZero(t, f.Size())

	assert.ErrorIs(t, dev.FileGet(ctx, "/", "missing.jpg", f), ErrorFileNotFound)
}

func TestSimDevice_SetConfigAppliesChanged(t *testing.T) {
	s := NewSimDriver()
	dev := initSim(t, s)
	ctx := context.Background()

	root, err := dev.Config(ctx)
	require.NoError(t, err)
	iso, err := root.ChildByName("iso")
	require.NoError(t, err)
	require.NoError(t, iso.SetValue(TextValue("800")))
	require.NoError(t, dev.SetConfig(ctx, root))

	w, ok := s.Widget("iso")
	require.True(t, ok)
	assert.Equal(t, TextValue("800"), w.Value())

	batt, err := root.ChildByName("batterylevel")
	require.NoError(t, err)
	require.NoError(t, batt.SetValue(TextValue("1%")))
	assert.ErrorIs(t, dev.SetSingleConfig(ctx, "batterylevel", batt), ErrorNotSupported)
}

func TestSimDevice_SingleConfigDisabled(t *testing.T) {
	s := NewSimDriver()
	s.DisableSingleConfig()
	dev := initSim(t, s)

	_, err := dev.SingleConfig(context.Background(), "iso")
	assert.ErrorIs(t, err, ErrorNotSupported)
}
