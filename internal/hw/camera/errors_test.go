package camera

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError_Message(t *testing.T) {
	err := newOpError(gphoto.OpCapture, "", ErrDisconnected, fmt.Errorf("usb: %w", gphoto.ErrorIO))
	assert.Equal(t, "capture: camera disconnected (-7: I/O problem)", err.Error())

	err = newOpError(gphoto.OpConfig, "iso", ErrNotFound, nil)
	assert.Equal(t, "get_config iso: setting not found", err.Error())

	err = newOpError(opDecode, "image/x-canon-cr3", ErrDecodeFailed, errors.New("unknown format"))
	assert.Equal(t, "decode image/x-canon-cr3: decode failed: unknown format", err.Error())
}

func TestOpError_Unwrap(t *testing.T) {
	var err error = newOpError(gphoto.OpInit, "", ErrModelNotFound, gphoto.ErrorModelNotFound)

	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.False(t, errors.Is(err, ErrNotConnected))

	var code gphoto.Result
	require.ErrorAs(t, err, &code)
	assert.Equal(t, gphoto.ErrorModelNotFound, code)

	wrapped := fmt.Errorf("attempt 3: %w", err)
	var opErr *OpError
	require.ErrorAs(t, wrapped, &opErr)
	assert.Equal(t, gphoto.OpInit, opErr.Op)
}

func TestErrClosed_IsNotConnected(t *testing.T) {
	assert.ErrorIs(t, ErrClosed, ErrNotConnected)
	assert.ErrorIs(t, ErrNotEnum, ErrCoercionFailed)
}
