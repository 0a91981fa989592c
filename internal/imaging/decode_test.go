package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func TestDecoder_Decode(t *testing.T) {
	var d Decoder

	img, err := d.Decode(encodeJPEG(t), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())

	img, err = d.Decode(encodePNG(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestDecoder_SniffsGenericType(t *testing.T) {
	var d Decoder
	for _, mt := range []string{"", "application/octet-stream"} {
		_, err := d.Decode(encodePNG(t), mt)
		assert.NoError(t, err, "mime %q", mt)
	}
}

func TestDecoder_Failures(t *testing.T) {
	var d Decoder
	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"empty", nil, "image/jpeg"},
		{"garbage", []byte("not an image at all"), "image/jpeg"},
		{"raw", []byte{0x49, 0x49, 0x2a, 0x00}, "image/x-canon-cr2"},
		{"mismatch", encodePNG(t), "image/jpeg"},
		{"sniffed text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.data, tt.mime)
			assert.ErrorIs(t, err, ErrFailedLoad)
		})
	}
}

func TestDetectMIMEAndExtension(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectMIME(encodeJPEG(t)))
	assert.Equal(t, "image/png", DetectMIME(encodePNG(t)))
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".png", Extension("image/png; charset=binary"))
	assert.Equal(t, ".bin", Extension("application/x-unknown-thing"))
}
