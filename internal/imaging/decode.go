// Package imaging decodes captured image data.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrFailedLoad is returned when data cannot be decoded.
var ErrFailedLoad = errors.New("failed to load image")

const octetStream = "application/octet-stream"

// Decoder decodes JPEG, PNG and GIF data. Raw formats are rejected.
type Decoder struct{}

// Decode decodes data. An empty or generic mimeType is replaced by the
// type sniffed from the data.
func (Decoder) Decode(data []byte, mimeType string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty buffer: %w", ErrFailedLoad)
	}
	if mimeType == "" || mimeType == octetStream {
		mimeType = DetectMIME(data)
	}
	switch baseType(mimeType) {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return nil, fmt.Errorf("%s: unsupported type: %w", mimeType, ErrFailedLoad)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", mimeType, err, ErrFailedLoad)
	}
	if "image/"+format != baseType(mimeType) {
		return nil, fmt.Errorf("%s: data is %s: %w", mimeType, format, ErrFailedLoad)
	}
	return img, nil
}

func baseType(mimeType string) string {
	t, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// DetectMIME sniffs the MIME type of data.
func DetectMIME(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

// Extension returns the file extension for mimeType, including the dot.
// Unknown types get ".bin".
func Extension(mimeType string) string {
	if m := mimetype.Lookup(baseType(mimeType)); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}
