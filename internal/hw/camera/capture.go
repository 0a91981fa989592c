package camera

import (
	"context"
	"image"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// Asset is the raw result of a capture.
type Asset struct {
	Data     []byte
	MIMEType string
	// Path is the device-side location; empty for previews.
	Path gphoto.FilePath
}

// Shot is a captured asset and, when a decoder is configured, its image.
type Shot struct {
	Asset
	Image image.Image
}

// placeholderPath seeds the capture destination. Some drivers leave the
// path untouched until the capture completes.
var placeholderPath = gphoto.FilePath{Folder: "/", Name: "tmp.jpg"}

// CaptureStill takes a picture and fetches it. An I/O fault disconnects the
// camera and returns ErrDisconnected; other device failures return
// ErrCaptureFailed and leave the connection alone.
func (c *Camera) CaptureStill(ctx context.Context) (*Shot, error) {
	var asset Asset
	err := c.withSession(ctx, func(ctx context.Context, s *Session) error {
		fp := placeholderPath
		if err := s.device.Capture(ctx, &fp); err != nil {
			return c.captureFault(gphoto.OpCapture, err)
		}
		s.file.Reset()
		if err := s.device.FileGet(ctx, fp.Folder, fp.Name, s.file); err != nil {
			return c.captureFault(gphoto.OpFileGet, err)
		}
		s.shots++
		asset = takeAsset(s.file, fp)
		debug.Shot(s.shots, fp.String(), len(asset.Data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.decode(asset)
}

// CapturePreview grabs a live-view frame. Faults are classified as for
// CaptureStill.
func (c *Camera) CapturePreview(ctx context.Context) (*Shot, error) {
	var asset Asset
	err := c.withSession(ctx, func(ctx context.Context, s *Session) error {
		s.file.Reset()
		if err := s.device.CapturePreview(ctx, s.file); err != nil {
			return c.captureFault(gphoto.OpCapturePreview, err)
		}
		asset = takeAsset(s.file, gphoto.FilePath{})
		debug.Trace("preview frame: %d bytes (%s)", len(asset.Data), asset.MIMEType)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.decode(asset)
}

// takeAsset copies the buffer out so the session can reuse it.
func takeAsset(f *gphoto.File, fp gphoto.FilePath) Asset {
	return Asset{
		Data:     append([]byte(nil), f.Data()...),
		MIMEType: f.MIMEType(),
		Path:     fp,
	}
}

// captureFault classifies a capture-stage failure. Callers hold c.mu.
func (c *Camera) captureFault(op gphoto.Op, err error) error {
	if gphoto.AsResult(err).IsIOFault() {
		e := fail(op, "", ErrDisconnected, err)
		c.demoteLocked(e)
		return e
	}
	return fail(op, "", ErrCaptureFailed, err)
}

func (c *Camera) decode(asset Asset) (*Shot, error) {
	shot := &Shot{Asset: asset}
	if c.opts.Decoder == nil {
		return shot, nil
	}
	img, err := c.opts.Decoder.Decode(asset.Data, asset.MIMEType)
	if err != nil {
		return nil, fail(opDecode, asset.MIMEType, ErrDecodeFailed, err)
	}
	shot.Image = img
	return shot, nil
}
