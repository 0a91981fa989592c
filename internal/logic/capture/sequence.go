package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/camera"
	"github.com/cjeanneret/camctl/internal/imaging"
)

// Camera is what a sequence needs from the camera layer.
type Camera interface {
	CaptureStill(ctx context.Context) (*camera.Shot, error)
	WaitForConnection(ctx context.Context, interval time.Duration, model, port string) error
}

// Sequence contains high-level logic for photo capture runs.
type Sequence struct {
	camera Camera
}

func NewSequence(c Camera) *Sequence {
	return &Sequence{camera: c}
}

// TimelapseParams defines a timelapse run.
type TimelapseParams struct {
	Count     int           // number of photos; 0 runs until cancelled
	Interval  time.Duration // time between the start of two shots
	OutputDir string        // where photos are written; empty keeps them in memory only

	// Reconnect makes the run wait for the camera after a disconnection
	// and retry the lost shot instead of failing.
	Reconnect     bool
	RetryInterval time.Duration
	Model         string
	Port          string
}

// Result summarizes a run.
type Result struct {
	Taken  int
	Failed int
	Files  []string
}

// RunTimelapse takes Count photos, one every Interval. Capture and decode
// failures are counted and the run goes on; a disconnection ends the run
// unless Reconnect is set.
func (s *Sequence) RunTimelapse(ctx context.Context, p TimelapseParams) (Result, error) {
	var res Result
	debug.Section("Timelapse")
	debug.Value("count", p.Count)
	debug.Value("interval", p.Interval)
	debug.Value("output", p.OutputDir)

	if p.OutputDir != "" {
		if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
			return res, fmt.Errorf("create output dir: %w", err)
		}
	}

	next := time.Now()
	for i := 0; p.Count == 0 || i < p.Count; i++ {
		if i > 0 {
			next = next.Add(p.Interval)
			if err := sleepUntil(ctx, next); err != nil {
				return res, err
			}
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		shot, err := s.capture(ctx, p)
		switch {
		case err == nil:
		case errors.Is(err, camera.ErrCaptureFailed), errors.Is(err, camera.ErrDecodeFailed):
			res.Failed++
			debug.Live("Photo %d failed: %v", i+1, err)
			continue
		default:
			return res, err
		}

		res.Taken++
		if p.OutputDir != "" {
			name := fmt.Sprintf("shot-%04d%s", i+1, imaging.Extension(shot.MIMEType))
			path, err := WriteAsset(p.OutputDir, name, shot.Asset)
			if err != nil {
				return res, err
			}
			res.Files = append(res.Files, path)
		}
		debug.Live("%s", progress(i+1, p.Count))
	}
	debug.Info("Timelapse complete: %d taken, %d failed", res.Taken, res.Failed)
	return res, nil
}

// capture takes one shot, waiting out disconnections when asked to.
func (s *Sequence) capture(ctx context.Context, p TimelapseParams) (*camera.Shot, error) {
	for {
		shot, err := s.camera.CaptureStill(ctx)
		if !p.Reconnect || !(errors.Is(err, camera.ErrDisconnected) || errors.Is(err, camera.ErrNotConnected)) {
			return shot, err
		}
		if errors.Is(err, camera.ErrClosed) {
			return nil, err
		}
		debug.Info("Camera lost during timelapse, waiting for it to come back")
		if werr := s.camera.WaitForConnection(ctx, p.RetryInterval, p.Model, p.Port); werr != nil {
			return nil, werr
		}
	}
}

// progress describes shot n of count; count 0 is an unbounded run.
func progress(n, count int) string {
	if count == 0 {
		return fmt.Sprintf("Photo %d done", n)
	}
	return fmt.Sprintf("Photo %d/%d done", n, count)
}

// WriteAsset writes the raw capture to dir/name and returns the path.
func WriteAsset(dir, name string, a camera.Asset) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	debug.Verbose("Wrote %s (%d bytes, %s)", path, len(a.Data), a.MIMEType)
	return path, nil
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
