package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/camera"
	"github.com/cjeanneret/camctl/internal/hw/usb"
	"github.com/cjeanneret/camctl/internal/imaging"
	"github.com/cjeanneret/camctl/internal/logic/capture"
)

var errUsage = errors.New("bad usage")

func usageErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// run executes one command. The shell calls it for every line.
func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list", "ls":
		return a.cmdList(ctx, args)
	case "connect":
		return a.cmdConnect(ctx)
	case "wait":
		return a.cmdWait(ctx)
	case "disconnect":
		if err := a.cam.Disconnect(); err != nil {
			return err
		}
		return a.cmdStatus()
	case "status":
		return a.cmdStatus()
	case "get":
		if len(args) != 1 {
			return usageErr("get NAME")
		}
		return a.withCamera(ctx, func() error {
			v, err := a.cam.GetValue(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s = %s\n", args[0], v)
			return nil
		})
	case "set":
		if len(args) < 2 {
			return usageErr("set NAME VALUE")
		}
		name, value := args[0], strings.Join(args[1:], " ")
		return a.withCamera(ctx, func() error {
			if err := a.cam.SetValue(ctx, name, value); err != nil {
				return err
			}
			v, err := a.cam.GetValue(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s = %s\n", name, v)
			return nil
		})
	case "choices":
		if len(args) != 1 {
			return usageErr("choices NAME")
		}
		return a.withCamera(ctx, func() error {
			choices, err := a.cam.ListChoices(ctx, args[0])
			if err != nil {
				return err
			}
			for i, c := range choices {
				fmt.Fprintf(a.out, "%d. %s\n", i, c)
			}
			return nil
		})
	case "config":
		return a.withCamera(ctx, func() error { return a.cmdConfig(ctx) })
	case "summary":
		return a.withCamera(ctx, func() error { return a.cmdSummary(ctx) })
	case "af":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return usageErr("af on|off")
		}
		return a.withCamera(ctx, func() error {
			return a.cam.SetAutoFocus(ctx, args[0] == "on")
		})
	case "capture":
		return a.cmdShot(ctx, "capture", args, a.cam.CaptureStill)
	case "preview":
		return a.cmdShot(ctx, "preview", args, a.cam.CapturePreview)
	case "timelapse":
		return a.cmdTimelapse(ctx, args)
	}
	return usageErr("unknown command %q", cmd)
}

// withCamera connects once if needed, then runs fn.
func (a *app) withCamera(ctx context.Context, fn func() error) error {
	if !a.cam.IsConnected() {
		if err := a.cam.TryConnect(ctx, a.cfg.Camera.Model, a.cfg.Camera.Port); err != nil {
			return err
		}
	}
	return fn()
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	probeUSB := fs.Bool("usb", false, "also probe the USB bus for still-image devices")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPORT")
	for _, d := range a.cam.ListDevices(ctx) {
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Port)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !*probeUSB {
		return nil
	}
	cams, err := usb.Probe()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USB PORT\tID\tMANUFACTURER\tPRODUCT")
	for _, c := range cams {
		fmt.Fprintf(tw, "%s\t%s:%s\t%s\t%s\n", c.Port, c.Vendor, c.Product, c.Manufacturer, c.Name)
	}
	return tw.Flush()
}

func (a *app) cmdConnect(ctx context.Context) error {
	if err := a.cam.TryConnect(ctx, a.cfg.Camera.Model, a.cfg.Camera.Port); err != nil {
		return err
	}
	return a.cmdStatus()
}

func (a *app) cmdWait(ctx context.Context) error {
	if err := a.cam.WaitForConnection(ctx, a.cfg.RetryInterval(), a.cfg.Camera.Model, a.cfg.Camera.Port); err != nil {
		return err
	}
	return a.cmdStatus()
}

func (a *app) cmdStatus() error {
	info, ok := a.cam.SessionInfo()
	if !ok {
		fmt.Fprintf(a.out, "state: %s\n", a.cam.State())
		return nil
	}
	model, port := info.Model, info.Port
	if model == "" {
		model = "(auto-detected)"
	}
	if port == "" {
		port = "(auto-detected)"
	}
	fmt.Fprintf(a.out, "state: %s\nsession: %s\nmodel: %s\nport: %s\nsince: %s\n",
		a.cam.State(), info.ID, model, port, info.Since.Format(time.RFC3339))
	return nil
}

func (a *app) cmdConfig(ctx context.Context) error {
	settings, err := a.cam.ListConfig(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTYPE\tVALUE\tLABEL")
	for _, s := range settings {
		value := s.Value
		if s.ReadOnly {
			value += " (ro)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Path, s.Kind, value, s.Label)
	}
	return tw.Flush()
}

// cmdSummary prints the settings behind the convenience accessors. A
// setting the camera does not have is shown as "-".
func (a *app) cmdSummary(ctx context.Context) error {
	rows := []struct {
		label string
		get   func(context.Context) (string, error)
	}{
		{"Aperture", a.cam.Aperture},
		{"ISO", a.cam.ISO},
		{"Shutter speed", a.cam.ShutterSpeed},
		{"Focal length", a.cam.FocalLength},
		{"Image quality", a.cam.ImageQuality},
		{"Battery", a.cam.BatteryLevel},
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		v, err := r.get(ctx)
		switch {
		case errors.Is(err, camera.ErrNotFound):
			v = "-"
		case err != nil:
			return err
		}
		fmt.Fprintf(tw, "%s:\t%s\n", r.label, v)
	}
	return tw.Flush()
}

func (a *app) cmdShot(ctx context.Context, kind string, args []string, take func(context.Context) (*camera.Shot, error)) error {
	fs := flag.NewFlagSet(kind, flag.ContinueOnError)
	fs.SetOutput(a.out)
	out := fs.String("o", "", "output file (default: capture.output_dir)")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}

	return a.withCamera(ctx, func() error {
		shot, err := take(ctx)
		if err != nil {
			return err
		}
		path := *out
		if path == "" {
			if err := os.MkdirAll(a.cfg.Capture.OutputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			name := kind + "-" + time.Now().Format("20060102-150405") + imaging.Extension(shot.MIMEType)
			path = filepath.Join(a.cfg.Capture.OutputDir, name)
		}
		if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if shot.Image != nil {
			b := shot.Image.Bounds()
			fmt.Fprintf(a.out, "%s (%dx%d, %d bytes)\n", path, b.Dx(), b.Dy(), len(shot.Data))
		} else {
			fmt.Fprintf(a.out, "%s (%d bytes)\n", path, len(shot.Data))
		}
		return nil
	})
}

func (a *app) cmdTimelapse(ctx context.Context, args []string) error {
	c := a.cfg.Capture
	fs := flag.NewFlagSet("timelapse", flag.ContinueOnError)
	fs.SetOutput(a.out)
	count := fs.Int("count", c.Count, "number of photos, 0 runs until interrupted")
	interval := fs.Duration("interval", a.cfg.CaptureInterval(), "time between shots")
	dir := fs.String("o", c.OutputDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	if *count < 0 || *interval < 0 {
		return usageErr("count and interval must not be negative")
	}

	res, err := a.timelapse(ctx, *count, *interval, *dir)
	fmt.Fprintf(a.out, "%d taken, %d failed\n", res.Taken, res.Failed)
	for _, f := range res.Files {
		fmt.Fprintln(a.out, f)
	}
	return err
}

// timelapse runs a sequence with the configured reconnect policy.
func (a *app) timelapse(ctx context.Context, count int, interval time.Duration, dir string) (capture.Result, error) {
	cc := a.cfg.Camera
	if !a.cam.IsConnected() {
		if err := a.cam.TryConnect(ctx, cc.Model, cc.Port); err != nil {
			if !a.cfg.Capture.Reconnect {
				return capture.Result{}, err
			}
			debug.Info("Camera not ready, the timelapse will wait for it")
		}
	}
	seq := capture.NewSequence(a.cam)
	return seq.RunTimelapse(ctx, capture.TimelapseParams{
		Count:         count,
		Interval:      interval,
		OutputDir:     dir,
		Reconnect:     a.cfg.Capture.Reconnect,
		RetryInterval: a.cfg.RetryInterval(),
		Model:         cc.Model,
		Port:          cc.Port,
	})
}
