package camera

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/cjeanneret/camctl/internal/debug"
)

// Preparer runs before each connect attempt. Errors are logged and the
// attempt goes ahead.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// PreparerFunc adapts a function to Preparer.
type PreparerFunc func(ctx context.Context) error

func (f PreparerFunc) Prepare(ctx context.Context) error { return f(ctx) }

// NopPreparer does nothing.
type NopPreparer struct{}

func (NopPreparer) Prepare(context.Context) error { return nil }

// ProcessKiller kills processes that hold the camera's USB interface, such
// as the macOS PTPCamera daemon or gvfs-gphoto2-volume-monitor.
type ProcessKiller struct {
	Names []string
	// Command is the kill tool; empty means killall.
	Command string
}

func (k ProcessKiller) Prepare(ctx context.Context) error {
	bin := k.Command
	if bin == "" {
		bin = "killall"
	}
	var errs []error
	for _, name := range k.Names {
		debug.Trace("pre-connect: %s -KILL %s", bin, name)
		err := exec.CommandContext(ctx, bin, "-KILL", name).Run()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			// A non-zero exit only means nothing was running.
			errs = append(errs, fmt.Errorf("kill %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
