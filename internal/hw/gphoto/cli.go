package gphoto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/gabriel-vasile/mimetype"
)

// Runner executes the gphoto2 tool. Failures are reported as Result values.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs a gphoto2 binary with os/exec.
type ExecRunner struct {
	Path string
}

// Run executes the binary and returns stdout. On failure the result code is
// recovered from the diagnostics on stderr.
func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	bin := r.Path
	if bin == "" {
		bin = "gphoto2"
	}
	if debug.IsEnabled(debug.LevelTrace) {
		debug.Trace("exec: %s %s", bin, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, AsResult(ctxErr)
	}
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return nil, fmt.Errorf("%s: %v: %w", bin, err, ErrorLibrary)
	}
	code := parseStderr(stderr.Bytes())
	debug.Verbose("gphoto2 %s failed (%d): %s", args[len(args)-1], int(code), strings.TrimSpace(stderr.String()))
	return stdout.Bytes(), code
}

// CLIDriver implements Driver on top of the gphoto2 command-line tool.
// Each primitive is one process run.
type CLIDriver struct {
	runner Runner
	tmpDir string
}

// NewCLIDriver creates a driver. tmpDir receives downloaded captures; an
// empty value uses the system temporary directory.
func NewCLIDriver(runner Runner, tmpDir string) *CLIDriver {
	return &CLIDriver{runner: runner, tmpDir: tmpDir}
}

func (d *CLIDriver) Autodetect(ctx context.Context) ([]Detected, error) {
	out, err := d.runner.Run(ctx, "--auto-detect")
	if err != nil {
		return nil, err
	}
	return parseAutodetect(out), nil
}

func (d *CLIDriver) LoadAbilities(ctx context.Context) (AbilitiesList, error) {
	out, err := d.runner.Run(ctx, "--list-cameras")
	if err != nil {
		return nil, err
	}
	list := parseCameraList(out)
	if len(list) == 0 {
		return nil, ErrorLibrary
	}
	return NewAbilitiesList(list), nil
}

func (d *CLIDriver) LoadPortInfo(ctx context.Context) (PortInfoList, error) {
	out, err := d.runner.Run(ctx, "--list-ports")
	if err != nil {
		return nil, err
	}
	return NewPortInfoList(parsePortList(out)), nil
}

func (d *CLIDriver) NewDevice() (Device, error) {
	dir, err := os.MkdirTemp(d.tmpDir, "camctl-")
	if err != nil {
		return nil, fmt.Errorf("create download dir: %v: %w", err, ErrorOSFailure)
	}
	return &cliDevice{runner: d.runner, dir: dir, saved: make(map[string]string)}, nil
}

type cliDevice struct {
	runner Runner
	model  string
	port   string
	dir    string
	// saved maps a device-side path to the local download of the last capture.
	saved map[string]string
}

func (c *cliDevice) args(extra ...string) []string {
	var a []string
	if c.model != "" {
		a = append(a, "--camera", c.model)
	}
	if c.port != "" {
		a = append(a, "--port", c.port)
	}
	return append(a, extra...)
}

func (c *cliDevice) SetAbilities(a Abilities) error {
	c.model = a.Model
	return nil
}

// SetPortInfo binds the address. Generic entries ("usb:") leave the choice
// of device to gphoto2.
func (c *cliDevice) SetPortInfo(p PortInfo) error {
	c.port = p.Path
	return nil
}

// Init opens the camera. Without a full binding the first auto-detected
// camera is bound, so later runs address that device and fail once it is
// unplugged instead of picking up whatever is attached.
func (c *cliDevice) Init(ctx context.Context) error {
	if c.model == "" || c.port == "" {
		out, err := c.runner.Run(ctx, "--auto-detect")
		if err != nil {
			return err
		}
		found := parseAutodetect(out)
		i := slices.IndexFunc(found, func(d Detected) bool {
			return (c.model == "" || strings.EqualFold(d.Model, c.model)) &&
				(c.port == "" || strings.HasSuffix(c.port, ":") || d.Port == c.port)
		})
		if i < 0 {
			return ErrorModelNotFound
		}
		c.model, c.port = found[i].Model, found[i].Port
		debug.Verbose("Auto-detected %q at %s", c.model, c.port)
	}
	_, err := c.runner.Run(ctx, c.args("--summary")...)
	return err
}

// run executes one in-session command. A bound camera that gphoto2 no
// longer finds has been unplugged, which is a port fault.
func (c *cliDevice) run(ctx context.Context, extra ...string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.args(extra...)...)
	if AsResult(err) == ErrorModelNotFound {
		return out, fmt.Errorf("%s at %s: %v: %w", c.model, c.port, err, ErrorIOUSBFind)
	}
	return out, err
}

func (c *cliDevice) Config(ctx context.Context) (*Widget, error) {
	out, err := c.run(ctx, "--list-all-config")
	if err != nil {
		return nil, err
	}
	blocks, err := parseConfigBlocks(out)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrorCorruptedData)
	}
	return buildTree(blocks)
}

func (c *cliDevice) SingleConfig(ctx context.Context, name string) (*Widget, error) {
	out, err := c.run(ctx, "--get-config", name)
	if err != nil {
		return nil, err
	}
	blocks, err := parseConfigBlocks(out)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrorCorruptedData)
	}
	if len(blocks) != 1 {
		return nil, ErrorBadParameters
	}
	return blocks[0].widget(path.Base(name))
}

func (c *cliDevice) SetConfig(ctx context.Context, root *Widget) error {
	var sets []string
	var ferr error
	root.Walk(func(w *Widget) {
		if ferr != nil || !w.Changed() {
			return
		}
		val, err := formatForCLI(w)
		if err != nil {
			ferr = err
			return
		}
		sets = append(sets, "--set-config-value", w.Path()+"="+val)
	})
	if ferr != nil {
		return ferr
	}
	if len(sets) == 0 {
		return nil
	}
	_, err := c.run(ctx, sets...)
	return err
}

func (c *cliDevice) SetSingleConfig(ctx context.Context, name string, w *Widget) error {
	val, err := formatForCLI(w)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, "--set-config-value", name+"="+val)
	return err
}

// Capture shoots and downloads in one run; FileGet then serves the download.
// The tool offers no way to fetch a file by its device path afterwards.
func (c *cliDevice) Capture(ctx context.Context, fp *FilePath) error {
	pattern := filepath.Join(c.dir, "capture-%n.%C")
	out, err := c.run(ctx,
		"--capture-image-and-download", "--keep", "--force-overwrite",
		"--filename", pattern)
	if err != nil {
		return err
	}
	locations, saved := parseCaptureOutput(out)
	if len(locations) == 0 || len(locations) != len(saved) {
		return ErrorCorruptedData
	}
	c.discard()
	pick := -1
	for i, loc := range locations {
		c.saved[loc] = saved[i]
		if pick < 0 && isJPEGName(loc) {
			pick = i
		}
	}
	if pick < 0 {
		pick = 0
	}
	fp.Folder = path.Dir(locations[pick])
	fp.Name = path.Base(locations[pick])
	return nil
}

func isJPEGName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

// discard removes downloads that were never fetched.
func (c *cliDevice) discard() {
	for loc, local := range c.saved {
		_ = os.Remove(local)
		delete(c.saved, loc)
	}
}

func (c *cliDevice) CapturePreview(ctx context.Context, f *File) error {
	out, err := c.run(ctx, "--capture-preview", "--stdout")
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return ErrorCorruptedData
	}
	f.SetData("preview.jpg", mimetype.Detect(out).String(), out)
	return nil
}

func (c *cliDevice) FileGet(ctx context.Context, folder, name string, f *File) error {
	loc := path.Join(folder, name)
	local, ok := c.saved[loc]
	if !ok {
		return ErrorFileNotFound
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("read %s: %v: %w", local, err, ErrorOSFailure)
	}
	_ = os.Remove(local)
	delete(c.saved, loc)
	f.SetData(name, mimetype.Detect(data).String(), data)
	return nil
}

func (c *cliDevice) Exit(ctx context.Context) error {
	c.discard()
	return nil
}

func (c *cliDevice) Free() error {
	c.discard()
	return os.RemoveAll(c.dir)
}
