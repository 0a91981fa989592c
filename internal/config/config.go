package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 64 * 1024

// Camera backends.
const (
	BackendGphoto2   = "gphoto2"
	BackendSimulated = "simulated"
)

// Pre-connect hook types.
const (
	PrepareNone     = "none"
	PrepareKillall  = "killall"
	PrepareGPIOWake = "gpio_wake"
)

// CameraConfig describes how to reach the camera.
// Backend selects the device library (e.g., "gphoto2").
type CameraConfig struct {
	Backend         string `yaml:"backend"`           // "gphoto2" or "simulated"
	Model           string `yaml:"model"`             // e.g., "Canon EOS R5"; empty = auto-detect
	Port            string `yaml:"port"`              // e.g., "usb:001,002"; empty = auto-detect
	Gphoto2Path     string `yaml:"gphoto2_path"`      // gphoto2 binary; empty = search PATH
	DownloadDir     string `yaml:"download_dir"`      // scratch dir for downloads; empty = system temp
	RetryIntervalMs int    `yaml:"retry_interval_ms"` // delay between connect attempts (ms)
	OpTimeoutMs     int    `yaml:"op_timeout_ms"`     // per round-trip timeout (ms); 0 = none
	Decode          *bool  `yaml:"decode"`            // decode captures (default: true)
}

// PrepareConfig selects what runs before each connect attempt.
type PrepareConfig struct {
	Type          string   `yaml:"type"`           // "none", "killall" or "gpio_wake"
	KillProcesses []string `yaml:"kill_processes"` // for killall
	KillCommand   string   `yaml:"kill_command"`   // for killall; empty = killall
	WakePin       int      `yaml:"wake_pin"`       // for gpio_wake: FOCUS line (BCM)
	WakeHoldMs    int      `yaml:"wake_hold_ms"`   // half-press duration (ms)
	WakeSettleMs  int      `yaml:"wake_settle_ms"` // wait after the pulse (ms)
}

// SettingsConfig maps the convenience accessors to device setting names.
// They differ between camera drivers.
type SettingsConfig struct {
	Aperture     string `yaml:"aperture"`
	ISO          string `yaml:"iso"`
	ShutterSpeed string `yaml:"shutter_speed"`
	FocalLength  string `yaml:"focal_length"`
	ImageQuality string `yaml:"image_quality"`
	BatteryLevel string `yaml:"battery_level"`
	AutoFocus    string `yaml:"autofocus"`
}

// CaptureConfig holds timelapse parameters.
type CaptureConfig struct {
	OutputDir  string `yaml:"output_dir"`  // where photos are written
	Count      int    `yaml:"count"`       // number of photos; 0 = until stopped
	IntervalMs int    `yaml:"interval_ms"` // time between shots (ms)
	Reconnect  bool   `yaml:"reconnect"`   // wait for the camera after a disconnection
}

// WebConfig holds options of the control server.
type WebConfig struct {
	Advertise    bool   `yaml:"advertise"`     // announce the server over mDNS
	InstanceName string `yaml:"instance_name"` // mDNS instance name
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Prepare  PrepareConfig  `yaml:"prepare"`
	Settings SettingsConfig `yaml:"settings"`
	Capture  CaptureConfig  `yaml:"capture"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath checks that path names a .yaml file directly inside a
// directory called "configs" and does not climb out of it.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	_ = cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() error {
	switch cfg.Camera.Backend {
	case "":
		cfg.Camera.Backend = BackendGphoto2
	case BackendGphoto2, BackendSimulated:
	default:
		return fmt.Errorf("camera.backend must be %q or %q, got %q", BackendGphoto2, BackendSimulated, cfg.Camera.Backend)
	}
	if cfg.Camera.RetryIntervalMs < 0 {
		return fmt.Errorf("camera.retry_interval_ms must be >= 0, got %d", cfg.Camera.RetryIntervalMs)
	}
	if cfg.Camera.RetryIntervalMs == 0 {
		cfg.Camera.RetryIntervalMs = 5000 // one attempt every 5s
	}
	if cfg.Camera.OpTimeoutMs < 0 {
		return fmt.Errorf("camera.op_timeout_ms must be >= 0, got %d", cfg.Camera.OpTimeoutMs)
	}

	switch cfg.Prepare.Type {
	case "":
		cfg.Prepare.Type = PrepareNone
	case PrepareNone:
	case PrepareKillall:
		if len(cfg.Prepare.KillProcesses) == 0 {
			cfg.Prepare.KillProcesses = []string{"PTPCamera"}
		}
	case PrepareGPIOWake:
		if cfg.Prepare.WakePin <= 0 {
			return fmt.Errorf("prepare.wake_pin is required for %s", PrepareGPIOWake)
		}
		if cfg.Prepare.WakeHoldMs <= 0 {
			cfg.Prepare.WakeHoldMs = 300
		}
		if cfg.Prepare.WakeSettleMs <= 0 {
			cfg.Prepare.WakeSettleMs = 2000
		}
	default:
		return fmt.Errorf("prepare.type must be none, killall or gpio_wake, got %q", cfg.Prepare.Type)
	}

	s := &cfg.Settings
	setDefault(&s.Aperture, "aperture")
	setDefault(&s.ISO, "iso")
	setDefault(&s.ShutterSpeed, "shutterspeed")
	setDefault(&s.FocalLength, "focallength")
	setDefault(&s.ImageQuality, "imagequality")
	setDefault(&s.BatteryLevel, "batterylevel")
	setDefault(&s.AutoFocus, "autofocusdrive")

	if cfg.Capture.Count < 0 {
		return fmt.Errorf("capture.count must be >= 0, got %d", cfg.Capture.Count)
	}
	if cfg.Capture.IntervalMs < 0 {
		return fmt.Errorf("capture.interval_ms must be >= 0, got %d", cfg.Capture.IntervalMs)
	}
	if cfg.Capture.IntervalMs == 0 {
		cfg.Capture.IntervalMs = 1000
	}
	if cfg.Capture.OutputDir == "" {
		cfg.Capture.OutputDir = "captures"
	}

	if cfg.Web.InstanceName == "" {
		cfg.Web.InstanceName = "camctl"
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// RetryInterval returns the delay between two connect attempts.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Camera.RetryIntervalMs) * time.Millisecond
}

// OpTimeout returns the per round-trip timeout, zero for none.
func (c *Config) OpTimeout() time.Duration {
	return time.Duration(c.Camera.OpTimeoutMs) * time.Millisecond
}

// DecodeEnabled reports whether captures are decoded.
func (c *Config) DecodeEnabled() bool {
	return c.Camera.Decode == nil || *c.Camera.Decode
}

// WakeHold returns the half-press duration of the wake pulse.
func (c *Config) WakeHold() time.Duration {
	return time.Duration(c.Prepare.WakeHoldMs) * time.Millisecond
}

// WakeSettle returns the wait after the wake pulse.
func (c *Config) WakeSettle() time.Duration {
	return time.Duration(c.Prepare.WakeSettleMs) * time.Millisecond
}

// CaptureInterval returns the time between two timelapse shots.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.Capture.IntervalMs) * time.Millisecond
}
