package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	// Create a real configs/ directory so filepath.Abs resolves correctly.
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"configs/../../../etc/shadow",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default.txt",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_NotInConfigsDir(t *testing.T) {
	cases := []string{
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for path outside configs/ %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

func TestValidateConfigPath_VeryLongPath(t *testing.T) {
	long := "configs/" + strings.Repeat("a", 1000) + ".yaml"
	// Should not panic; error or success is OS-dependent, but must not crash.
	_ = ValidateConfigPath(long)
}

func TestValidateConfigPath_SpecialChars(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		wantErr bool
	}{
		{"con fig.yaml", false},
		{"café.yaml", false},
	}
	for _, tc := range cases {
		path := filepath.Join(cfgDir, tc.name)
		err := ValidateConfigPath(path)
		if tc.wantErr && err == nil {
			t.Errorf("expected error for %q, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("unexpected error for %q: %v", tc.name, err)
		}
	}
}

func TestValidateConfigPath_DoubleTraversal(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Try to escape via ../../configs/ok.yaml; filepath.Clean resolves this
	// and the parent must still be "configs".
	path := filepath.Join(cfgDir, "../../configs/ok.yaml")
	err := ValidateConfigPath(path)
	// After Clean the parent may or may not be "configs" depending on resolution.
	// The important thing is it either succeeds with a valid parent or fails.
	_ = err
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
camera:
  backend: "gphoto2"
  model: "Canon EOS R5"
  port: "usb:001,002"
  gphoto2_path: "/usr/bin/gphoto2"
  retry_interval_ms: 2000
  op_timeout_ms: 15000
  decode: false
prepare:
  type: "killall"
  kill_processes: ["PTPCamera", "gvfs-gphoto2-volume-monitor"]
settings:
  aperture: "f-number"
  iso: "iso"
  shutter_speed: "shutterspeed2"
capture:
  output_dir: "/var/lib/camctl"
  count: 120
  interval_ms: 30000
  reconnect: true
web:
  advertise: true
  instance_name: "studio"
defaults:
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Model != "Canon EOS R5" {
		t.Errorf("camera.model = %q, want %q", cfg.Camera.Model, "Canon EOS R5")
	}
	if cfg.Camera.Port != "usb:001,002" {
		t.Errorf("camera.port = %q", cfg.Camera.Port)
	}
	if cfg.RetryInterval() != 2*time.Second {
		t.Errorf("RetryInterval = %v, want 2s", cfg.RetryInterval())
	}
	if cfg.OpTimeout() != 15*time.Second {
		t.Errorf("OpTimeout = %v, want 15s", cfg.OpTimeout())
	}
	if cfg.DecodeEnabled() {
		t.Error("decode should be disabled")
	}
	if len(cfg.Prepare.KillProcesses) != 2 {
		t.Errorf("kill_processes = %v", cfg.Prepare.KillProcesses)
	}
	if cfg.Settings.Aperture != "f-number" {
		t.Errorf("settings.aperture = %q, want f-number", cfg.Settings.Aperture)
	}
	if cfg.Settings.BatteryLevel != "batterylevel" {
		t.Errorf("settings.battery_level default = %q", cfg.Settings.BatteryLevel)
	}
	if cfg.CaptureInterval() != 30*time.Second {
		t.Errorf("CaptureInterval = %v, want 30s", cfg.CaptureInterval())
	}
	if !cfg.Capture.Reconnect || cfg.Capture.Count != 120 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if !cfg.Web.Advertise || cfg.Web.InstanceName != "studio" {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Defaults.DebugLevel != 2 {
		t.Errorf("debug_level = %d, want 2", cfg.Defaults.DebugLevel)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, "camera:\n  model: \"Nikon DSC D90\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Backend != BackendGphoto2 {
		t.Errorf("backend default = %q, want gphoto2", cfg.Camera.Backend)
	}
	if cfg.Camera.RetryIntervalMs != 5000 {
		t.Errorf("retry_interval_ms default = %d, want 5000", cfg.Camera.RetryIntervalMs)
	}
	if cfg.OpTimeout() != 0 {
		t.Errorf("op_timeout default = %v, want none", cfg.OpTimeout())
	}
	if !cfg.DecodeEnabled() {
		t.Error("decode should default to enabled")
	}
	if cfg.Prepare.Type != PrepareNone {
		t.Errorf("prepare.type default = %q", cfg.Prepare.Type)
	}
	want := SettingsConfig{
		Aperture:     "aperture",
		ISO:          "iso",
		ShutterSpeed: "shutterspeed",
		FocalLength:  "focallength",
		ImageQuality: "imagequality",
		BatteryLevel: "batterylevel",
		AutoFocus:    "autofocusdrive",
	}
	if cfg.Settings != want {
		t.Errorf("settings defaults = %+v, want %+v", cfg.Settings, want)
	}
	if cfg.Capture.IntervalMs != 1000 || cfg.Capture.OutputDir != "captures" {
		t.Errorf("capture defaults = %+v", cfg.Capture)
	}
	if cfg.Web.InstanceName != "camctl" {
		t.Errorf("instance_name default = %q", cfg.Web.InstanceName)
	}
}

func TestDefault_MatchesEmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("empty file should load with defaults: %v", err)
	}
	def := Default()
	if def.Camera.RetryIntervalMs != cfg.Camera.RetryIntervalMs || def.Settings != cfg.Settings {
		t.Errorf("Default() = %+v, want %+v", def, cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "camera:\n  backend: libusb\n"},
		{"negative retry", "camera:\n  retry_interval_ms: -1\n"},
		{"negative timeout", "camera:\n  op_timeout_ms: -5\n"},
		{"unknown prepare", "prepare:\n  type: reboot\n"},
		{"wake without pin", "prepare:\n  type: gpio_wake\n"},
		{"negative count", "capture:\n  count: -3\n"},
		{"negative interval", "capture:\n  interval_ms: -3\n"},
		{"debug level", "defaults:\n  debug_level: 9\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s, got nil", tc.name)
			}
		})
	}
}

func TestLoad_PrepareDefaults(t *testing.T) {
	path := writeConfig(t, "prepare:\n  type: killall\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Prepare.KillProcesses) != 1 || cfg.Prepare.KillProcesses[0] != "PTPCamera" {
		t.Errorf("kill_processes default = %v", cfg.Prepare.KillProcesses)
	}

	path = writeConfig(t, "prepare:\n  type: gpio_wake\n  wake_pin: 24\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WakeHold() != 300*time.Millisecond || cfg.WakeSettle() != 2*time.Second {
		t.Errorf("wake timings = %v/%v", cfg.WakeHold(), cfg.WakeSettle())
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "big.yaml")
	data := make([]byte, MaxConfigFileBytes+1)
	for i := range data {
		data[i] = '#'
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	yaml := `
camera:
  backend: simulated
unknown_section:
  foo: bar
`
	path := writeConfig(t, yaml)
	_, err := Load(path)
	if err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "nonexistent.yaml")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoad_RepoDefaultConfig(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "default.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("default config not present: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("configs/default.yaml: %v", err)
	}
}
