package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(level)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestLevelOff_PrintsNothing(t *testing.T) {
	buf := capture(t, LevelOff)
	Info("hidden")
	Error(os.ErrNotExist)
	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelLive)
	Info("info line")
	Attempt(2, "", "")
	Shot(1, "/DCIM/IMG_0001.JPG", 42)
	Verbose("verbose line")
	Trace("trace line")

	out := buf.String()
	for _, want := range []string{
		"[INFO] info line",
		"Connection attempt 2 (auto-detect)",
		"Photo 1 taken: /DCIM/IMG_0001.JPG (42 bytes)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "verbose line") || strings.Contains(out, "trace line") {
		t.Errorf("level 2 should hide verbose and trace:\n%s", out)
	}
}

func TestTraceHelpers(t *testing.T) {
	buf := capture(t, LevelTrace)
	Call("capture", -7)
	GPIO("write", 24, "LOW")
	State("connecting", "connected")

	out := buf.String()
	for _, want := range []string{
		"[CALL] capture -> -7",
		"[GPIO] write pin=24 value=LOW",
		"Camera state: connecting -> connected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, prefix) {
		t.Errorf("lines should start with %q, got %q", prefix, out)
	}
}

func TestIsEnabled(t *testing.T) {
	capture(t, LevelVerbose)
	if !IsEnabled(LevelInfo) || !IsEnabled(LevelVerbose) {
		t.Error("levels up to verbose should be enabled")
	}
	if IsEnabled(LevelTrace) {
		t.Error("trace should be disabled at level 3")
	}
}

func TestSetOutputAfterInit(t *testing.T) {
	capture(t, LevelInfo)
	var other bytes.Buffer
	SetOutput(&other)
	Info("moved")
	if !strings.Contains(other.String(), "moved") {
		t.Errorf("SetOutput after Init should redirect, got %q", other.String())
	}
}
