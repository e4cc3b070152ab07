package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig creates a temporary configs/ dir with the given YAML content
// and returns the path.
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
log:
  level: debug
working_dir: /var/lib/rticapture
camera:
  driver: mock
  profile: cceh-dome-nikon-d800e
capture:
  max_burst: 5
  lp_template_path: /etc/rticapture/dome60.lp
shutter:
  enabled: true
  mock_gpio: true
  focus_pin: 24
  shutter_pin: 25
  focus_delay_ms: 400
  shutter_delay_ms: 150
led:
  enabled: true
  mock: true
web:
  port: 9000
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Profile != "cceh-dome-nikon-d800e" {
		t.Errorf("camera.profile = %q, want %q", cfg.Camera.Profile, "cceh-dome-nikon-d800e")
	}
	if cfg.WorkingDir != "/var/lib/rticapture" {
		t.Errorf("working_dir = %q", cfg.WorkingDir)
	}
	if cfg.Capture.MaxBurst != 5 {
		t.Errorf("capture.max_burst = %d, want 5", cfg.Capture.MaxBurst)
	}
	if cfg.Capture.LPTemplatePath != "/etc/rticapture/dome60.lp" {
		t.Errorf("capture.lp_template_path = %q", cfg.Capture.LPTemplatePath)
	}
	if cfg.Shutter.FocusPin != 24 || cfg.Shutter.ShutterPin != 25 {
		t.Errorf("shutter pins = %d/%d, want 24/25", cfg.Shutter.FocusPin, cfg.Shutter.ShutterPin)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("web.port = %d, want 9000", cfg.Web.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MissingProfile(t *testing.T) {
	path := writeConfig(t, "working_dir: /tmp/x\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing camera.profile, got nil")
	}
}

func TestLoad_UnknownProfile(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: no-such-rig
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown profile, got nil")
	}
}

func TestLoad_MissingWorkingDir(t *testing.T) {
	yaml := `
camera:
  profile: cceh-dome-nikon-d800e
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing working_dir, got nil")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
`
	path := writeConfig(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.Driver != "mock" {
		t.Errorf("camera.driver default = %q, want mock", cfg.Camera.Driver)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level default = %q, want info", cfg.Log.Level)
	}
	if cfg.Capture.MaxBurst != 10 {
		t.Errorf("capture.max_burst default = %d, want 10", cfg.Capture.MaxBurst)
	}
	if cfg.Web.Port != 8088 {
		t.Errorf("web.port default = %d, want 8088", cfg.Web.Port)
	}
	if cfg.Shutter.FocusDelayMs != 500 {
		t.Errorf("shutter.focus_delay_ms default = %d, want 500", cfg.Shutter.FocusDelayMs)
	}
	if cfg.Shutter.ShutterDelayMs != 200 {
		t.Errorf("shutter.shutter_delay_ms default = %d, want 200", cfg.Shutter.ShutterDelayMs)
	}
}

func TestLoad_ShutterEnabledWithoutPins(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
shutter:
  enabled: true
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for enabled shutter without pins, got nil")
	}
}

func TestLoad_LEDEnabledWithoutDevice(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
led:
  enabled: true
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for enabled led without device, got nil")
	}
}

func TestLoad_LEDMockNeedsNoDevice(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
led:
  enabled: true
  mock: true
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_NegativeMaxBurst(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
capture:
  max_burst: -1
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for negative max_burst, got nil")
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	yaml := `
working_dir: /tmp/x
camera:
  profile: cceh-dome-nikon-d800e
web:
  port: 70000
`
	path := writeConfig(t, yaml)
	if _, err := Load(path); err == nil {
		t.Error("expected error for port > 65535, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "{{{{invalid yaml!!!!")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "configs", "missing.yaml")); err == nil {
		t.Error("expected error for nonexistent file, got nil")
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
	if _, err := Load(path); err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestValidateConfigPath(t *testing.T) {
	cases := []struct {
		path    string
		wantErr bool
	}{
		{"configs/default.yaml", false},
		{"", true},
		{"../../etc/passwd", true},
		{"configs/default.yml", true},
		{"other/default.yaml", true},
		{"default.yaml", true},
	}
	for _, tc := range cases {
		err := ValidateConfigPath(tc.path)
		if tc.wantErr && err == nil {
			t.Errorf("ValidateConfigPath(%q) = nil, want error", tc.path)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("ValidateConfigPath(%q) = %v, want nil", tc.path, err)
		}
	}
}

func TestConfig_Delays(t *testing.T) {
	cfg := &Config{Shutter: ShutterConfig{FocusDelayMs: 400, ShutterDelayMs: 150}}
	if got := cfg.FocusDelay(); got != 400*time.Millisecond {
		t.Errorf("FocusDelay() = %v, want 400ms", got)
	}
	if got := cfg.ShutterDelay(); got != 150*time.Millisecond {
		t.Errorf("ShutterDelay() = %v, want 150ms", got)
	}
}
