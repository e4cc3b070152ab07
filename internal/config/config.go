package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cceh/rticapture/internal/logic/profile"
)

// MaxConfigFileBytes caps the size of a config file accepted by Load.
const MaxConfigFileBytes = 1 << 20

// LogConfig controls log output.
type LogConfig struct {
	Level string `yaml:"level"` // zerolog level name (debug, info, warn, ...)
}

// CameraConfig selects the tethering backend and the camera profile.
type CameraConfig struct {
	Driver  string `yaml:"driver"`  // tether driver name, e.g. "mock"
	Profile string `yaml:"profile"` // capture profile name
}

// CaptureConfig tunes the capture operation.
type CaptureConfig struct {
	MaxBurst       int    `yaml:"max_burst"`        // burst cap per trigger pulse, 0 = no cap
	LPTemplatePath string `yaml:"lp_template_path"` // dome light-position template (.lp)
}

// ShutterConfig describes the GPIO cable release used with manual-trigger
// profiles. GND is physically connected to the controller's ground.
type ShutterConfig struct {
	Enabled        bool `yaml:"enabled"`
	MockGPIO       bool `yaml:"mock_gpio"`        // use mock GPIO (true=dev/test, false=real hardware)
	FocusPin       int  `yaml:"focus_pin"`        // GPIO pin for FOCUS line (BCM)
	ShutterPin     int  `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line (BCM)
	FocusDelayMs   int  `yaml:"focus_delay_ms"`   // half-press hold before the shutter fires (ms)
	ShutterDelayMs int  `yaml:"shutter_delay_ms"` // shutter hold time (ms)
}

// LEDConfig describes the dome light controller link.
type LEDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"` // serial device node, e.g. /dev/rfcomm0
	Mock    bool   `yaml:"mock"`   // use the in-memory controller
}

// WebConfig configures the control API.
type WebConfig struct {
	Port int `yaml:"port"`
}

// Config aggregates all application configuration.
type Config struct {
	Log        LogConfig     `yaml:"log"`
	WorkingDir string        `yaml:"working_dir"` // root for session directories
	Camera     CameraConfig  `yaml:"camera"`
	Capture    CaptureConfig `yaml:"capture"`
	Shutter    ShutterConfig `yaml:"shutter"`
	LED        LEDConfig     `yaml:"led"`
	Web        WebConfig     `yaml:"web"`
}

// ValidateConfigPath checks that a user-supplied config path stays inside a
// configs/ directory and carries the .yaml extension.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("config path %q escapes the configs directory", path)
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension, got %q", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must live in a configs/ directory, got %q", path)
	}
	return nil
}

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Camera.Profile == "" {
		return nil, fmt.Errorf("camera.profile is required")
	}
	if _, err := profile.ByName(cfg.Camera.Profile); err != nil {
		return nil, fmt.Errorf("camera.profile: %w", err)
	}
	if cfg.WorkingDir == "" {
		return nil, fmt.Errorf("working_dir is required")
	}
	if cfg.Camera.Driver == "" {
		cfg.Camera.Driver = "mock"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Capture.MaxBurst < 0 {
		return nil, fmt.Errorf("capture.max_burst must be >= 0, got %d", cfg.Capture.MaxBurst)
	}
	if cfg.Capture.MaxBurst == 0 {
		cfg.Capture.MaxBurst = 10 // reasonable default for burst-capable bodies
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8088
	}
	if cfg.Web.Port > 65535 {
		return nil, fmt.Errorf("web.port must be <= 65535, got %d", cfg.Web.Port)
	}

	// Default values for cable release timing
	if cfg.Shutter.FocusDelayMs <= 0 {
		cfg.Shutter.FocusDelayMs = 500 // 500ms half-press before firing
	}
	if cfg.Shutter.ShutterDelayMs <= 0 {
		cfg.Shutter.ShutterDelayMs = 200 // 200ms shutter hold
	}
	if cfg.Shutter.Enabled && (cfg.Shutter.FocusPin <= 0 || cfg.Shutter.ShutterPin <= 0) {
		return nil, fmt.Errorf("shutter.focus_pin and shutter.shutter_pin are required when shutter.enabled")
	}
	if cfg.LED.Enabled && !cfg.LED.Mock && cfg.LED.Device == "" {
		return nil, fmt.Errorf("led.device is required when led.enabled")
	}

	return &cfg, nil
}

// FocusDelay returns the half-press hold duration of the cable release.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Shutter.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration of the cable release.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Shutter.ShutterDelayMs) * time.Millisecond
}
