package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

func TestNewConfigDefaults(t *testing.T) {
	config := NewConfig()
	if err := config.validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if config.Video.Backend != "ebitengine" {
		t.Errorf("Expected ebitengine backend, got %s", config.Video.Backend)
	}
	if w, h := config.GetWindowResolution(); w != 768 || h != 720 {
		t.Errorf("Expected 768x720, got %dx%d", w, h)
	}
	if config.IsLoaded() {
		t.Error("Expected a fresh config not to be loaded")
	}
}

func TestLoadFromFileCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "nesemu.json")
	config := NewConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}
	if !strings.Contains(string(data), `"backend": "ebitengine"`) {
		t.Errorf("Expected default backend in written file, got %s", data)
	}
	if config.GetConfigPath() != path {
		t.Errorf("Expected config path %s, got %s", path, config.GetConfigPath())
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		check func(t *testing.T, c *Config, err error)
	}{
		{
			name: "overrides",
			json: `{"video": {"backend": "terminal", "terminal_columns": 64}, "emulation": {"max_frames": 10}}`,
			check: func(t *testing.T, c *Config, err error) {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if c.Video.Backend != "terminal" || c.Video.TerminalColumns != 64 {
					t.Errorf("Expected terminal/64, got %s/%d", c.Video.Backend, c.Video.TerminalColumns)
				}
				if c.Emulation.MaxFrames != 10 {
					t.Errorf("Expected 10 frames, got %d", c.Emulation.MaxFrames)
				}
				if c.Video.Filter != "nearest" {
					t.Errorf("Expected untouched filter, got %s", c.Video.Filter)
				}
				if !c.IsLoaded() {
					t.Error("Expected config to be marked loaded")
				}
			},
		},
		{
			name: "out of range values reset",
			json: `{"video": {"backend": "headless", "brightness": 9}, "audio": {"volume": 2, "buffer_size": -1}, "window": {"scale": 0}}`,
			check: func(t *testing.T, c *Config, err error) {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if c.Video.Brightness != 1.0 || c.Audio.Volume != 0.8 || c.Audio.BufferSize != 4096 || c.Window.Scale != 1 {
					t.Errorf("Expected defaults, got brightness %v volume %v buffer %d scale %d",
						c.Video.Brightness, c.Audio.Volume, c.Audio.BufferSize, c.Window.Scale)
				}
			},
		},
		{
			name: "bad filter",
			json: `{"video": {"filter": "cubic"}}`,
			check: func(t *testing.T, c *Config, err error) {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) || cfgErr.Field != "video.filter" {
					t.Errorf("Expected video.filter ConfigError, got %v", err)
				}
			},
		},
		{
			name: "bad watch address",
			json: `{"debug": {"watch": [65536]}}`,
			check: func(t *testing.T, c *Config, err error) {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) || cfgErr.Field != "debug.watch" {
					t.Errorf("Expected debug.watch ConfigError, got %v", err)
				}
			},
		},
		{
			name: "bad key",
			json: `{"input": {"player1_keys": {"a": "f1"}}}`,
			check: func(t *testing.T, c *Config, err error) {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) || cfgErr.Field != "input.player1_keys" {
					t.Errorf("Expected input.player1_keys ConfigError, got %v", err)
				}
			},
		},
		{
			name: "malformed",
			json: `{"video": `,
			check: func(t *testing.T, c *Config, err error) {
				if err == nil || !strings.Contains(err.Error(), "parse") {
					t.Errorf("Expected parse error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nesemu.json")
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			c := NewConfig()
			tt.check(t, c, c.LoadFromFile(path))
		})
	}
}

func TestConfigKeyMap(t *testing.T) {
	config := NewConfig()
	config.Input.Player1Keys.A = "Z"
	config.Input.Player2Keys.Start = "enter"

	keys, err := config.KeyMap()
	if err != nil {
		t.Fatalf("KeyMap failed: %v", err)
	}
	if b, ok := keys["z"]; !ok || b.Pad != input.Pad1 || b.Button != input.ButtonA {
		t.Errorf("Expected z to be player 1 A, got %+v", b)
	}
	if _, ok := keys["j"]; ok {
		t.Error("Expected j to be unbound")
	}
	if b := keys["enter"]; b.Pad != input.Pad2 || b.Button != input.ButtonStart {
		t.Errorf("Expected enter to be player 2 Start, got %+v", b)
	}
	if b := keys["k"]; b.Button != input.ButtonB {
		t.Errorf("Expected k to keep player 1 B, got %+v", b)
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Field: "video.backend", Value: "x", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Expected ConfigError to unwrap")
	}
	if want := "config error in field 'video.backend' with value 'x': boom"; err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
