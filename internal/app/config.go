// Package app wires the emulator core to a frontend: configuration, ROM
// loading, the frame loop and the optional recorders.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kazuhito-m/nes-emulator-study/internal/graphics"
	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Scale      int  `json:"scale"` // multiple of 256x240
	Fullscreen bool `json:"fullscreen"`
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend         string  `json:"backend"` // "ebitengine", "headless", "terminal"
	VSync           bool    `json:"vsync"`
	Filter          string  `json:"filter"` // "nearest", "linear"
	Brightness      float32 `json:"brightness"`
	Contrast        float32 `json:"contrast"`
	Saturation      float32 `json:"saturation"`
	TerminalColumns int     `json:"terminal_columns"`
}

// AudioConfig contains audio configuration
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	BufferSize int     `json:"buffer_size"` // samples held for the device
	Volume     float64 `json:"volume"`
	WavPath    string  `json:"wav_path"` // record APU output when set
}

// InputConfig contains the controller layouts
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
	Player2Keys KeyMapping `json:"player2_keys"`
}

// KeyMapping names the host key for each NES controller button. Empty
// fields keep the default key.
type KeyMapping struct {
	Up     string `json:"up,omitempty"`
	Down   string `json:"down,omitempty"`
	Left   string `json:"left,omitempty"`
	Right  string `json:"right,omitempty"`
	A      string `json:"a,omitempty"`
	B      string `json:"b,omitempty"`
	Start  string `json:"start,omitempty"`
	Select string `json:"select,omitempty"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	FrameRate float64 `json:"frame_rate"` // pacing for loops without vsync
	MaxFrames uint64  `json:"max_frames"` // stop after this many frames, 0 runs until closed
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging bool   `json:"enable_logging"`
	TracePath     string `json:"trace_path"`  // nestest-style instruction log
	TraceLimit    uint64 `json:"trace_limit"` // 0 for no limit
	MemvizPath    string `json:"memviz_path"` // Graphviz snapshot written at exit
	DumpFrames    []int  `json:"dump_frames"` // headless PPM dumps
	PictureDumps  int    `json:"picture_dumps"`
	Statsview     bool   `json:"statsview"`
	StatsviewAddr string `json:"statsview_addr"`
	Watch         []int  `json:"watch"` // CPU addresses whose writes are logged
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROM       string `json:"rom"`
	OutputDir string `json:"output_dir"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Scale: 3,
		},
		Video: VideoConfig{
			Backend:    "ebitengine",
			VSync:      true,
			Filter:     "nearest",
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
		},
		Audio: AudioConfig{
			Enabled:    true,
			BufferSize: 4096,
			Volume:     0.8,
		},
		Emulation: EmulationConfig{
			FrameRate: 60.0988,
		},
		Debug: DebugConfig{
			StatsviewAddr: "localhost:12600",
		},
		Paths: PathsConfig{
			OutputDir: "./output",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// validate rejects values that cannot work and resets out-of-range
// tuning values to their defaults.
func (c *Config) validate() error {
	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless, graphics.BackendTerminal:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: errors.New("unknown backend")}
	}

	switch c.Video.Filter {
	case "nearest", "linear":
	case "":
		c.Video.Filter = "nearest"
	default:
		return &ConfigError{Field: "video.filter", Value: c.Video.Filter, Err: errors.New("unknown filter")}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}

	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}

	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}

	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = 4096
	}

	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 0.8
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0988
	}

	for _, addr := range c.Debug.Watch {
		if addr < 0 || addr > 0xFFFF {
			return &ConfigError{Field: "debug.watch", Value: addr, Err: errors.New("not a CPU address")}
		}
	}

	if _, err := c.KeyMap(); err != nil {
		return err
	}
	return nil
}

// createDirectories creates the output directory when something will be
// written there.
func (c *Config) createDirectories() error {
	if len(c.Debug.DumpFrames) == 0 && c.Debug.PictureDumps == 0 {
		return nil
	}
	if c.Paths.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Paths.OutputDir, err)
	}
	return nil
}

// KeyMap applies both players' key mappings over the default layout.
func (c *Config) KeyMap() (graphics.KeyMap, error) {
	keys := graphics.DefaultKeyMap()
	players := []struct {
		pad     input.PadID
		mapping KeyMapping
		field   string
	}{
		{input.Pad1, c.Input.Player1Keys, "input.player1_keys"},
		{input.Pad2, c.Input.Player2Keys, "input.player2_keys"},
	}
	for _, p := range players {
		buttons := []struct {
			key    string
			button input.Button
		}{
			{p.mapping.Up, input.ButtonUp},
			{p.mapping.Down, input.ButtonDown},
			{p.mapping.Left, input.ButtonLeft},
			{p.mapping.Right, input.ButtonRight},
			{p.mapping.A, input.ButtonA},
			{p.mapping.B, input.ButtonB},
			{p.mapping.Start, input.ButtonStart},
			{p.mapping.Select, input.ButtonSelect},
		}
		for _, b := range buttons {
			if b.key == "" {
				continue
			}
			if err := keys.Bind(strings.ToLower(b.key), p.pad, b.button); err != nil {
				return nil, &ConfigError{Field: p.field, Value: b.key, Err: err}
			}
		}
	}
	return keys, nil
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return 256 * c.Window.Scale, 240 * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/nesemu.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
