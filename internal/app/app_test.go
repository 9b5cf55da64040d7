package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/graphics"
	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

// writeLoopROM writes a cartridge that spins on JMP $8000.
func writeLoopROM(t *testing.T) string {
	t.Helper()
	rom, err := cartridge.NewROMBuilder().WithCode(0x8000, 0x4C, 0x00, 0x80).Build()
	if err != nil {
		t.Fatalf("Failed to build ROM: %v", err)
	}
	path := filepath.Join(t.TempDir(), "loop.nes")
	if err := os.WriteFile(path, rom, 0644); err != nil {
		t.Fatalf("Failed to write ROM: %v", err)
	}
	return path
}

func headlessConfig(t *testing.T) *Config {
	t.Helper()
	config := NewConfig()
	config.Video.Backend = "headless"
	config.Paths.OutputDir = filepath.Join(t.TempDir(), "out")
	return config
}

func TestNewApplicationRejectsUnknownBackend(t *testing.T) {
	config := NewConfig()
	config.Video.Backend = "sdl2"

	_, err := NewApplication(config)
	var appErr *ApplicationError
	if !errors.As(err, &appErr) || appErr.Component != "config" {
		t.Fatalf("Expected config ApplicationError, got %v", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "video.backend" {
		t.Errorf("Expected ConfigError for video.backend, got %v", err)
	}
}

func TestHeadlessDefaultsToFrameLimit(t *testing.T) {
	config := headlessConfig(t)
	app, err := NewApplication(config)
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	defer app.Cleanup()

	if config.Emulation.MaxFrames != defaultHeadlessFrames {
		t.Errorf("Expected MaxFrames %d, got %d", defaultHeadlessFrames, config.Emulation.MaxFrames)
	}
	if app.graphicsBackend.GetName() != "Headless" {
		t.Errorf("Expected Headless backend, got %s", app.graphicsBackend.GetName())
	}
}

func TestLoadROMErrors(t *testing.T) {
	app, err := NewApplication(headlessConfig(t))
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	defer app.Cleanup()

	if err := app.Run(); err == nil {
		t.Error("Expected Run to fail without a ROM")
	}

	if err := app.LoadROM(filepath.Join(t.TempDir(), "missing.nes")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.nes")
	os.WriteFile(bad, []byte("not a rom at all"), 0644)
	err = app.LoadROM(bad)
	if !errors.Is(err, cartridge.ErrInvalidMagic) {
		t.Errorf("Expected ErrInvalidMagic, got %v", err)
	}
}

func TestLoadROMFailureReleasesRecorders(t *testing.T) {
	dir := t.TempDir()
	config := headlessConfig(t)
	config.Debug.TracePath = filepath.Join(dir, "trace.log")
	config.Audio.WavPath = filepath.Join(dir, "out.wav")

	app, err := NewApplication(config)
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	defer app.Cleanup()

	bad := filepath.Join(dir, "bad.nes")
	if err := os.WriteFile(bad, []byte("not a rom at all"), 0644); err != nil {
		t.Fatalf("Failed to write ROM: %v", err)
	}
	if err := app.LoadROM(bad); !errors.Is(err, cartridge.ErrInvalidMagic) {
		t.Fatalf("Expected ErrInvalidMagic, got %v", err)
	}
	for _, path := range []string{config.Debug.TracePath, config.Audio.WavPath} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected %s not to be created, got %v", filepath.Base(path), err)
		}
	}

	config.Debug.TracePath = filepath.Join(dir, "missing", "trace.log")
	err = app.LoadROM(writeLoopROM(t))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) || appErr.Component != "recorder" {
		t.Fatalf("Expected recorder ApplicationError, got %v", err)
	}
	if app.wav != nil || app.trace != nil || app.traceFile != nil {
		t.Error("Expected recorders to be closed after a failed open")
	}
	if app.Emulator() != nil {
		t.Error("Expected no emulator after a failed load")
	}
}

func TestHeadlessRunWithRecorders(t *testing.T) {
	config := headlessConfig(t)
	dir := t.TempDir()
	config.Emulation.MaxFrames = 60
	config.Debug.DumpFrames = []int{2}
	config.Debug.PictureDumps = 1
	config.Debug.TracePath = filepath.Join(dir, "trace.log")
	config.Debug.TraceLimit = 10
	config.Debug.MemvizPath = filepath.Join(dir, "state.dot")
	config.Audio.WavPath = filepath.Join(dir, "out.wav")

	app, err := NewApplication(config)
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	if err := app.LoadROM(writeLoopROM(t)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	if err := app.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if app.GetFrameCount() != 60 {
		t.Errorf("Expected 60 frames, got %d", app.GetFrameCount())
	}
	if err := app.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(config.Paths.OutputDir, "frame_002.ppm")); err != nil {
		t.Errorf("Expected PPM dump of frame 2: %v", err)
	}
	if _, err := os.Stat(filepath.Join(config.Paths.OutputDir, "pictures", "frame_000060.txt")); err != nil {
		t.Errorf("Expected picture dump of frame 60: %v", err)
	}

	trace, err := os.ReadFile(config.Debug.TracePath)
	if err != nil {
		t.Fatalf("Expected trace file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(trace)), "\n")
	if len(lines) != 10 {
		t.Errorf("Expected 10 trace lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "8000  4C 00 80  JMP $8000") {
		t.Errorf("Unexpected first trace line %q", lines[0])
	}

	info, err := os.Stat(config.Audio.WavPath)
	if err != nil {
		t.Fatalf("Expected WAV file: %v", err)
	}
	// 60 frames at ~735 samples of 16-bit mono
	if info.Size() < 60*700*2 {
		t.Errorf("Expected at least %d bytes of WAV, got %d", 60*700*2, info.Size())
	}

	dot, err := os.ReadFile(config.Debug.MemvizPath)
	if err != nil {
		t.Fatalf("Expected memviz file: %v", err)
	}
	if !strings.Contains(string(dot), "digraph") {
		t.Error("Expected memviz output to be a digraph")
	}
}

// scriptedWindow replays input events, one batch per poll.
type scriptedWindow struct {
	batches  [][]graphics.InputEvent
	rendered int
}

func (w *scriptedWindow) SetTitle(string)   {}
func (w *scriptedWindow) ShouldClose() bool { return false }
func (w *scriptedWindow) Cleanup() error    { return nil }

func (w *scriptedWindow) PollEvents() []graphics.InputEvent {
	if len(w.batches) == 0 {
		return nil
	}
	events := w.batches[0]
	w.batches = w.batches[1:]
	return events
}

func (w *scriptedWindow) RenderFrame(*graphics.Frame) error {
	w.rendered++
	return nil
}

func TestProcessInput(t *testing.T) {
	app, err := NewApplication(headlessConfig(t))
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	if err := app.LoadROM(writeLoopROM(t)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	w := &scriptedWindow{batches: [][]graphics.InputEvent{
		{{Type: graphics.InputEventTypeButton, Pad: input.Pad1, Button: input.ButtonStart, Pressed: true}},
		{{Type: graphics.InputEventTypePause, Pressed: true}},
		{{Type: graphics.InputEventTypePause, Pressed: true}},
		{{Type: graphics.InputEventTypeQuit, Pressed: true}},
	}}
	app.window = w
	app.running.Store(true)

	if err := app.updateFrame(); err != nil {
		t.Fatalf("Frame 1 failed: %v", err)
	}
	if app.GetFrameCount() != 1 {
		t.Errorf("Expected 1 frame, got %d", app.GetFrameCount())
	}

	if err := app.updateFrame(); err != nil {
		t.Fatalf("Frame 2 failed: %v", err)
	}
	if !app.runner.IsPaused() || app.GetFrameCount() != 1 {
		t.Errorf("Expected pause to hold the frame count at 1, got %d", app.GetFrameCount())
	}

	if err := app.updateFrame(); err != nil {
		t.Fatalf("Frame 3 failed: %v", err)
	}
	if app.runner.IsPaused() || app.GetFrameCount() != 2 {
		t.Errorf("Expected resumed emulation at frame 2, got %d", app.GetFrameCount())
	}

	if err := app.updateFrame(); !errors.Is(err, errStopped) {
		t.Errorf("Expected quit to stop the loop, got %v", err)
	}
	if w.rendered != 3 {
		t.Errorf("Expected 3 rendered frames, got %d", w.rendered)
	}

	bad := &scriptedWindow{batches: [][]graphics.InputEvent{
		{{Type: graphics.InputEventTypeButton, Pad: input.PadID(7), Button: input.ButtonA, Pressed: true}},
	}}
	app.window = bad
	app.running.Store(true)
	var appErr *ApplicationError
	if err := app.updateFrame(); !errors.As(err, &appErr) || appErr.Component != "input" {
		t.Errorf("Expected input ApplicationError, got %v", err)
	}
}
