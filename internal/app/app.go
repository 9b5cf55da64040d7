package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/debug"
	"github.com/kazuhito-m/nes-emulator-study/internal/emulator"
	"github.com/kazuhito-m/nes-emulator-study/internal/graphics"
	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
	"github.com/kazuhito-m/nes-emulator-study/internal/sound"
	"github.com/kazuhito-m/nes-emulator-study/internal/statsview"
)

const (
	// headless runs without a frame limit stop here
	defaultHeadlessFrames = 600

	pictureDumpInterval = 60
	fpsLogInterval      = 5 * time.Second
)

// errStopped ends the frame loop without an error.
var errStopped = errors.New("stopped")

// audioAttacher is implemented by frontends that can play the APU output.
type audioAttacher interface {
	AttachAudio(src io.Reader, sampleRate int, volume float64) error
}

// Application represents the main NES emulator application
type Application struct {
	config *Config

	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	emu    *emulator.Emulator
	runner *Runner

	stream    *sound.Stream
	wav       *sound.WavRecorder
	sampleErr error

	trace     *debug.TraceLogger
	traceFile *os.File
	dumper    *debug.FrameDumper
	picture   ppu.Picture

	romPath    string
	running    atomic.Bool
	startTime  time.Time
	lastFPSLog time.Time
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication validates config and opens the configured frontend.
func NewApplication(config *Config) (*Application, error) {
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}
	if err := config.createDirectories(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "create directories", Err: err}
	}

	app := &Application{config: config}
	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{Component: "graphics", Operation: "backend setup", Err: err}
	}

	if app.graphicsBackend.IsHeadless() && config.Emulation.MaxFrames == 0 {
		fmt.Printf("[APP_WARNING] headless run without a frame limit, stopping after %d frames\n", defaultHeadlessFrames)
		config.Emulation.MaxFrames = defaultHeadlessFrames
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		config.Video.Brightness,
		config.Video.Contrast,
		config.Video.Saturation,
	)
	return app, nil
}

// initializeGraphicsBackend opens the configured frontend, falling back to
// headless when Ebitengine cannot start (no display, headless build).
func (app *Application) initializeGraphicsBackend() error {
	keys, err := app.config.KeyMap()
	if err != nil {
		return err
	}
	width, height := app.config.GetWindowResolution()
	graphicsConfig := graphics.Config{
		WindowTitle:     "nesemu",
		WindowWidth:     width,
		WindowHeight:    height,
		Fullscreen:      app.config.Window.Fullscreen,
		VSync:           app.config.Video.VSync,
		Filter:          app.config.Video.Filter,
		OutputDir:       app.config.Paths.OutputDir,
		DumpFrames:      app.config.Debug.DumpFrames,
		TerminalColumns: app.config.Video.TerminalColumns,
		Keys:            keys,
		Debug:           app.config.Debug.EnableLogging,
	}

	backendType := graphics.BackendType(app.config.Video.Backend)
	graphicsConfig.Headless = backendType == graphics.BackendHeadless

	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return err
	}

	err = app.graphicsBackend.Initialize(graphicsConfig)
	if err == nil {
		app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	}
	if err == nil {
		return nil
	}
	if backendType != graphics.BackendEbitengine {
		return fmt.Errorf("failed to initialize %s backend: %w", backendType, err)
	}

	fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
	app.graphicsBackend.Cleanup()
	app.graphicsBackend = graphics.NewHeadlessBackend()
	graphicsConfig.Headless = true
	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
	}
	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	return err
}

// LoadROM builds an emulator for the ROM file and opens the recorders.
func (app *Application) LoadROM(romPath string) error {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "read ROM", Err: err}
	}

	cassette, err := cartridge.New(rom)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}

	if err := app.openRecorders(); err != nil {
		return &ApplicationError{Component: "recorder", Operation: "open", Err: errors.Join(err, app.closeRecorders())}
	}

	opts := emulator.Options{}
	if app.stream != nil || app.wav != nil {
		opts.SampleSink = app.pushSample
	}
	if app.trace != nil {
		opts.TraceSink = app.trace.Log
	}

	emu, err := emulator.NewFromCassette(cassette, opts)
	if err != nil {
		return &ApplicationError{Component: "emulator", Operation: "power on", Err: errors.Join(err, app.closeRecorders())}
	}
	app.emu = emu
	app.romPath = romPath
	app.ApplyDebugSettings()

	app.runner = NewRunner(emu, app.videoProcessor, app.config.Emulation.FrameRate, app.config.Emulation.MaxFrames)
	app.window.SetTitle(fmt.Sprintf("nesemu - %s", filepath.Base(romPath)))

	if app.stream != nil {
		if attacher, ok := app.window.(audioAttacher); ok {
			if err := attacher.AttachAudio(app.stream, sound.SampleRate, app.config.Audio.Volume); err != nil {
				fmt.Printf("[APP_WARNING] audio disabled: %v\n", err)
			}
		}
	}
	return nil
}

// openRecorders creates the sample stream and the trace, WAV and picture
// outputs that the configuration asks for.
func (app *Application) openRecorders() error {
	if app.config.Audio.Enabled && !app.graphicsBackend.IsHeadless() {
		if _, ok := app.window.(audioAttacher); ok {
			app.stream = sound.NewStream(app.config.Audio.BufferSize)
		}
	}

	if path := app.config.Audio.WavPath; path != "" {
		wav, err := sound.CreateWav(path, sound.SampleRate)
		if err != nil {
			return err
		}
		app.wav = wav
	}

	if path := app.config.Debug.TracePath; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		app.traceFile = f
		app.trace = debug.NewTraceLogger(f, app.config.Debug.TraceLimit)
	}

	if n := app.config.Debug.PictureDumps; n > 0 {
		dir := filepath.Join(app.config.Paths.OutputDir, "pictures")
		dumper, err := debug.NewFrameDumper(dir, pictureDumpInterval, n)
		if err != nil {
			return err
		}
		app.dumper = dumper
	}
	return nil
}

func (app *Application) pushSample(v float32) {
	if app.stream != nil {
		app.stream.Push(v)
	}
	if app.wav != nil && app.sampleErr == nil {
		app.sampleErr = app.wav.Push(v)
	}
}

// ApplyDebugSettings pushes the debug section of the config into the core.
func (app *Application) ApplyDebugSettings() {
	if app.emu == nil {
		return
	}
	app.emu.SetDebugLogging(app.config.Debug.EnableLogging)
	for _, addr := range app.config.Debug.Watch {
		app.emu.Watch(uint16(addr))
	}
}

// Run starts the main application loop
func (app *Application) Run() error {
	if app.emu == nil {
		return &ApplicationError{Component: "app", Operation: "run", Err: errors.New("no ROM loaded")}
	}

	app.running.Store(true)
	app.startTime = time.Now()
	app.lastFPSLog = app.startTime

	if app.config.Debug.Statsview {
		statsview.Launch(app.config.Debug.StatsviewAddr, os.Stdout)
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP] starting %s with %s backend", app.romPath, app.graphicsBackend.GetName())
	}

	var err error
	if looper, ok := app.window.(graphics.Looper); ok {
		err = looper.Run(app.updateFrame)
	} else {
		paced := !app.graphicsBackend.IsHeadless()
		for err == nil {
			err = app.updateFrame()
			if paced && err == nil {
				app.runner.Wait()
			}
		}
	}
	app.running.Store(false)

	if errors.Is(err, errStopped) {
		err = nil
	}
	if app.sampleErr != nil && err == nil {
		err = &ApplicationError{Component: "audio", Operation: "record WAV", Err: app.sampleErr}
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP] stopped after %d frames", app.runner.Frames())
	}
	return err
}

// updateFrame runs one host frame: input, emulation, dumps and output.
func (app *Application) updateFrame() error {
	if !app.running.Load() {
		return errStopped
	}

	if err := app.processInput(); err != nil {
		return err
	}
	if !app.running.Load() {
		return errStopped
	}

	frame, err := app.runner.Update()
	if err != nil {
		return &ApplicationError{Component: "emulator", Operation: "run frame", Err: err}
	}

	if app.dumper != nil && !app.runner.IsPaused() {
		app.emu.GetPicture(&app.picture)
		if _, err := app.dumper.Dump(&app.picture, app.runner.Frames()); err != nil {
			return &ApplicationError{Component: "debug", Operation: "dump picture", Err: err}
		}
	}

	if err := app.window.RenderFrame(frame); err != nil {
		return &ApplicationError{Component: "graphics", Operation: "render", Err: err}
	}

	if app.config.Debug.EnableLogging {
		app.logFPSMetrics(time.Now())
	}

	if app.runner.Done() || app.window.ShouldClose() {
		return errStopped
	}
	return nil
}

// processInput forwards frontend events to the pads and handles commands.
func (app *Application) processInput() error {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeButton:
			var err error
			if event.Pressed {
				err = app.emu.PushButton(event.Pad, event.Button)
			} else {
				err = app.emu.ReleaseButton(event.Pad, event.Button)
			}
			if err != nil {
				return &ApplicationError{Component: "input", Operation: "pad event", Err: err}
			}
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeReset:
			app.emu.Reset()
			if app.config.Debug.EnableLogging {
				log.Printf("[APP] reset")
			}
		case graphics.InputEventTypePause:
			paused := app.runner.TogglePause()
			if app.config.Debug.EnableLogging {
				log.Printf("[APP] paused=%v", paused)
			}
		}
	}
	return nil
}

func (app *Application) logFPSMetrics(now time.Time) {
	if now.Sub(app.lastFPSLog) < fpsLogInterval {
		return
	}
	app.lastFPSLog = now

	jitter := time.Duration(math.Sqrt(float64(app.runner.frameTimes.Variance())))
	msg := fmt.Sprintf("[APP] frame %d: %.1f FPS, emulation %v/frame, jitter %v",
		app.runner.Frames(), app.runner.FPS(), app.runner.EmulationTime(), jitter)
	if app.stream != nil {
		drops, starved := app.stream.Stats()
		msg += fmt.Sprintf(", audio buffered %d drops %d starved %d", app.stream.Buffered(), drops, starved)
	}
	log.Print(msg)
}

// Stop ends the frame loop after the current frame. It is safe to call
// from another goroutine.
func (app *Application) Stop() {
	app.running.Store(false)
}

// Emulator returns the running core, nil before LoadROM.
func (app *Application) Emulator() *emulator.Emulator {
	return app.emu
}

// GetFrameCount returns the number of emulated frames.
func (app *Application) GetFrameCount() uint64 {
	if app.runner == nil {
		return 0
	}
	return app.runner.Frames()
}

// GetUptime returns the time since Run started.
func (app *Application) GetUptime() time.Duration {
	if app.startTime.IsZero() {
		return 0
	}
	return time.Since(app.startTime)
}

// GetFPS returns the recent host frame rate.
func (app *Application) GetFPS() float64 {
	if app.runner == nil {
		return 0
	}
	return app.runner.FPS()
}

// GetConfig returns the application configuration.
func (app *Application) GetConfig() *Config {
	return app.config
}

// closeRecorders flushes and closes the trace and WAV outputs and drops the
// sample stream and picture dumper.
func (app *Application) closeRecorders() error {
	var errs []error
	if app.trace != nil {
		if err := app.trace.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("trace: %w", err))
		}
		app.trace = nil
	}
	if app.traceFile != nil {
		if err := app.traceFile.Close(); err != nil {
			errs = append(errs, err)
		}
		app.traceFile = nil
	}
	if app.wav != nil {
		if err := app.wav.Close(); err != nil {
			errs = append(errs, fmt.Errorf("wav: %w", err))
		}
		app.wav = nil
	}
	app.stream = nil
	app.dumper = nil
	return errors.Join(errs...)
}

// Cleanup writes the memviz snapshot, closes the recorders and the window.
// It returns the first error but always releases everything.
func (app *Application) Cleanup() error {
	var errs []error

	if path := app.config.Debug.MemvizPath; path != "" && app.emu != nil {
		if err := debug.DumpSnapshot(path, app.emu); err != nil {
			errs = append(errs, fmt.Errorf("memviz: %w", err))
		}
	}
	if err := app.closeRecorders(); err != nil {
		errs = append(errs, err)
	}
	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			errs = append(errs, err)
		}
		app.window = nil
	}
	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			errs = append(errs, err)
		}
		app.graphicsBackend = nil
	}

	if err := errors.Join(errs...); err != nil {
		return &ApplicationError{Component: "app", Operation: "cleanup", Err: err}
	}
	return nil
}
