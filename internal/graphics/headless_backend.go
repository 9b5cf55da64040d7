package graphics

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow counts frames and dumps the configured ones as PPM files.
type HeadlessWindow struct {
	title      string
	running    bool
	frameCount int
	outputDir  string
	dump       map[int]bool
	debug      bool
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	dir := b.config.OutputDir
	if dir == "" {
		dir = "."
	}
	dump := make(map[int]bool, len(b.config.DumpFrames))
	for _, n := range b.config.DumpFrames {
		dump[n] = true
	}
	return &HeadlessWindow{
		title:     title,
		running:   true,
		outputDir: dir,
		dump:      dump,
		debug:     b.config.Debug,
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns no events; a headless run has no input.
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame counts the frame and writes it to disk if it was requested.
func (w *HeadlessWindow) RenderFrame(frame *Frame) error {
	w.frameCount++
	if !w.dump[w.frameCount] {
		return nil
	}
	path := filepath.Join(w.outputDir, fmt.Sprintf("frame_%03d.ppm", w.frameCount))
	if err := SavePPM(path, frame); err != nil {
		return err
	}
	if w.debug {
		log.Printf("[HEADLESS] wrote %s", path)
	}
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// FrameCount returns the number of frames rendered
func (w *HeadlessWindow) FrameCount() int {
	return w.frameCount
}

// SavePPM writes frame to path as a binary PPM image.
func SavePPM(path string, frame *Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := WritePPM(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WritePPM encodes frame as a P6 PPM.
func WritePPM(w io.Writer, frame *Frame) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", ppu.Width, ppu.Height)
	for y := 0; y < ppu.Height; y++ {
		for x := 0; x < ppu.Width; x++ {
			c := frame[y][x]
			bw.Write([]byte{c.R, c.G, c.B})
		}
	}
	return bw.Flush()
}
