// Package graphics provides the host frontends that show emulator frames
// and turn host input into controller events.
package graphics

import (
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/input"
	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// Frame is one resolved NES picture.
type Frame = [ppu.Height][ppu.Width]ppu.Color

// Backend represents a frontend (Ebitengine, headless, terminal).
type Backend interface {
	// Initialize prepares the backend. It fails if called twice.
	Initialize(config Config) error

	// CreateWindow creates the output surface.
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless reports whether the backend has no interactive output.
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window is an output surface.
type Window interface {
	SetTitle(title string)
	ShouldClose() bool
	PollEvents() []InputEvent
	RenderFrame(frame *Frame) error
	Cleanup() error
}

// Looper is implemented by windows that own the main loop. The update
// function is called once per host frame until it returns an error or the
// window closes.
type Looper interface {
	Run(update func() error) error
}

// Config contains configuration for graphics backends
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool
	Filter       string // "nearest", "linear"

	// headless frame dumps
	OutputDir  string
	DumpFrames []int

	// terminal output width in characters, 0 for 128
	TerminalColumns int

	// Keys is the controller layout, nil for DefaultKeyMap.
	Keys KeyMap

	Headless bool
	Debug    bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeButton InputEventType = iota
	InputEventTypeQuit
	InputEventTypeReset
	InputEventTypePause
)

// InputEvent is a controller change or a frontend command.
type InputEvent struct {
	Type    InputEventType
	Pad     input.PadID
	Button  input.Button
	Pressed bool
}

// BackendType names a frontend.
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backendType)
	}
}

func (c Config) keyMap() KeyMap {
	if c.Keys == nil {
		return DefaultKeyMap()
	}
	return c.Keys
}
