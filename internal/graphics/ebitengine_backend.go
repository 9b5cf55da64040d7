//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
}

// EbitengineWindow is the desktop window. Ebitengine owns the main loop, so
// the window implements Looper.
type EbitengineWindow struct {
	title   string
	config  Config
	game    *ebitengineGame
	running bool
	keys    KeyMap
	events  []InputEvent

	audioContext *audio.Context
	player       *audio.Player
}

// ebitengineGame implements ebiten.Game.
type ebitengineGame struct {
	window *EbitengineWindow
	update func() error

	pixels     []byte
	frameImage *ebiten.Image
	dirty      bool

	windowWidth  int
	windowHeight int
	drawCount    int
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow configures the Ebitengine window. Nothing is shown until Run.
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	w := &EbitengineWindow{
		title:   title,
		config:  b.config,
		running: true,
		keys:    b.config.keyMap(),
	}
	w.game = &ebitengineGame{
		window:       w,
		pixels:       make([]byte, ppu.Width*ppu.Height*4),
		windowWidth:  width,
		windowHeight: height,
	}

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetTPS(60)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}
	return w, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns the events gathered since the last call.
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame stages a frame; it is uploaded on the next Draw.
func (w *EbitengineWindow) RenderFrame(frame *Frame) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	packRGBA(frame, w.game.pixels)
	w.game.dirty = true
	return nil
}

// AttachAudio starts playing src, a stream of little-endian float32 stereo
// frames at sampleRate.
func (w *EbitengineWindow) AttachAudio(src io.Reader, sampleRate int, volume float64) error {
	if w.player != nil {
		return fmt.Errorf("audio already attached")
	}
	w.audioContext = audio.NewContext(sampleRate)
	player, err := w.audioContext.NewPlayerF32(src)
	if err != nil {
		return fmt.Errorf("create audio player: %w", err)
	}
	player.SetBufferSize(50 * time.Millisecond)
	player.SetVolume(volume)
	player.Play()
	w.player = player
	log.Printf("[AUDIO] playing at %d Hz", sampleRate)
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	if w.player != nil {
		err := w.player.Close()
		w.player = nil
		return err
	}
	return nil
}

// Run starts the Ebitengine game loop and blocks until the window closes.
func (w *EbitengineWindow) Run(update func() error) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	w.game.update = update
	err := ebiten.RunGame(w.game)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update implements ebiten.Game.
func (g *ebitengineGame) Update() error {
	g.pollKeys()
	if !g.window.running {
		return ebiten.Termination
	}
	if g.update != nil {
		if err := g.update(); err != nil {
			return err
		}
	}
	if !g.window.running {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *ebitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 0xFF})
	if g.frameImage == nil {
		g.frameImage = ebiten.NewImage(ppu.Width, ppu.Height)
	}
	if g.dirty {
		g.frameImage.WritePixels(g.pixels)
		g.dirty = false
	}

	scale, offsetX, offsetY := fitScale(g.windowWidth, g.windowHeight)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	if g.window.config.Filter == "linear" {
		op.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(g.frameImage, op)

	g.drawCount++
	if g.window.config.Debug && g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] frame %d scaled %.2fx at (%.1f,%.1f)", g.drawCount, scale, offsetX, offsetY)
	}
}

// Layout implements ebiten.Game.
func (g *ebitengineGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

var ebitenKeyNames = map[ebiten.Key]string{
	ebiten.KeyArrowUp:    "up",
	ebiten.KeyArrowDown:  "down",
	ebiten.KeyArrowLeft:  "left",
	ebiten.KeyArrowRight: "right",
	ebiten.KeyEnter:      "enter",
	ebiten.KeySpace:      "space",
	ebiten.KeyEscape:     "escape",
	ebiten.KeyF5:         "f5",
	ebiten.KeyA:          "a",
	ebiten.KeyB:          "b",
	ebiten.KeyC:          "c",
	ebiten.KeyD:          "d",
	ebiten.KeyE:          "e",
	ebiten.KeyF:          "f",
	ebiten.KeyG:          "g",
	ebiten.KeyH:          "h",
	ebiten.KeyI:          "i",
	ebiten.KeyJ:          "j",
	ebiten.KeyK:          "k",
	ebiten.KeyL:          "l",
	ebiten.KeyM:          "m",
	ebiten.KeyN:          "n",
	ebiten.KeyO:          "o",
	ebiten.KeyP:          "p",
	ebiten.KeyQ:          "q",
	ebiten.KeyR:          "r",
	ebiten.KeyS:          "s",
	ebiten.KeyT:          "t",
	ebiten.KeyU:          "u",
	ebiten.KeyV:          "v",
	ebiten.KeyW:          "w",
	ebiten.KeyX:          "x",
	ebiten.KeyY:          "y",
	ebiten.KeyZ:          "z",
	ebiten.Key0:          "0",
	ebiten.Key1:          "1",
	ebiten.Key2:          "2",
	ebiten.Key3:          "3",
	ebiten.Key4:          "4",
	ebiten.Key5:          "5",
	ebiten.Key6:          "6",
	ebiten.Key7:          "7",
	ebiten.Key8:          "8",
	ebiten.Key9:          "9",
}

func (g *ebitengineGame) pollKeys() {
	for key, name := range ebitenKeyNames {
		var ev InputEvent
		var ok bool
		switch {
		case inpututil.IsKeyJustPressed(key):
			ev, ok = g.window.keys.event(name, true)
		case inpututil.IsKeyJustReleased(key):
			ev, ok = g.window.keys.event(name, false)
		}
		if !ok {
			continue
		}
		if ev.Type == InputEventTypeQuit {
			g.window.running = false
		}
		g.window.events = append(g.window.events, ev)
	}
}
