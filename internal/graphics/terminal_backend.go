package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

const (
	defaultTerminalColumns = 128
	// terminals report key presses only, so a press is released after this
	// many polls
	terminalHoldPolls = 6
)

// TerminalBackend draws frames with 24-bit ANSI colors, two pixel rows per
// character cell.
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements the Window interface for terminal rendering
type TerminalWindow struct {
	title   string
	out     io.Writer
	columns int
	running bool
	keys    KeyMap

	mu      sync.Mutex
	pending []InputEvent
	held    map[Binding]int

	keyboard *keyboard
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow switches stdin to cbreak mode and starts reading keys.
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	w := newTerminalWindow(title, os.Stdout, b.config.TerminalColumns, b.config.keyMap())
	kb, err := openKeyboard(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("terminal input: %w", err)
	}
	w.keyboard = kb
	go kb.run(w.feed)
	return w, nil
}

func newTerminalWindow(title string, out io.Writer, columns int, keys KeyMap) *TerminalWindow {
	if columns <= 0 || columns > ppu.Width {
		columns = defaultTerminalColumns
	}
	return &TerminalWindow{
		title:   title,
		out:     out,
		columns: columns,
		running: true,
		keys:    keys,
		held:    make(map[Binding]int),
	}
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title.
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.running
}

// feed receives raw bytes from the keyboard reader.
func (w *TerminalWindow) feed(chunk []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, name := range parseKeys(chunk) {
		ev, ok := w.keys.event(name, true)
		if !ok {
			continue
		}
		switch ev.Type {
		case InputEventTypeQuit:
			w.running = false
		case InputEventTypeButton:
			b := Binding{ev.Pad, ev.Button}
			if _, down := w.held[b]; down {
				w.held[b] = terminalHoldPolls
				continue
			}
			w.held[b] = terminalHoldPolls
		}
		w.pending = append(w.pending, ev)
	}
}

// PollEvents returns key presses since the last call and releases keys
// that have not repeated for a while.
func (w *TerminalWindow) PollEvents() []InputEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	events := w.pending
	w.pending = nil
	for b, n := range w.held {
		if n > 1 {
			w.held[b] = n - 1
			continue
		}
		delete(w.held, b)
		events = append(events, InputEvent{Type: InputEventTypeButton, Pad: b.Pad, Button: b.Button})
	}
	return events
}

// RenderFrame redraws the whole frame from the top-left corner.
func (w *TerminalWindow) RenderFrame(frame *Frame) error {
	step := ppu.Width / w.columns
	bw := bufio.NewWriter(w.out)
	fmt.Fprint(bw, "\033[H")
	for y := 0; y+step < ppu.Height; y += 2 * step {
		for x := 0; x < ppu.Width; x += step {
			top := frame[y][x]
			bottom := frame[y+step][x]
			fmt.Fprintf(bw, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bottom.R, bottom.G, bottom.B)
		}
		fmt.Fprint(bw, "\033[0m\r\n")
	}
	return bw.Flush()
}

// Cleanup restores the terminal.
func (w *TerminalWindow) Cleanup() error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	fmt.Fprint(w.out, "\033[0m\033[2J\033[H")
	if w.keyboard != nil {
		return w.keyboard.restore()
	}
	return nil
}

// parseKeys splits a chunk read from a cbreak terminal into key names.
func parseKeys(chunk []byte) []string {
	var names []string
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		switch {
		case c == 0x1B && i+2 < len(chunk) && chunk[i+1] == '[':
			switch chunk[i+2] {
			case 'A':
				names = append(names, "up")
			case 'B':
				names = append(names, "down")
			case 'C':
				names = append(names, "right")
			case 'D':
				names = append(names, "left")
			case '1':
				// F5 is ESC [ 1 5 ~
				if i+4 < len(chunk) && chunk[i+3] == '5' && chunk[i+4] == '~' {
					names = append(names, "f5")
					i += 2
				}
			}
			i += 2
		case c == 0x1B:
			names = append(names, "escape")
		case c == '\r' || c == '\n':
			names = append(names, "enter")
		case c == ' ':
			names = append(names, "space")
		case c >= 'A' && c <= 'Z':
			names = append(names, string(rune(c-'A'+'a')))
		case c > ' ' && c < 0x7F:
			names = append(names, string(rune(c)))
		}
	}
	return names
}
