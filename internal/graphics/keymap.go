package graphics

import (
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

// Binding is the pad button a host key drives.
type Binding struct {
	Pad    input.PadID
	Button input.Button
}

// KeyMap maps host key names ("a".."z", "0".."9", "up", "down", "left",
// "right", "enter", "space") to pad buttons.
type KeyMap map[string]Binding

// DefaultKeyMap gives player 1 the arrows or WASD with J/K, Enter and Space.
// Player 2 uses the number row.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"up":    {input.Pad1, input.ButtonUp},
		"down":  {input.Pad1, input.ButtonDown},
		"left":  {input.Pad1, input.ButtonLeft},
		"right": {input.Pad1, input.ButtonRight},
		"w":     {input.Pad1, input.ButtonUp},
		"s":     {input.Pad1, input.ButtonDown},
		"a":     {input.Pad1, input.ButtonLeft},
		"d":     {input.Pad1, input.ButtonRight},
		"j":     {input.Pad1, input.ButtonA},
		"k":     {input.Pad1, input.ButtonB},
		"enter": {input.Pad1, input.ButtonStart},
		"space": {input.Pad1, input.ButtonSelect},
		"1":     {input.Pad2, input.ButtonUp},
		"2":     {input.Pad2, input.ButtonDown},
		"3":     {input.Pad2, input.ButtonLeft},
		"4":     {input.Pad2, input.ButtonRight},
		"5":     {input.Pad2, input.ButtonA},
		"6":     {input.Pad2, input.ButtonB},
		"7":     {input.Pad2, input.ButtonStart},
		"8":     {input.Pad2, input.ButtonSelect},
	}
}

// commandKeys are frontend shortcuts that never reach a pad.
var commandKeys = map[string]InputEventType{
	"escape": InputEventTypeQuit,
	"f5":     InputEventTypeReset,
	"p":      InputEventTypePause,
}

// KnownKey reports whether every frontend can deliver the named key.
func KnownKey(name string) bool {
	switch name {
	case "up", "down", "left", "right", "enter", "space":
		return true
	}
	if len(name) != 1 {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// Bind assigns name to the button, replacing any key previously bound to
// the same pad button.
func (m KeyMap) Bind(name string, pad input.PadID, button input.Button) error {
	if !KnownKey(name) {
		return fmt.Errorf("unknown key %q", name)
	}
	if _, ok := commandKeys[name]; ok {
		return fmt.Errorf("key %q is reserved", name)
	}
	b := Binding{pad, button}
	for k, v := range m {
		if v == b {
			delete(m, k)
		}
	}
	m[name] = b
	return nil
}

// event translates a named host key change.
func (m KeyMap) event(name string, pressed bool) (InputEvent, bool) {
	if b, ok := m[name]; ok {
		return InputEvent{Type: InputEventTypeButton, Pad: b.Pad, Button: b.Button, Pressed: pressed}, true
	}
	if t, ok := commandKeys[name]; ok && pressed {
		return InputEvent{Type: t, Pressed: true}, true
	}
	return InputEvent{}, false
}
