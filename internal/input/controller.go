// Package input implements the NES standard controller shift register.
package input

import (
	"log"
)

// Button is a bit in the controller latch. The bit order matches the order
// in which the hardware shifts the buttons out.
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonNames = map[Button]string{
	ButtonA:      "A",
	ButtonB:      "B",
	ButtonSelect: "Select",
	ButtonStart:  "Start",
	ButtonUp:     "Up",
	ButtonDown:   "Down",
	ButtonLeft:   "Left",
	ButtonRight:  "Right",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "Unknown"
}

// PadID selects one of the two controller ports.
type PadID int

const (
	Pad1 PadID = iota
	Pad2
	NumPads
)

// Valid reports whether id names a connected port.
func (id PadID) Valid() bool {
	return id >= Pad1 && id < NumPads
}

// Controller is a button latch read one bit at a time through $4016/$4017.
type Controller struct {
	status uint8
	strobe bool
	index  uint8

	debugEnabled bool
}

// New returns a controller with strobe held high and no buttons pressed.
func New() *Controller {
	return &Controller{strobe: true}
}

// SetDebugLogging toggles [INPUT_DEBUG] logging of button changes.
func (c *Controller) SetDebugLogging(enabled bool) {
	c.debugEnabled = enabled
}

// Push marks a button as pressed.
func (c *Controller) Push(b Button) {
	c.status |= uint8(b)
	if c.debugEnabled {
		log.Printf("[INPUT_DEBUG] push %v, status=0x%02X", b, c.status)
	}
}

// Release marks a button as released.
func (c *Controller) Release(b Button) {
	c.status &^= uint8(b)
	if c.debugEnabled {
		log.Printf("[INPUT_DEBUG] release %v, status=0x%02X", b, c.status)
	}
}

// Status returns the raw button latch.
func (c *Controller) Status() uint8 {
	return c.status
}

// IsPressed reports whether b is held.
func (c *Controller) IsPressed(b Button) bool {
	return c.status&uint8(b) != 0
}

// SetStrobe latches the strobe line. Any write rewinds the shift position.
func (c *Controller) SetStrobe(strobe bool) {
	c.strobe = strobe
	c.index = 0
}

// Read returns the button bit at the current shift position. While strobe is
// high the position stays on A.
func (c *Controller) Read() uint8 {
	bit := (c.status >> c.index) & 1
	if !c.strobe {
		c.index = (c.index + 1) % 8
	}
	return bit
}
