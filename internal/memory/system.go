// Package memory holds the RAM arenas shared by the CPU and PPU buses.
package memory

import (
	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

const (
	WramSize   = 0x800
	IoRegSize  = 0x20
	PrgRamSize = 0x2000
)

// System owns the CPU-side RAM, the I/O register shadow, both controllers
// and the cassette. Buses reach it only through the indexed accessors.
type System struct {
	wram     [WramSize]uint8
	ioReg    [IoRegSize]uint8
	prgRam   [PrgRamSize]uint8
	pads     [input.NumPads]*input.Controller
	cassette *cartridge.Cassette
}

// NewSystem returns a System with zeroed RAM and two fresh controllers.
func NewSystem(cassette *cartridge.Cassette) *System {
	s := &System{cassette: cassette}
	for i := range s.pads {
		s.pads[i] = input.New()
	}
	return s
}

// Cassette returns the inserted cartridge.
func (s *System) Cassette() *cartridge.Cassette {
	return s.cassette
}

// Pad returns the controller on port id, or nil for an invalid id.
func (s *System) Pad(id input.PadID) *input.Controller {
	if !id.Valid() {
		return nil
	}
	return s.pads[id]
}

// ReadWram reads internal RAM. idx is folded into the 2KB array.
func (s *System) ReadWram(idx uint16) uint8 {
	return s.wram[idx%WramSize]
}

// WriteWram writes internal RAM.
func (s *System) WriteWram(idx uint16, data uint8) {
	s.wram[idx%WramSize] = data
}

// ReadIoReg reads the $4000-$401F shadow.
func (s *System) ReadIoReg(idx uint16) uint8 {
	return s.ioReg[idx%IoRegSize]
}

// WriteIoReg records a write to the $4000-$401F range.
func (s *System) WriteIoReg(idx uint16, data uint8) {
	s.ioReg[idx%IoRegSize] = data
}

// ReadPrgRam reads the $6000-$7FFF work RAM.
func (s *System) ReadPrgRam(idx uint16) uint8 {
	return s.prgRam[idx%PrgRamSize]
}

// WritePrgRam writes the $6000-$7FFF work RAM.
func (s *System) WritePrgRam(idx uint16, data uint8) {
	s.prgRam[idx%PrgRamSize] = data
}
