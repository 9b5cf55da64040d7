package memory

import (
	"testing"

	"github.com/kazuhito-m/nes-emulator-study/internal/input"
)

func TestSystem_WramFoldsIndex(t *testing.T) {
	s := NewSystem(nil)
	s.WriteWram(0x0012, 0x34)

	for _, idx := range []uint16{0x0012, 0x0812, 0x1012, 0x1812} {
		if got := s.ReadWram(idx); got != 0x34 {
			t.Errorf("idx 0x%04X: Expected 0x34, got 0x%02X", idx, got)
		}
	}
}

func TestSystem_IoRegAndPrgRam(t *testing.T) {
	s := NewSystem(nil)
	s.WriteIoReg(0x15, 0x0F)
	if got := s.ReadIoReg(0x15); got != 0x0F {
		t.Errorf("Expected 0x0F, got 0x%02X", got)
	}

	s.WritePrgRam(0x1FFF, 0xAA)
	if got := s.ReadPrgRam(0x1FFF); got != 0xAA {
		t.Errorf("Expected 0xAA, got 0x%02X", got)
	}
}

func TestSystem_Pads(t *testing.T) {
	s := NewSystem(nil)
	if s.Pad(input.Pad1) == nil || s.Pad(input.Pad2) == nil {
		t.Fatal("Expected two controllers")
	}
	if s.Pad(input.Pad1) == s.Pad(input.Pad2) {
		t.Error("Expected independent controllers")
	}
	if s.Pad(input.PadID(5)) != nil {
		t.Error("Expected nil for invalid pad id")
	}
}

func TestPpuSystem_Storage(t *testing.T) {
	p := NewPpuSystem()
	p.WriteNametable(0x0FFF, 0x11)
	p.WritePalette(0x1F, 0x22)

	if got := p.ReadNametable(0x0FFF); got != 0x11 {
		t.Errorf("Expected 0x11, got 0x%02X", got)
	}
	if got := p.ReadPalette(0x1F); got != 0x22 {
		t.Errorf("Expected 0x22, got 0x%02X", got)
	}
	if got := p.ReadPalette(0x3F); got != 0x22 {
		t.Errorf("Expected palette index to fold, got 0x%02X", got)
	}
}
