package bus

import (
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/cpu"
	"github.com/kazuhito-m/nes-emulator-study/internal/memory"
)

// PPU address map boundaries.
const (
	ppuAddrMask      = 0x3FFF
	nametableBase    = 0x2000
	nametableMirror  = 0x3000
	paletteBase      = 0x3F00
	nametableSize    = 0x400
	paletteMirrorLen = 0x20
)

// PpuBus decodes the 14-bit PPU address space: pattern tables on the
// cassette, nametables folded by the cassette's mirroring, and palette RAM.
type PpuBus struct {
	binding

	system    *memory.System
	vram      *memory.PpuSystem
	mirroring cartridge.Mirroring
}

// NewPpuBus returns the PPU's view of the cassette and VRAM.
func NewPpuBus(system *memory.System, vram *memory.PpuSystem) *PpuBus {
	return &PpuBus{
		system:    system,
		vram:      vram,
		mirroring: system.Cassette().Mirroring(),
	}
}

// ReadByte reads VRAM. A buffered read in palette space returns the
// nametable byte underneath it, which is what PPUDATA latches.
func (b *PpuBus) ReadByte(addr uint16, buffered bool) (uint8, error) {
	addr &= ppuAddrMask
	switch {
	case addr < nametableBase:
		var buf [1]byte
		if err := b.system.Cassette().ReadChrRom(buf[:], int(addr)); err != nil {
			return 0, fmt.Errorf("ppu read $%04X: %w", addr, err)
		}
		return buf[0], nil

	case addr < paletteBase:
		return b.vram.ReadNametable(b.nametableIndex(addr)), nil

	case buffered:
		return b.vram.ReadNametable(b.nametableIndex(addr - 0x1000)), nil

	default:
		return b.vram.ReadPalette(paletteIndex(addr)), nil
	}
}

// WriteByte writes VRAM. Pattern writes reach CHR RAM (or CHR ROM, which
// NROM boards leave writable here).
func (b *PpuBus) WriteByte(addr uint16, data uint8) error {
	addr &= ppuAddrMask
	switch {
	case addr < nametableBase:
		if err := b.system.Cassette().WriteChrRom([]byte{data}, int(addr)); err != nil {
			return fmt.Errorf("ppu write $%04X: %w", addr, err)
		}
	case addr < paletteBase:
		b.vram.WriteNametable(b.nametableIndex(addr), data)
	default:
		b.vram.WritePalette(paletteIndex(addr), data)
	}
	return nil
}

// GenerateCpuInterrupt raises NMI on the bound CPU.
func (b *PpuBus) GenerateCpuInterrupt() error {
	return b.raise(cpu.InterruptNMI)
}

// nametableIndex folds $2000-$3EFF into the nametable store.
func (b *PpuBus) nametableIndex(addr uint16) uint16 {
	if addr >= nametableMirror {
		addr -= 0x1000
	}
	table := (addr - nametableBase) / nametableSize
	offset := (addr - nametableBase) % nametableSize

	switch b.mirroring {
	case cartridge.MirrorHorizontal:
		// $2400 -> $2000, $2C00 -> $2800
		table &^= 1
	case cartridge.MirrorVertical:
		// $2800 -> $2000, $2C00 -> $2400
		table &= 1
	}
	return table*nametableSize + offset
}

// paletteIndex maps $3F00-$3FFF to palette RAM. Sprite backdrop entries
// $10/$14/$18/$1C alias the background ones.
func paletteIndex(addr uint16) uint16 {
	idx := (addr - paletteBase) % paletteMirrorLen
	if idx >= 0x10 && idx%4 == 0 {
		idx -= 0x10
	}
	return idx
}
