package cartridge

import (
	"fmt"
)

// ROMBuilder assembles small iNES images in memory. Program bytes are placed
// by CPU address, so code can be laid out the way it will be executed.
type ROMBuilder struct {
	prgUnits  uint8
	chrUnits  uint8
	mapper    uint8
	mirroring Mirroring
	trainer   []uint8
	program   map[uint16]uint8
	chr       []uint8
	reset     uint16
	nmi       uint16
	irq       uint16
}

// NewROMBuilder returns a builder for a 16KB PRG / 8KB CHR image whose
// vectors all point at $8000.
func NewROMBuilder() *ROMBuilder {
	return &ROMBuilder{
		prgUnits:  1,
		chrUnits:  1,
		mirroring: MirrorHorizontal,
		program:   make(map[uint16]uint8),
		reset:     0x8000,
		nmi:       0x8000,
		irq:       0x8000,
	}
}

// WithPrgUnits sets the PRG ROM size in 16KB units.
func (b *ROMBuilder) WithPrgUnits(units uint8) *ROMBuilder {
	b.prgUnits = units
	return b
}

// WithChrUnits sets the CHR ROM size in 8KB units (0 selects CHR RAM).
func (b *ROMBuilder) WithChrUnits(units uint8) *ROMBuilder {
	b.chrUnits = units
	return b
}

// WithMapper sets the mapper number written to the header.
func (b *ROMBuilder) WithMapper(mapper uint8) *ROMBuilder {
	b.mapper = mapper
	return b
}

// WithMirroring sets the nametable mirroring flag.
func (b *ROMBuilder) WithMirroring(m Mirroring) *ROMBuilder {
	b.mirroring = m
	return b
}

// WithTrainer adds a 512-byte trainer block.
func (b *ROMBuilder) WithTrainer(data []uint8) *ROMBuilder {
	b.trainer = make([]uint8, trainerSize)
	copy(b.trainer, data)
	return b
}

// WithCode places bytes at a CPU address in $8000-$FFFF.
func (b *ROMBuilder) WithCode(addr uint16, code ...uint8) *ROMBuilder {
	for i, v := range code {
		b.program[addr+uint16(i)] = v
	}
	return b
}

// WithChrData sets the leading bytes of CHR ROM.
func (b *ROMBuilder) WithChrData(data []uint8) *ROMBuilder {
	b.chr = append([]uint8(nil), data...)
	return b
}

// WithResetVector sets the RESET vector.
func (b *ROMBuilder) WithResetVector(addr uint16) *ROMBuilder {
	b.reset = addr
	return b
}

// WithNMIVector sets the NMI vector.
func (b *ROMBuilder) WithNMIVector(addr uint16) *ROMBuilder {
	b.nmi = addr
	return b
}

// WithIRQVector sets the IRQ/BRK vector.
func (b *ROMBuilder) WithIRQVector(addr uint16) *ROMBuilder {
	b.irq = addr
	return b
}

// Build renders the iNES image.
func (b *ROMBuilder) Build() ([]byte, error) {
	if b.prgUnits == 0 {
		return nil, ErrMissingPrgRom
	}

	header := make([]byte, headerSize)
	copy(header, inesMagic[:])
	header[4] = b.prgUnits
	header[5] = b.chrUnits
	flags6 := (b.mapper & 0x0F) << 4
	if b.mirroring == MirrorVertical {
		flags6 |= 0x01
	}
	if b.trainer != nil {
		flags6 |= 0x04
	}
	header[6] = flags6
	header[7] = b.mapper & 0xF0

	prgSize := int(b.prgUnits) * PrgRomUnit
	prg := make([]byte, prgSize)
	for addr, v := range b.program {
		if addr < 0x8000 {
			return nil, fmt.Errorf("code address 0x%04X below PRG window", addr)
		}
		prg[int(addr-0x8000)%prgSize] = v
	}
	vectors := []uint16{b.nmi, b.reset, b.irq}
	for i, v := range vectors {
		prg[prgSize-6+i*2] = uint8(v)
		prg[prgSize-5+i*2] = uint8(v >> 8)
	}

	image := append([]byte{}, header...)
	image = append(image, b.trainer...)
	image = append(image, prg...)
	if b.chrUnits > 0 {
		chr := make([]byte, int(b.chrUnits)*ChrRomUnit)
		copy(chr, b.chr)
		image = append(image, chr...)
	}
	return image, nil
}

// BuildCassette renders the image and parses it back.
func (b *ROMBuilder) BuildCassette() (*Cassette, error) {
	image, err := b.Build()
	if err != nil {
		return nil, err
	}
	return New(image)
}
