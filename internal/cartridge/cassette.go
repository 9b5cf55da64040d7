// Package cartridge implements iNES ROM loading and PRG/CHR access for NROM cartridges.
package cartridge

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrInvalidMagic      = errors.New("invalid iNES magic")
	ErrTruncated         = errors.New("truncated iNES image")
	ErrOutOfRange        = errors.New("cartridge access out of range")
	ErrUnsupportedMapper = errors.New("unsupported mapper")
	ErrMissingPrgRom     = errors.New("PRG ROM size cannot be zero")
)

// Mirroring is the nametable mirroring arrangement wired on the cartridge board.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
)

func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	default:
		return fmt.Sprintf("Mirroring(%d)", uint8(m))
	}
}

// Cassette holds the PRG and CHR regions of a mapper 0 cartridge.
type Cassette struct {
	header    INESHeader
	prgRom    []uint8
	chrRom    []uint8
	mirroring Mirroring
	hasChrRam bool
}

// LoadFromFile reads and parses an iNES image from disk.
func LoadFromFile(filename string) (*Cassette, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROM file %s: %w", filename, err)
	}
	return New(data)
}

// New parses an iNES image. The PRG and CHR regions are copied out of data.
func New(data []byte) (*Cassette, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if header.PrgRomUnits == 0 {
		return nil, ErrMissingPrgRom
	}
	if mapper := header.MapperNumber(); mapper != 0 {
		return nil, fmt.Errorf("mapper %d: %w", mapper, ErrUnsupportedMapper)
	}

	prgStart := headerSize
	if header.HasTrainer() {
		prgStart += trainerSize
	}
	prgEnd := prgStart + header.PrgRomSize()
	chrEnd := prgEnd + header.ChrRomSize()
	if len(data) < chrEnd {
		return nil, fmt.Errorf("expected %d bytes, got %d: %w", chrEnd, len(data), ErrTruncated)
	}

	c := &Cassette{
		header:    header,
		prgRom:    make([]uint8, header.PrgRomSize()),
		mirroring: header.Mirroring(),
	}
	copy(c.prgRom, data[prgStart:prgEnd])

	if header.ChrRomUnits == 0 {
		// CHR RAM board
		c.chrRom = make([]uint8, ChrRomUnit)
		c.hasChrRam = true
	} else {
		c.chrRom = make([]uint8, header.ChrRomSize())
		copy(c.chrRom, data[prgEnd:chrEnd])
	}
	return c, nil
}

// Header returns the parsed iNES header.
func (c *Cassette) Header() INESHeader {
	return c.header
}

// Mirroring returns the nametable mirroring flag.
func (c *Cassette) Mirroring() Mirroring {
	return c.mirroring
}

// PrgRomSize returns the PRG ROM size in bytes.
func (c *Cassette) PrgRomSize() int {
	return len(c.prgRom)
}

// ChrRomSize returns the CHR ROM (or RAM) size in bytes.
func (c *Cassette) ChrRomSize() int {
	return len(c.chrRom)
}

// HasChrRam reports whether the pattern tables are writable RAM.
func (c *Cassette) HasChrRam() bool {
	return c.hasChrRam
}

// ReadPrgRom fills p with PRG ROM bytes starting at offset.
// A single 16KB bank is mirrored across the 32KB window.
func (c *Cassette) ReadPrgRom(p []byte, offset int) error {
	for i := range p {
		idx, err := c.prgIndex(offset + i)
		if err != nil {
			return err
		}
		p[i] = c.prgRom[idx]
	}
	return nil
}

// WritePrgRom stores p into PRG ROM starting at offset.
func (c *Cassette) WritePrgRom(p []byte, offset int) error {
	for i, b := range p {
		idx, err := c.prgIndex(offset + i)
		if err != nil {
			return err
		}
		c.prgRom[idx] = b
	}
	return nil
}

// ReadChrRom fills p with CHR bytes starting at offset. CHR never mirrors.
func (c *Cassette) ReadChrRom(p []byte, offset int) error {
	if err := c.checkChr(offset, len(p)); err != nil {
		return err
	}
	copy(p, c.chrRom[offset:])
	return nil
}

// WriteChrRom stores p into CHR starting at offset.
func (c *Cassette) WriteChrRom(p []byte, offset int) error {
	if err := c.checkChr(offset, len(p)); err != nil {
		return err
	}
	copy(c.chrRom[offset:], p)
	return nil
}

func (c *Cassette) prgIndex(offset int) (int, error) {
	size := len(c.prgRom)
	if size == PrgRomUnit {
		if offset < 0 || offset >= 2*PrgRomUnit {
			return 0, fmt.Errorf("PRG offset 0x%X: %w", offset, ErrOutOfRange)
		}
		return offset % size, nil
	}
	if offset < 0 || offset >= size {
		return 0, fmt.Errorf("PRG offset 0x%X: %w", offset, ErrOutOfRange)
	}
	return offset, nil
}

func (c *Cassette) checkChr(offset, n int) error {
	if offset < 0 || offset+n > len(c.chrRom) {
		return fmt.Errorf("CHR offset 0x%X length %d: %w", offset, n, ErrOutOfRange)
	}
	return nil
}
