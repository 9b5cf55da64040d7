package cartridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	headerSize  = 16
	trainerSize = 512

	// PrgRomUnit is the size of one PRG ROM bank in bytes.
	PrgRomUnit = 0x4000
	// ChrRomUnit is the size of one CHR ROM bank in bytes.
	ChrRomUnit = 0x2000
)

var inesMagic = [4]uint8{'N', 'E', 'S', 0x1A}

// INESHeader is the fixed 16-byte header at the start of an iNES image.
type INESHeader struct {
	Magic       [4]uint8
	PrgRomUnits uint8 // in 16KB units
	ChrRomUnits uint8 // in 8KB units
	Flags6      uint8
	Flags7      uint8
	PrgRamUnits uint8
	TVSystem1   uint8
	TVSystem2   uint8
	Padding     [5]uint8
}

// parseHeader decodes and validates the header at the front of data.
func parseHeader(data []byte) (INESHeader, error) {
	var header INESHeader
	if len(data) < headerSize {
		return header, fmt.Errorf("header needs %d bytes, got %d: %w", headerSize, len(data), ErrTruncated)
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to decode iNES header: %w", err)
	}
	if header.Magic != inesMagic {
		return header, fmt.Errorf("got % X: %w", header.Magic[:], ErrInvalidMagic)
	}
	return header, nil
}

// Mirroring returns the nametable arrangement selected by flags 6.
func (h INESHeader) Mirroring() Mirroring {
	if h.Flags6&0x01 != 0 {
		return MirrorVertical
	}
	return MirrorHorizontal
}

// MapperNumber combines the mapper nibbles of flags 6 and 7.
func (h INESHeader) MapperNumber() uint8 {
	return (h.Flags7 & 0xF0) | (h.Flags6 >> 4)
}

// HasTrainer reports whether a 512-byte trainer precedes PRG ROM.
func (h INESHeader) HasTrainer() bool {
	return h.Flags6&0x04 != 0
}

// HasBattery reports whether the cartridge declares battery-backed RAM.
func (h INESHeader) HasBattery() bool {
	return h.Flags6&0x02 != 0
}

// PrgRomSize returns the PRG ROM size in bytes.
func (h INESHeader) PrgRomSize() int {
	return int(h.PrgRomUnits) * PrgRomUnit
}

// ChrRomSize returns the CHR ROM size in bytes.
func (h INESHeader) ChrRomSize() int {
	return int(h.ChrRomUnits) * ChrRomUnit
}
