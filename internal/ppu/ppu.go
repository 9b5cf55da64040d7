// Package ppu implements the Picture Processing Unit (2C02) as a dot-driven
// state machine. It reaches VRAM and the CPU only through Bus.
package ppu

import (
	"errors"
	"fmt"
	"log"
)

// ErrTallSprites reports 8x16 sprite mode, which is not rendered.
var ErrTallSprites = errors.New("8x16 sprites are not supported")

// Bus is the PPU's view of its 14-bit address space and the CPU NMI line.
// A buffered read in the palette range returns the nametable byte beneath it.
type Bus interface {
	ReadByte(addr uint16, buffered bool) (uint8, error)
	WriteByte(addr uint16, data uint8) error
	GenerateCpuInterrupt() error
}

const (
	dotsPerLine   = 341
	vblankLine    = 241
	preRenderLine = 261
	linesPerFrame = 262

	paletteBase       = 0x3F00
	spritePaletteBase = 0x3F10
	oamSize           = 256
	patternSize       = 16
)

// register bits
const (
	ctrlIncrement32  = 0x04
	ctrlSpriteTable  = 0x08
	ctrlBgTable      = 0x10
	ctrlSpriteSize   = 0x20
	ctrlNMIEnable    = 0x80
	maskShowBgLeft   = 0x02
	maskShowSprLeft  = 0x04
	maskShowBg       = 0x08
	maskShowSprites  = 0x10
	statusSprite0Hit = 0x40
	statusVBlank     = 0x80
)

// Ppu is the NES Picture Processing Unit.
type Ppu struct {
	// CPU-visible registers
	ctrl    uint8 // $2000
	mask    uint8 // $2001
	status  uint8 // $2002
	oamAddr uint8 // $2003

	reg internalRegister

	// PPUDATA address, advanced by 1 or 32 per access
	vramAddr   uint16
	readBuffer uint8

	lines  int
	cycles int
	// fine X position inside the current background tile
	bgRelativeX uint8

	oam     [oamSize]uint8
	output  Picture
	bgClear [Height][Width]bool

	bus Bus
	err error

	frames       uint64
	debugLogging bool
}

// New creates a PPU at line 0, dot 0.
func New(bus Bus) *Ppu {
	return &Ppu{bus: bus}
}

// SetDebugLogging toggles [PPU_DEBUG] frame and NMI logging.
func (p *Ppu) SetDebugLogging(enabled bool) {
	p.debugLogging = enabled
}

// WritePpuCtrl writes $2000. The nametable bits also land in t.
func (p *Ppu) WritePpuCtrl(data uint8) {
	p.ctrl = data
	p.reg.setNametableSelect(data & 0x03)
}

// WritePpuMask writes $2001.
func (p *Ppu) WritePpuMask(data uint8) {
	p.mask = data
}

// WriteOamAddr writes $2003.
func (p *Ppu) WriteOamAddr(data uint8) {
	p.oamAddr = data
}

// WriteOamData writes $2004 and advances OAMADDR. OAM DMA uses it too.
func (p *Ppu) WriteOamData(data uint8) {
	p.oam[p.oamAddr] = data
	p.oamAddr++
}

// WritePpuScroll writes $2005.
func (p *Ppu) WritePpuScroll(data uint8) {
	p.reg.writeScroll(data)
}

// WritePpuAddr writes $2006, high byte first.
func (p *Ppu) WritePpuAddr(data uint8) {
	if !p.reg.w {
		p.vramAddr = uint16(data&0x3F) << 8
	} else {
		p.vramAddr |= uint16(data)
	}
	p.reg.writeAddr(data)
}

// WritePpuData writes $2007 through the bus.
func (p *Ppu) WritePpuData(data uint8) error {
	err := p.bus.WriteByte(p.vramAddr, data)
	p.advanceVramAddr()
	return err
}

// ReadPpuStatus reads $2002. It clears VBlank and the write toggle.
func (p *Ppu) ReadPpuStatus() uint8 {
	status := p.status
	p.status &^= statusVBlank
	p.reg.w = false
	return status
}

// ReadOamData reads $2004 without advancing OAMADDR.
func (p *Ppu) ReadOamData() uint8 {
	return p.oam[p.oamAddr]
}

// ReadPpuData reads $2007. Reads below the palette return the previous
// buffer content; palette reads are immediate and refill the buffer with
// the nametable byte underneath.
func (p *Ppu) ReadPpuData() (uint8, error) {
	addr := p.vramAddr
	p.advanceVramAddr()

	if addr >= paletteBase {
		under, err := p.bus.ReadByte(addr, true)
		if err != nil {
			return 0, err
		}
		p.readBuffer = under
		return p.bus.ReadByte(addr, false)
	}

	data := p.readBuffer
	next, err := p.bus.ReadByte(addr, false)
	if err != nil {
		return 0, err
	}
	p.readBuffer = next
	return data, nil
}

// OamAddr returns OAMADDR; OAM DMA requires it to be zero.
func (p *Ppu) OamAddr() uint8 {
	return p.oamAddr
}

// Lines returns the current scanline (0-261).
func (p *Ppu) Lines() int {
	return p.lines
}

// Cycles returns the current dot within the scanline (0-340).
func (p *Ppu) Cycles() int {
	return p.cycles
}

// Frames returns the number of completed frames.
func (p *Ppu) Frames() uint64 {
	return p.frames
}

// CopyPicture copies the last rendered color indices into dst.
func (p *Ppu) CopyPicture(dst *Picture) {
	*dst = p.output
}

// Run advances the PPU by clk dots and reports whether a frame completed.
// The first error from the bus or an unsupported mode aborts the run.
func (p *Ppu) Run(clk int) (bool, error) {
	frameDone := false

	for i := 0; i < clk && p.err == nil; i++ {
		p.drawBackgroundDot()

		if p.lines < Height && p.cycles >= 2 && p.cycles <= 257 {
			if p.sprite0Hit(p.lines, p.cycles-2) {
				p.status |= statusSprite0Hit
			}
		}

		p.cycles++
		if p.cycles >= dotsPerLine {
			p.cycles = 0
			p.lines++
		}

		switch {
		case p.lines == vblankLine && p.cycles == 1:
			p.enterVBlank()
		case p.lines == preRenderLine && p.cycles == 1:
			p.status &^= statusSprite0Hit | statusVBlank
		case p.lines == linesPerFrame:
			p.lines = 0
			p.frames++
			frameDone = true
		}
	}

	if p.err != nil {
		err := p.err
		p.err = nil
		return false, fmt.Errorf("line %d dot %d: %w", p.lines, p.cycles, err)
	}
	return frameDone, nil
}

// enterVBlank composites sprites over the finished background, sets the
// VBlank flag and raises NMI when enabled.
func (p *Ppu) enterVBlank() {
	p.buildSprites()
	p.status |= statusVBlank

	if p.ctrl&ctrlNMIEnable == 0 {
		return
	}
	if p.debugLogging {
		log.Printf("[PPU_DEBUG] frame %d: NMI", p.frames)
	}
	if err := p.bus.GenerateCpuInterrupt(); err != nil {
		p.fail(err)
	}
}

// drawBackgroundDot renders one background pixel when the dot is visible and
// applies the scroll register updates tied to the current dot.
func (p *Ppu) drawBackgroundDot() {
	if p.cycles == 0 {
		p.bgRelativeX = p.reg.x
	}

	x, y := p.cycles, p.lines
	if y < Height && x < Width {
		color, clear := p.backgroundPixel()
		if clear {
			color = p.read(paletteBase)
		}
		p.output[y][x] = color
		p.bgClear[y][x] = clear
	}

	if x == 256 {
		p.reg.incrementY()
	}
	if x == 257 {
		p.reg.copyHorizontal()
	}
	if y == preRenderLine && x >= 280 && x <= 304 {
		p.reg.copyVertical()
	}

	if x < Width {
		p.bgRelativeX++
		if p.bgRelativeX == 8 {
			p.bgRelativeX = 0
			p.reg.incrementCoarseX()
		}
	}
}

// backgroundPixel resolves the background color at the current scroll
// position. clear is true for color 0.
func (p *Ppu) backgroundPixel() (uint8, bool) {
	if p.mask&maskShowBg == 0 {
		return 0, true
	}

	tileAddr := p.reg.tileAddr()
	attribute := p.read(p.reg.attributeAddr())
	paletteID := paletteIDOf(tileAddr&0x3FF, attribute)

	tile := p.read(tileAddr)
	base := p.bgPatternTable() + uint16(tile)*patternSize + p.reg.fineY()
	color := patternColor(p.read(base), p.read(base+8), p.bgRelativeX)
	if color == 0 {
		return 0, true
	}
	return p.read(paletteBase + uint16(paletteID)*4 + uint16(color)), false
}

// paletteIDOf picks the 2-bit quadrant of an attribute byte for a tile.
func paletteIDOf(tileID uint16, attribute uint8) uint8 {
	quadrant := (tileID>>6)&1<<1 | (tileID>>1)&1
	return attribute >> (quadrant * 2) & 0x03
}

// patternColor combines the two bit planes of a pattern row at column x.
func patternColor(lower, upper uint8, x uint8) uint8 {
	bit := 7 - x
	return (upper>>bit&1)<<1 | lower>>bit&1
}

func (p *Ppu) bgPatternTable() uint16 {
	if p.ctrl&ctrlBgTable != 0 {
		return 0x1000
	}
	return 0x0000
}

func (p *Ppu) spritePatternTable() uint16 {
	if p.ctrl&ctrlSpriteTable != 0 {
		return 0x1000
	}
	return 0x0000
}

func (p *Ppu) advanceVramAddr() {
	if p.ctrl&ctrlIncrement32 != 0 {
		p.vramAddr += 32
	} else {
		p.vramAddr++
	}
	p.vramAddr &= 0x3FFF
}

// read fetches through the bus while rendering, recording the first error.
func (p *Ppu) read(addr uint16) uint8 {
	if p.err != nil {
		return 0
	}
	v, err := p.bus.ReadByte(addr, false)
	if err != nil {
		p.fail(err)
	}
	return v
}

func (p *Ppu) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
