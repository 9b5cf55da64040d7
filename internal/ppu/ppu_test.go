package ppu

import (
	"errors"
	"testing"
)

// MockBus backs the PPU with flat CHR, four unmirrored nametables and a
// raw 32-byte palette.
type MockBus struct {
	chr     [0x2000]uint8
	vram    [0x1000]uint8
	palette [32]uint8
	nmi     int
	nmiErr  error
}

func (b *MockBus) ReadByte(addr uint16, buffered bool) (uint8, error) {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		return b.chr[addr], nil
	case addr < 0x3F00:
		return b.vram[(addr-0x2000)&0x0FFF], nil
	case buffered:
		return b.vram[(addr-0x3000)&0x0FFF], nil
	default:
		return b.palette[(addr-0x3F00)%32], nil
	}
}

func (b *MockBus) WriteByte(addr uint16, data uint8) error {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		b.chr[addr] = data
	case addr < 0x3F00:
		b.vram[(addr-0x2000)&0x0FFF] = data
	default:
		b.palette[(addr-0x3F00)%32] = data
	}
	return nil
}

func (b *MockBus) GenerateCpuInterrupt() error {
	b.nmi++
	return b.nmiErr
}

const (
	transparentTile = 0
	solidTile       = 1 // every pixel color 1
	color2Tile      = 2 // every pixel color 2
	cornerTile      = 3 // only the top-left pixel, color 1
)

func newTestBus() *MockBus {
	b := &MockBus{}
	for row := 0; row < 8; row++ {
		b.chr[solidTile*16+row] = 0xFF
		b.chr[color2Tile*16+8+row] = 0xFF
	}
	b.chr[cornerTile*16] = 0x80

	b.palette[0x00] = 0x0F
	b.palette[0x01] = 0x16
	b.palette[0x11] = 0x21
	b.palette[0x12] = 0x30
	return b
}

// fillNametables sets every tile of the four nametables, leaving the
// attribute tables at palette 0.
func fillNametables(b *MockBus, tile uint8) {
	for i := range b.vram {
		if i%0x400 < 0x3C0 {
			b.vram[i] = tile
		}
	}
}

func mustRun(t *testing.T, p *Ppu, dots int) bool {
	t.Helper()
	done, err := p.Run(dots)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return done
}

func TestRun_OneFrameCompletesOnce(t *testing.T) {
	tests := []struct {
		name  string
		chunk int
	}{
		{"single dots", 1},
		{"whole lines", dotsPerLine},
		{"whole frame", dotsPerLine * linesPerFrame},
	}

	for _, tt := range tests {
		p := New(newTestBus())
		completions := 0
		for dots := 0; dots < dotsPerLine*linesPerFrame; dots += tt.chunk {
			if mustRun(t, p, tt.chunk) {
				completions++
			}
		}

		if completions != 1 {
			t.Errorf("%s: Expected 1 frame completion, got %d", tt.name, completions)
		}
		if p.Lines() != 0 || p.Cycles() != 0 {
			t.Errorf("%s: Expected line 0 dot 0, got line %d dot %d", tt.name, p.Lines(), p.Cycles())
		}
		if p.Frames() != 1 {
			t.Errorf("%s: Expected 1 frame counted, got %d", tt.name, p.Frames())
		}
	}
}

func TestVBlank_FlagAndNMI(t *testing.T) {
	tests := []struct {
		name string
		ctrl uint8
		nmi  int
	}{
		{"NMI enabled", ctrlNMIEnable, 1},
		{"NMI disabled", 0, 0},
	}

	for _, tt := range tests {
		bus := newTestBus()
		p := New(bus)
		p.WritePpuCtrl(tt.ctrl)

		mustRun(t, p, vblankLine*dotsPerLine)
		if p.status&statusVBlank != 0 {
			t.Errorf("%s: Expected VBlank clear at line 241 dot 0", tt.name)
		}
		mustRun(t, p, 1)
		if bus.nmi != tt.nmi {
			t.Errorf("%s: Expected %d NMI, got %d", tt.name, tt.nmi, bus.nmi)
		}

		status := p.ReadPpuStatus()
		if status&statusVBlank == 0 {
			t.Errorf("%s: Expected VBlank set, got status 0x%02X", tt.name, status)
		}
		if p.ReadPpuStatus()&statusVBlank != 0 {
			t.Errorf("%s: Expected status read to clear VBlank", tt.name)
		}
	}
}

func TestVBlank_ClearedOnPreRenderLine(t *testing.T) {
	p := New(newTestBus())
	mustRun(t, p, vblankLine*dotsPerLine+1)
	p.status |= statusSprite0Hit

	mustRun(t, p, (preRenderLine-vblankLine)*dotsPerLine)
	if p.status&(statusVBlank|statusSprite0Hit) != 0 {
		t.Errorf("Expected flags clear on line 261, got status 0x%02X", p.status)
	}
}

func TestVBlank_NMIErrorAbortsRun(t *testing.T) {
	bus := newTestBus()
	bus.nmiErr = errors.New("unbound")
	p := New(bus)
	p.WritePpuCtrl(ctrlNMIEnable)

	if _, err := p.Run(dotsPerLine * linesPerFrame); !errors.Is(err, bus.nmiErr) {
		t.Errorf("Expected NMI error, got %v", err)
	}
}

func TestSprite0Hit(t *testing.T) {
	tests := []struct {
		name       string
		mask       uint8
		bgTile     uint8
		spriteTile uint8
		hit        bool
	}{
		{"all enabled and both opaque", 0x1E, solidTile, solidTile, true},
		{"left background clipped", 0x1C, solidTile, solidTile, false},
		{"left sprites clipped", 0x1A, solidTile, solidTile, false},
		{"background disabled", 0x16, solidTile, solidTile, false},
		{"sprites disabled", 0x0E, solidTile, solidTile, false},
		{"background transparent", 0x1E, transparentTile, solidTile, false},
		{"sprite transparent", 0x1E, solidTile, transparentTile, false},
	}

	for _, tt := range tests {
		bus := newTestBus()
		fillNametables(bus, tt.bgTile)
		p := New(bus)
		p.WritePpuMask(tt.mask)
		p.oam = [oamSize]uint8{9, tt.spriteTile, 0, 20}

		mustRun(t, p, 20*dotsPerLine)
		hit := p.status&statusSprite0Hit != 0
		if hit != tt.hit {
			t.Errorf("%s: Expected hit=%t, got %t", tt.name, tt.hit, hit)
		}
	}
}

func TestSprite0Hit_NotBeforeSpriteLine(t *testing.T) {
	bus := newTestBus()
	fillNametables(bus, solidTile)
	p := New(bus)
	p.WritePpuMask(0x1E)
	p.oam = [oamSize]uint8{99, solidTile, 0, 0}

	mustRun(t, p, 100*dotsPerLine)
	if p.status&statusSprite0Hit != 0 {
		t.Error("Expected no hit above the sprite")
	}
	mustRun(t, p, dotsPerLine)
	if p.status&statusSprite0Hit == 0 {
		t.Error("Expected hit on the sprite's first line")
	}
}

func TestTallSpritesFail(t *testing.T) {
	p := New(newTestBus())
	p.WritePpuCtrl(ctrlSpriteSize)
	p.WritePpuMask(0x1E)

	if _, err := p.Run(dotsPerLine * 2); !errors.Is(err, ErrTallSprites) {
		t.Errorf("Expected ErrTallSprites, got %v", err)
	}
}

func TestBackgroundRendering(t *testing.T) {
	tests := []struct {
		name  string
		mask  uint8
		tile  uint8
		color uint8
	}{
		{"opaque tile uses palette entry", maskShowBg, solidTile, 0x16},
		{"transparent tile shows backdrop", maskShowBg, transparentTile, 0x0F},
		{"background disabled shows backdrop", 0, solidTile, 0x0F},
	}

	for _, tt := range tests {
		bus := newTestBus()
		fillNametables(bus, tt.tile)
		p := New(bus)
		p.WritePpuMask(tt.mask)
		mustRun(t, p, dotsPerLine*linesPerFrame)

		var pic Picture
		p.CopyPicture(&pic)
		for _, pt := range [][2]int{{0, 0}, {120, 128}, {Height - 1, Width - 1}} {
			if got := pic[pt[0]][pt[1]]; got != tt.color {
				t.Errorf("%s: Expected 0x%02X at %v, got 0x%02X", tt.name, tt.color, pt, got)
			}
		}
	}
}

func TestBackgroundAttributePalette(t *testing.T) {
	bus := newTestBus()
	fillNametables(bus, solidTile)
	// top-left attribute byte: quadrant 1 (top right of the 32x32 block) uses palette 2
	bus.vram[0x3C0] = 0x08
	bus.palette[0x09] = 0x2C
	p := New(bus)
	p.WritePpuMask(maskShowBg)
	mustRun(t, p, dotsPerLine*linesPerFrame)

	var pic Picture
	p.CopyPicture(&pic)
	if pic[0][0] != 0x16 {
		t.Errorf("Expected palette 0 at (0,0), got 0x%02X", pic[0][0])
	}
	if pic[0][16] != 0x2C {
		t.Errorf("Expected palette 2 at (0,16), got 0x%02X", pic[0][16])
	}
}

func TestSpritePriority(t *testing.T) {
	tests := []struct {
		name   string
		bgTile uint8
		attr   uint8
		color  uint8
	}{
		{"front over opaque background", solidTile, 0x00, 0x30},
		{"back behind opaque background", solidTile, spriteBehindBg, 0x16},
		{"back over clear background", transparentTile, spriteBehindBg, 0x30},
	}

	for _, tt := range tests {
		bus := newTestBus()
		fillNametables(bus, tt.bgTile)
		p := New(bus)
		p.WritePpuMask(maskShowBg | maskShowSprites)
		p.oam = [oamSize]uint8{49, color2Tile, tt.attr, 100}
		mustRun(t, p, dotsPerLine*linesPerFrame)

		var pic Picture
		p.CopyPicture(&pic)
		if got := pic[50][100]; got != tt.color {
			t.Errorf("%s: Expected 0x%02X, got 0x%02X", tt.name, tt.color, got)
		}
	}
}

func TestSpritePixel_Flip(t *testing.T) {
	tests := []struct {
		name   string
		attr   uint8
		ry, rx uint8
	}{
		{"no flip", 0x00, 0, 0},
		{"horizontal", spriteFlipH, 0, 7},
		{"vertical", spriteFlipV, 7, 0},
		{"both", spriteFlipH | spriteFlipV, 7, 7},
	}

	for _, tt := range tests {
		p := New(newTestBus())
		color, clear := p.spritePixel(Sprite{Tile: cornerTile, Attribute: tt.attr}, tt.ry, tt.rx)
		if clear || color != 0x21 {
			t.Errorf("%s: Expected opaque 0x21 at (%d,%d), got 0x%02X clear=%t", tt.name, tt.ry, tt.rx, color, clear)
		}
	}
}

func TestPpuData_WriteAndIncrement(t *testing.T) {
	tests := []struct {
		name string
		ctrl uint8
		next uint16
	}{
		{"increment 1", 0, 0x2109},
		{"increment 32", ctrlIncrement32, 0x2128},
	}

	for _, tt := range tests {
		bus := newTestBus()
		p := New(bus)
		p.WritePpuCtrl(tt.ctrl)
		p.WritePpuAddr(0x21)
		p.WritePpuAddr(0x08)
		if err := p.WritePpuData(0x55); err != nil {
			t.Fatalf("WritePpuData failed: %v", err)
		}

		if bus.vram[0x108] != 0x55 {
			t.Errorf("%s: Expected 0x55 at $2108, got 0x%02X", tt.name, bus.vram[0x108])
		}
		if p.vramAddr != tt.next {
			t.Errorf("%s: Expected address 0x%04X, got 0x%04X", tt.name, tt.next, p.vramAddr)
		}
	}
}

func TestPpuData_BufferedRead(t *testing.T) {
	bus := newTestBus()
	bus.vram[0x108] = 0xAA
	bus.vram[0x109] = 0xBB
	p := New(bus)
	p.WritePpuAddr(0x21)
	p.WritePpuAddr(0x08)

	for i, want := range []uint8{0x00, 0xAA, 0xBB} {
		got, err := p.ReadPpuData()
		if err != nil {
			t.Fatalf("ReadPpuData failed: %v", err)
		}
		if got != want {
			t.Errorf("read %d: Expected 0x%02X, got 0x%02X", i, want, got)
		}
	}
}

func TestPpuData_PaletteReadIsImmediate(t *testing.T) {
	bus := newTestBus()
	bus.palette[0x01] = 0x2A
	bus.vram[0xF01] = 0x77
	p := New(bus)
	p.WritePpuAddr(0x3F)
	p.WritePpuAddr(0x01)

	got, err := p.ReadPpuData()
	if err != nil {
		t.Fatalf("ReadPpuData failed: %v", err)
	}
	if got != 0x2A {
		t.Errorf("Expected palette byte 0x2A, got 0x%02X", got)
	}
	if p.readBuffer != 0x77 {
		t.Errorf("Expected buffer to hold nametable byte 0x77, got 0x%02X", p.readBuffer)
	}
}

func TestOamData(t *testing.T) {
	p := New(newTestBus())
	p.WriteOamAddr(0x10)
	p.WriteOamData(0x01)
	p.WriteOamData(0x02)

	if p.OamAddr() != 0x12 {
		t.Errorf("Expected OAMADDR 0x12, got 0x%02X", p.OamAddr())
	}
	p.WriteOamAddr(0x11)
	if got := p.ReadOamData(); got != 0x02 {
		t.Errorf("Expected 0x02, got 0x%02X", got)
	}
	if p.OamAddr() != 0x11 {
		t.Error("Expected OAMDATA read not to advance OAMADDR")
	}

	s := p.Sprite(4)
	if s.Y != 0x01 || s.Tile != 0x02 {
		t.Errorf("Expected sprite 4 Y=1 Tile=2, got %+v", s)
	}
}

func TestColorOf(t *testing.T) {
	tests := []struct {
		index uint8
		want  Color
	}{
		{0x00, Color{0x66, 0x66, 0x66}},
		{0x21, Color{0x64, 0xB0, 0xFF}},
		{0x61, Color{0x64, 0xB0, 0xFF}},
		{0x0F, Color{0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		if got := ColorOf(tt.index); got != tt.want {
			t.Errorf("0x%02X: Expected %+v, got %+v", tt.index, tt.want, got)
		}
	}
	if rgba := ColorOf(0x21).RGBA(); rgba != 0xFF64B0FF {
		t.Errorf("Expected 0xFF64B0FF, got 0x%08X", rgba)
	}
}

func TestPaletteIDOf(t *testing.T) {
	const attribute = 0xE4 // quadrants 3,2,1,0 -> palettes 3,2,1,0
	tests := []struct {
		tileID uint16
		want   uint8
	}{
		{0, 0},
		{2, 1},
		{64, 2},
		{66, 3},
		{0x3FF, 3},
	}

	for _, tt := range tests {
		if got := paletteIDOf(tt.tileID, attribute); got != tt.want {
			t.Errorf("tile %d: Expected palette %d, got %d", tt.tileID, tt.want, got)
		}
	}
}
