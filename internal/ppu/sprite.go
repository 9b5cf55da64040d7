package ppu

const spriteCount = oamSize / 4

// Sprite is one 4-byte OAM record. Y is stored one line above where the
// sprite appears.
type Sprite struct {
	Y         uint8
	Tile      uint8
	Attribute uint8
	X         uint8
}

// Sprite attribute bits
const (
	spriteBehindBg = 0x20
	spriteFlipH    = 0x40
	spriteFlipV    = 0x80
)

// Sprite returns OAM entry i (0-63).
func (p *Ppu) Sprite(i int) Sprite {
	o := (i % spriteCount) * 4
	return Sprite{Y: p.oam[o], Tile: p.oam[o+1], Attribute: p.oam[o+2], X: p.oam[o+3]}
}

// spritePixel returns the palette color of the sprite at a pixel relative
// to its top-left corner, and whether that pixel is transparent.
func (p *Ppu) spritePixel(s Sprite, ry, rx uint8) (uint8, bool) {
	if s.Attribute&spriteFlipH != 0 {
		rx = 7 - rx
	}
	if s.Attribute&spriteFlipV != 0 {
		ry = 7 - ry
	}

	base := p.spritePatternTable() + uint16(s.Tile)*patternSize + uint16(ry)
	color := patternColor(p.read(base), p.read(base+8), rx)
	if color == 0 {
		return 0, true
	}
	addr := spritePaletteBase | uint16(s.Attribute&0x03)<<2
	return p.read(addr + uint16(color)), false
}

// buildSprites draws all 64 sprites over the background in OAM order.
// Front sprites always win; back sprites only cover clear background.
func (p *Ppu) buildSprites() {
	if p.mask&maskShowSprites == 0 {
		return
	}
	if p.ctrl&ctrlSpriteSize != 0 {
		p.fail(ErrTallSprites)
		return
	}

	for i := 0; i < spriteCount; i++ {
		s := p.Sprite(i)
		top := int(s.Y) + 1
		left := int(s.X)

		for ry := 0; ry < 8; ry++ {
			y := top + ry
			if y >= Height {
				break
			}
			for rx := 0; rx < 8; rx++ {
				x := left + rx
				if x >= Width {
					break
				}
				color, clear := p.spritePixel(s, uint8(ry), uint8(rx))
				if clear {
					continue
				}
				if s.Attribute&spriteBehindBg == 0 || p.bgClear[y][x] {
					p.output[y][x] = color
				}
			}
		}
	}
}

// sprite0Hit reports whether sprite 0 and the background are both opaque
// at (y, x). Rendering and both left-column masks must be enabled.
func (p *Ppu) sprite0Hit(y, x int) bool {
	const required = maskShowBgLeft | maskShowSprLeft | maskShowBg | maskShowSprites
	if p.mask&required != required {
		return false
	}
	if p.ctrl&ctrlSpriteSize != 0 {
		p.fail(ErrTallSprites)
		return false
	}

	s := p.Sprite(0)
	ry := y - (int(s.Y) + 1)
	rx := x - int(s.X)
	if rx < 0 || ry < 0 || rx >= 8 || ry >= 8 {
		return false
	}

	_, spriteClear := p.spritePixel(s, uint8(ry), uint8(rx))
	return !spriteClear && !p.bgClear[y][x]
}
