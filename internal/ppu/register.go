package ppu

// internalRegister is the loopy scroll state: v and t are 15-bit
// yyy NN YYYYY XXXXX views, x is fine X and w the shared write toggle.
type internalRegister struct {
	v uint16
	t uint16
	x uint8
	w bool
}

const (
	coarseXMask   = 0x001F
	coarseYMask   = 0x03E0
	nametableMask = 0x0C00
	fineYMask     = 0x7000

	horizontalMask = nametableMask&0x0400 | coarseXMask
	verticalMask   = fineYMask | nametableMask&0x0800 | coarseYMask
)

func (r *internalRegister) setNametableSelect(n uint8) {
	r.t = r.t&^nametableMask | uint16(n&0x03)<<10
}

// writeScroll handles one half of a PPUSCROLL write pair.
func (r *internalRegister) writeScroll(data uint8) {
	if !r.w {
		r.t = r.t&^coarseXMask | uint16(data>>3)
		r.x = data & 0x07
	} else {
		r.t = r.t&^coarseYMask | uint16(data>>3)<<5
		r.t = r.t&^fineYMask | uint16(data&0x07)<<12
	}
	r.w = !r.w
}

// writeAddr handles one half of a PPUADDR write pair. The second write
// copies t into v.
func (r *internalRegister) writeAddr(data uint8) {
	if !r.w {
		r.t = r.t&0x00FF | uint16(data&0x3F)<<8
	} else {
		r.t = r.t&0xFF00 | uint16(data)
		r.v = r.t
	}
	r.w = !r.w
}

func (r *internalRegister) fineY() uint16 {
	return (r.v & fineYMask) >> 12
}

func (r *internalRegister) tileAddr() uint16 {
	return 0x2000 | r.v&0x0FFF
}

func (r *internalRegister) attributeAddr() uint16 {
	v := r.v
	return 0x23C0 | v&0x0C00 | (v>>4)&0x38 | (v>>2)&0x07
}

func (r *internalRegister) incrementCoarseX() {
	if r.v&coarseXMask == 31 {
		r.v &^= coarseXMask
		r.v ^= 0x0400
	} else {
		r.v++
	}
}

func (r *internalRegister) incrementY() {
	if r.v&fineYMask != fineYMask {
		r.v += 0x1000
		return
	}
	r.v &^= fineYMask
	y := (r.v & coarseYMask) >> 5
	switch y {
	case 29:
		y = 0
		r.v ^= 0x0800
	case 31:
		// attribute rows wrap without switching nametables
		y = 0
	default:
		y++
	}
	r.v = r.v&^coarseYMask | y<<5
}

func (r *internalRegister) copyHorizontal() {
	r.v = r.v&^horizontalMask | r.t&horizontalMask
}

func (r *internalRegister) copyVertical() {
	r.v = r.v&^verticalMask | r.t&verticalMask
}
