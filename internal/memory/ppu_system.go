package memory

const (
	NametableSize = 0x1000
	PaletteSize   = 0x20
)

// PpuSystem is the PPU-side VRAM: room for four nametables regardless of the
// cartridge's mirroring, and the 32-byte palette RAM.
type PpuSystem struct {
	nametable [NametableSize]uint8
	palette   [PaletteSize]uint8
}

// NewPpuSystem returns zeroed VRAM.
func NewPpuSystem() *PpuSystem {
	return &PpuSystem{}
}

// ReadNametable reads the nametable store at an already mirrored index.
func (p *PpuSystem) ReadNametable(idx uint16) uint8 {
	return p.nametable[idx%NametableSize]
}

// WriteNametable writes the nametable store.
func (p *PpuSystem) WriteNametable(idx uint16, data uint8) {
	p.nametable[idx%NametableSize] = data
}

// ReadPalette reads palette RAM. Backdrop aliasing is the caller's concern.
func (p *PpuSystem) ReadPalette(idx uint16) uint8 {
	return p.palette[idx%PaletteSize]
}

// WritePalette writes palette RAM.
func (p *PpuSystem) WritePalette(idx uint16, data uint8) {
	p.palette[idx%PaletteSize] = data
}
