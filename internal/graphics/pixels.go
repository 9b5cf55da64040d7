package graphics

import "github.com/kazuhito-m/nes-emulator-study/internal/ppu"

// packRGBA writes frame as opaque RGBA bytes, row-major.
func packRGBA(frame *Frame, dst []byte) {
	i := 0
	for y := 0; y < ppu.Height; y++ {
		for x := 0; x < ppu.Width; x++ {
			c := frame[y][x]
			dst[i] = c.R
			dst[i+1] = c.G
			dst[i+2] = c.B
			dst[i+3] = 0xFF
			i += 4
		}
	}
}

// fitScale returns the largest uniform scale that fits a NES picture into
// the window, and the offsets that center it.
func fitScale(windowWidth, windowHeight int) (scale, offsetX, offsetY float64) {
	scaleX := float64(windowWidth) / float64(ppu.Width)
	scaleY := float64(windowHeight) / float64(ppu.Height)
	scale = scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX = (float64(windowWidth) - float64(ppu.Width)*scale) / 2
	offsetY = (float64(windowHeight) - float64(ppu.Height)*scale) / 2
	return scale, offsetX, offsetY
}
