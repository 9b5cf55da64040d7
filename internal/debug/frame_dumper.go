package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// FrameDumper writes raw pictures (NES color indices, before palette
// lookup) as text, every interval frames, up to maxDumps files.
type FrameDumper struct {
	outputDir string
	interval  uint64
	maxDumps  int
	dumps     int
}

// NewFrameDumper dumps into outputDir, creating it if needed.
func NewFrameDumper(outputDir string, interval uint64, maxDumps int) (*FrameDumper, error) {
	if interval == 0 {
		interval = 1
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &FrameDumper{outputDir: outputDir, interval: interval, maxDumps: maxDumps}, nil
}

// Dumps returns the number of files written.
func (fd *FrameDumper) Dumps() int {
	return fd.dumps
}

// Dump writes pic if frameNum is due. It reports whether a file was written.
func (fd *FrameDumper) Dump(pic *ppu.Picture, frameNum uint64) (bool, error) {
	if frameNum%fd.interval != 0 || (fd.maxDumps > 0 && fd.dumps >= fd.maxDumps) {
		return false, nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.txt", frameNum))
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create frame dump file: %w", err)
	}
	if err := WritePicture(f, pic, frameNum); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	fd.dumps++
	return true, nil
}

// WritePicture writes the color index grid followed by a frequency table.
func WritePicture(w io.Writer, pic *ppu.Picture, frameNum uint64) error {
	var freq [64]int

	fmt.Fprintf(w, "Frame %d (%dx%d color indices)\n", frameNum, ppu.Width, ppu.Height)
	for y := 0; y < ppu.Height; y++ {
		line := make([]byte, 0, ppu.Width*2)
		for x := 0; x < ppu.Width; x++ {
			idx := pic[y][x] & 0x3F
			freq[idx]++
			line = append(line, fmt.Sprintf("%02X", idx)...)
		}
		if _, err := fmt.Fprintf(w, "%03d: %s\n", y, line); err != nil {
			return err
		}
	}

	type entry struct {
		index uint8
		count int
	}
	var entries []entry
	for i, n := range freq {
		if n > 0 {
			entries = append(entries, entry{uint8(i), n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].index < entries[j].index
	})

	fmt.Fprintf(w, "\nColor | Count | Percentage | RGB\n")
	total := float64(ppu.Width * ppu.Height)
	for _, e := range entries {
		c := ppu.ColorOf(e.index)
		if _, err := fmt.Fprintf(w, "  $%02X | %5d | %9.2f%% | #%02X%02X%02X\n",
			e.index, e.count, float64(e.count)/total*100, c.R, c.G, c.B); err != nil {
			return err
		}
	}
	return nil
}
