package cartridge

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// createPatternROM builds an image whose PRG and CHR bytes are position patterns.
func createPatternROM(prgUnits, chrUnits, flags6 uint8) []byte {
	header := make([]byte, 16)
	copy(header, "NES\x1A")
	header[4] = prgUnits
	header[5] = chrUnits
	header[6] = flags6

	rom := append([]byte{}, header...)
	if flags6&0x04 != 0 {
		rom = append(rom, bytes.Repeat([]byte{0xEE}, 512)...)
	}
	prg := make([]byte, int(prgUnits)*PrgRomUnit)
	for i := range prg {
		prg[i] = uint8(i % 251)
	}
	chr := make([]byte, int(chrUnits)*ChrRomUnit)
	for i := range chr {
		chr[i] = uint8((i + 128) % 253)
	}
	rom = append(rom, prg...)
	return append(rom, chr...)
}

func TestNew_RoundTripsPrgAndChr(t *testing.T) {
	tests := []struct {
		name     string
		prgUnits uint8
		chrUnits uint8
		flags6   uint8
	}{
		{"16KB PRG, 8KB CHR", 1, 1, 0},
		{"32KB PRG, 8KB CHR", 2, 1, 0},
		{"32KB PRG, 16KB CHR, vertical", 2, 2, 0x01},
		{"16KB PRG with trainer", 1, 1, 0x04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom := createPatternROM(tt.prgUnits, tt.chrUnits, tt.flags6)
			c, err := New(rom)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			prgStart := 16
			if tt.flags6&0x04 != 0 {
				prgStart += 512
			}
			prgSize := int(tt.prgUnits) * PrgRomUnit
			chrSize := int(tt.chrUnits) * ChrRomUnit

			prg := make([]byte, prgSize)
			if err := c.ReadPrgRom(prg, 0); err != nil {
				t.Fatalf("ReadPrgRom failed: %v", err)
			}
			if !bytes.Equal(prg, rom[prgStart:prgStart+prgSize]) {
				t.Errorf("PRG bytes differ from input slice")
			}

			chr := make([]byte, chrSize)
			if err := c.ReadChrRom(chr, 0); err != nil {
				t.Fatalf("ReadChrRom failed: %v", err)
			}
			if !bytes.Equal(chr, rom[prgStart+prgSize:]) {
				t.Errorf("CHR bytes differ from input slice")
			}
		})
	}
}

func TestNew_Mirroring(t *testing.T) {
	h, err := New(createPatternROM(1, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if h.Mirroring() != MirrorHorizontal {
		t.Errorf("Expected horizontal mirroring, got %v", h.Mirroring())
	}

	v, err := New(createPatternROM(1, 1, 0x01))
	if err != nil {
		t.Fatal(err)
	}
	if v.Mirroring() != MirrorVertical {
		t.Errorf("Expected vertical mirroring, got %v", v.Mirroring())
	}
}

func TestNew_RejectsMalformedImages(t *testing.T) {
	good := createPatternROM(1, 1, 0)
	badMagic := append([]byte{}, good...)
	copy(badMagic, "ROM\x1A")
	mapper1 := append([]byte{}, good...)
	mapper1[6] = 0x10
	noPrg := append([]byte{}, good...)
	noPrg[4] = 0

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", good[:10], ErrTruncated},
		{"bad magic", badMagic, ErrInvalidMagic},
		{"truncated PRG", good[:16+100], ErrTruncated},
		{"truncated CHR", good[:len(good)-1], ErrTruncated},
		{"mapper 1", mapper1, ErrUnsupportedMapper},
		{"zero PRG", noPrg, ErrMissingPrgRom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadPrgRom_SingleBankMirrors(t *testing.T) {
	c, err := New(createPatternROM(1, 1, 0))
	if err != nil {
		t.Fatal(err)
	}

	for _, offset := range []int{0, 1, 0x1234, 0x3FFA, 0x3FFF} {
		lo := make([]byte, 1)
		hi := make([]byte, 1)
		if err := c.ReadPrgRom(lo, offset); err != nil {
			t.Fatal(err)
		}
		if err := c.ReadPrgRom(hi, offset+0x4000); err != nil {
			t.Fatal(err)
		}
		if lo[0] != hi[0] {
			t.Errorf("offset 0x%04X: Expected mirror 0x%02X, got 0x%02X", offset, lo[0], hi[0])
		}
	}

	if err := c.ReadPrgRom(make([]byte, 1), 0x8000); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange past the 32KB window, got %v", err)
	}
}

func TestReadPrgRom_TwoBanksDoNotMirror(t *testing.T) {
	c, err := New(createPatternROM(2, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 2)
	if err := c.ReadPrgRom(buf, 0x7FFE); err != nil {
		t.Fatalf("last bytes should be readable: %v", err)
	}
	if err := c.ReadPrgRom(buf, 0x7FFF); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for read spanning the end, got %v", err)
	}
}

func TestChrRom_BoundsAndWriteBack(t *testing.T) {
	c, err := New(createPatternROM(1, 1, 0))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.ReadChrRom(make([]byte, 1), ChrRomUnit); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("CHR must not mirror, got %v", err)
	}
	if err := c.WriteChrRom([]byte{0xAB, 0xCD}, 0x10); err != nil {
		t.Fatalf("WriteChrRom failed: %v", err)
	}
	got := make([]byte, 2)
	if err := c.ReadChrRom(got, 0x10); err != nil {
		t.Fatal(err)
	}
	if got[0] != 0xAB || got[1] != 0xCD {
		t.Errorf("Expected written bytes AB CD, got % X", got)
	}
}

func TestNew_ChrRamBoard(t *testing.T) {
	c, err := New(createPatternROM(1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !c.HasChrRam() {
		t.Error("Expected CHR RAM when CHR units are zero")
	}
	if c.ChrRomSize() != ChrRomUnit {
		t.Errorf("Expected CHR RAM size %d, got %d", ChrRomUnit, c.ChrRomSize())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.nes")
	if err := os.WriteFile(path, createPatternROM(1, 1, 0), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.PrgRomSize() != PrgRomUnit {
		t.Errorf("Expected PRG size %d, got %d", PrgRomUnit, c.PrgRomSize())
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.nes")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestROMBuilder_PlacesCodeAndVectors(t *testing.T) {
	c, err := NewROMBuilder().
		WithMirroring(MirrorVertical).
		WithCode(0x8000, 0xA9, 0x42).
		WithResetVector(0x8000).
		WithNMIVector(0x9000).
		WithIRQVector(0xA000).
		BuildCassette()
	if err != nil {
		t.Fatalf("BuildCassette failed: %v", err)
	}

	code := make([]byte, 2)
	if err := c.ReadPrgRom(code, 0); err != nil {
		t.Fatal(err)
	}
	if code[0] != 0xA9 || code[1] != 0x42 {
		t.Errorf("Expected A9 42, got % X", code)
	}

	vectors := make([]byte, 6)
	if err := c.ReadPrgRom(vectors, 0x7FFA); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x90, 0x00, 0x80, 0x00, 0xA0}
	if !bytes.Equal(vectors, want) {
		t.Errorf("Expected vectors % X, got % X", want, vectors)
	}
	if c.Mirroring() != MirrorVertical {
		t.Errorf("Expected vertical mirroring, got %v", c.Mirroring())
	}
}
