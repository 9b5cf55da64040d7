package bus

import (
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/cpu"
	"github.com/kazuhito-m/nes-emulator-study/internal/memory"
)

// ApuBus gives the DMC read access to PRG ROM and lets the APU raise IRQ.
type ApuBus struct {
	binding

	system *memory.System
}

// NewApuBus returns the APU's view of the cartridge.
func NewApuBus(system *memory.System) *ApuBus {
	return &ApuBus{system: system}
}

// ReadDmcByte fetches a sample byte. Only PRG space is reachable.
func (b *ApuBus) ReadDmcByte(addr uint16) (uint8, error) {
	if addr < prgRomBase {
		return 0, fmt.Errorf("dmc read $%04X: %w", addr, ErrUnmappedAddress)
	}
	var buf [1]byte
	if err := b.system.Cassette().ReadPrgRom(buf[:], int(addr-prgRomBase)); err != nil {
		return 0, fmt.Errorf("dmc read $%04X: %w", addr, err)
	}
	return buf[0], nil
}

// GenerateCpuInterrupt raises IRQ on the bound CPU.
func (b *ApuBus) GenerateCpuInterrupt() error {
	return b.raise(cpu.InterruptIRQ)
}
