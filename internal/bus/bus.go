// Package bus wires the CPU, PPU and APU to the memory they can see.
//
// Each unit gets its own bus. The buses are created before the CPU exists,
// so interrupt delivery is attached afterwards with Bind.
package bus

import (
	"errors"
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/cpu"
)

var (
	ErrNotBound        = errors.New("bus is not bound to a cpu")
	ErrUnmappedAddress = errors.New("unmapped address")
	ErrUndefinedPort   = errors.New("ppu port has no read behaviour")
	ErrDmaOamAddr      = errors.New("oam dma with non-zero oam address")
)

// Interrupter accepts interrupt requests. *cpu.Cpu satisfies it.
type Interrupter interface {
	Interrupt(kind cpu.InterruptKind)
}

// binding is the late-bound link from a bus back to the CPU.
type binding struct {
	target Interrupter
}

// Bind attaches the interrupt target. Until then raising fails with ErrNotBound.
func (b *binding) Bind(target Interrupter) {
	b.target = target
}

// Bound reports whether Bind has been called with a non-nil target.
func (b *binding) Bound() bool {
	return b.target != nil
}

func (b *binding) raise(kind cpu.InterruptKind) error {
	if b.target == nil {
		return fmt.Errorf("raise %s: %w", kind, ErrNotBound)
	}
	b.target.Interrupt(kind)
	return nil
}
