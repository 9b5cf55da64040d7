// Package emulator is the composition root of the NES core. It owns one
// instance of every unit and drives them from a single instruction loop.
package emulator

import (
	"errors"
	"fmt"

	"github.com/kazuhito-m/nes-emulator-study/internal/apu"
	"github.com/kazuhito-m/nes-emulator-study/internal/bus"
	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/cpu"
	"github.com/kazuhito-m/nes-emulator-study/internal/input"
	"github.com/kazuhito-m/nes-emulator-study/internal/memory"
	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// ErrInvalidPad is returned for a controller port other than Pad1 or Pad2.
var ErrInvalidPad = errors.New("invalid controller port")

// Values the counters hold right after power-on RESET.
const (
	initialClock        = 7
	initialInstructions = 1
)

// Options are the host hooks. Both are optional.
type Options struct {
	// SampleSink receives one mixed APU sample in [-1, 1] every 40 or 41
	// CPU clocks.
	SampleSink func(float32)
	// TraceSink is called with the machine state before each instruction.
	TraceSink func(EmuInfo)
}

// EmuInfo is a debug snapshot of the whole machine.
type EmuInfo struct {
	cpu.CpuInfo

	PpuLines  int
	PpuCycles int

	CpuCycles    uint64
	Instructions uint64
	Frames       uint64
}

// Emulator runs an NROM cartridge.
type Emulator struct {
	system    *memory.System
	ppuSystem *memory.PpuSystem
	ppuBus    *bus.PpuBus
	ppu       *ppu.Ppu
	apuBus    *bus.ApuBus
	apu       *apu.Apu
	cpuBus    *bus.CpuBus
	cpu       *cpu.Cpu

	clock        uint64
	instructions uint64

	trace func(EmuInfo)
}

// New parses an iNES image and powers the machine on.
func New(rom []byte, opts Options) (*Emulator, error) {
	cassette, err := cartridge.New(rom)
	if err != nil {
		return nil, fmt.Errorf("load cassette: %w", err)
	}
	return NewFromCassette(cassette, opts)
}

// NewFromCassette powers the machine on with an already loaded cartridge.
// The PPU and APU are clocked through the cycles the CPU spends on RESET.
func NewFromCassette(cassette *cartridge.Cassette, opts Options) (*Emulator, error) {
	e := &Emulator{trace: opts.TraceSink}

	e.system = memory.NewSystem(cassette)
	e.ppuSystem = memory.NewPpuSystem()
	e.ppuBus = bus.NewPpuBus(e.system, e.ppuSystem)
	e.ppu = ppu.New(e.ppuBus)
	e.apuBus = bus.NewApuBus(e.system)
	e.apu = apu.New(e.apuBus, opts.SampleSink)
	e.cpuBus = bus.NewCpuBus(e.system, e.ppu, e.apu)
	e.cpu = cpu.New(e.cpuBus)

	e.ppuBus.Bind(e.cpu)
	e.apuBus.Bind(e.cpu)
	e.cpuBus.Bind(e.cpu)

	e.cpu.Interrupt(cpu.InterruptReset)
	if _, err := e.advance(initialClock); err != nil {
		return nil, fmt.Errorf("power on: %w", err)
	}
	e.instructions = initialInstructions
	return e, nil
}

// Step runs one CPU instruction, plus any OAM DMA pending before it, and
// the PPU and APU for the same number of cycles. It reports whether the PPU
// finished a frame.
func (e *Emulator) Step() (bool, error) {
	if e.trace != nil {
		e.trace(e.GetEmuInfo())
	}

	dma := e.cpuBus.RunDma(int(e.clock))
	if err := e.cpuBus.Err(); err != nil {
		return false, fmt.Errorf("cpu bus: %w", err)
	}

	add, err := e.cpu.Run()
	if err != nil {
		return false, fmt.Errorf("cpu: %w", err)
	}
	e.instructions++

	// The CPU is halted during DMA; the PPU and APU are not.
	return e.advance(dma + add)
}

// advance clocks the PPU and APU through cycles CPU cycles, then through
// every stall the DMC fetches in that window add, until none are left.
func (e *Emulator) advance(cycles int) (bool, error) {
	frameDone := false
	for cycles > 0 {
		e.clock += uint64(cycles)

		done, err := e.ppu.Run(cycles * 3)
		if err != nil {
			return false, fmt.Errorf("ppu: %w", err)
		}
		frameDone = frameDone || done

		stall, err := e.apu.Run(cycles)
		if err != nil {
			return false, fmt.Errorf("apu: %w", err)
		}
		cycles = stall
	}
	return frameDone, nil
}

// StepFrame runs instructions until the PPU completes a frame.
func (e *Emulator) StepFrame() error {
	for {
		done, err := e.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// GetPicture copies the last frame as NES color indices.
func (e *Emulator) GetPicture(dst *ppu.Picture) {
	e.ppu.CopyPicture(dst)
}

// GetPictureColor copies the last frame resolved to RGB.
func (e *Emulator) GetPictureColor(dst *[ppu.Height][ppu.Width]ppu.Color) {
	var pic ppu.Picture
	e.ppu.CopyPicture(&pic)
	ppu.Colorize(&pic, dst)
}

// GetEmuInfo returns a snapshot of the CPU registers, the PPU position and
// the run counters.
func (e *Emulator) GetEmuInfo() EmuInfo {
	return EmuInfo{
		CpuInfo:      e.cpu.Info(),
		PpuLines:     e.ppu.Lines(),
		PpuCycles:    e.ppu.Cycles(),
		CpuCycles:    e.clock,
		Instructions: e.instructions,
		Frames:       e.ppu.Frames(),
	}
}

// PushButton presses a button on controller id.
func (e *Emulator) PushButton(id input.PadID, b input.Button) error {
	pad := e.system.Pad(id)
	if pad == nil {
		return fmt.Errorf("push %s on port %d: %w", b, id, ErrInvalidPad)
	}
	pad.Push(b)
	return nil
}

// ReleaseButton releases a button on controller id.
func (e *Emulator) ReleaseButton(id input.PadID, b input.Button) error {
	pad := e.system.Pad(id)
	if pad == nil {
		return fmt.Errorf("release %s on port %d: %w", b, id, ErrInvalidPad)
	}
	pad.Release(b)
	return nil
}

// Reset presses the reset button: the CPU reloads PC from the RESET vector
// and a sticky bus fault is forgotten. RAM and the counters are kept.
func (e *Emulator) Reset() {
	e.cpuBus.ClearErr()
	e.cpu.Interrupt(cpu.InterruptReset)
}

// SetProgramCounter moves PC, for test ROMs with an automation entry point.
func (e *Emulator) SetProgramCounter(pc uint16) {
	e.cpu.SetPC(pc)
}

// ReadMemory reads the CPU address space without side effects. Only RAM,
// PRG RAM, PRG ROM and the I/O shadow are visible.
func (e *Emulator) ReadMemory(addr uint16) (uint8, error) {
	return e.cpuBus.Peek(addr)
}

// SetDebugLogging toggles the per-unit debug logs.
func (e *Emulator) SetDebugLogging(enabled bool) {
	e.cpu.SetDebugLogging(enabled)
	e.ppu.SetDebugLogging(enabled)
	e.apu.SetDebugLogging(enabled)
	e.cpuBus.SetWatchLogging(enabled)
	for id := input.Pad1; id < input.NumPads; id++ {
		e.system.Pad(id).SetDebugLogging(enabled)
	}
}

// Watch logs writes that change addr while debug logging is on.
func (e *Emulator) Watch(addr uint16) {
	e.cpuBus.Watch(addr)
}
