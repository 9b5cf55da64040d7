package bus

import (
	"fmt"
	"log"

	"github.com/kazuhito-m/nes-emulator-study/internal/apu"
	"github.com/kazuhito-m/nes-emulator-study/internal/input"
	"github.com/kazuhito-m/nes-emulator-study/internal/memory"
	"github.com/kazuhito-m/nes-emulator-study/internal/ppu"
)

// CPU address map boundaries.
const (
	ppuRegBase    = 0x2000
	ioRegBase     = 0x4000
	expansionBase = 0x4020
	prgRamBase    = 0x6000
	prgRomBase    = 0x8000

	oamDmaPort  = 0x4014
	apuStatus   = 0x4015
	pad1Port    = 0x4016
	pad2Port    = 0x4017
	oamDmaBytes = 0x100
)

// PPU register ports, relative to $2000 and mirrored every 8 bytes.
const (
	portCtrl = iota
	portMask
	portStatus
	portOamAddr
	portOamData
	portScroll
	portAddr
	portData
)

// CpuBus decodes the CPU address space. It implements cpu.Bus: accesses never
// return an error directly; the first decode fault is kept and reported by Err.
type CpuBus struct {
	binding

	system *memory.System
	ppu    *ppu.Ppu
	apu    *apu.Apu

	dmaPage    uint8
	dmaPending bool

	err error

	watchLogging bool
	watches      map[uint16]struct{}
}

// NewCpuBus connects the CPU side of the system to the PPU and APU register files.
func NewCpuBus(system *memory.System, p *ppu.Ppu, a *apu.Apu) *CpuBus {
	return &CpuBus{
		system:  system,
		ppu:     p,
		apu:     a,
		watches: make(map[uint16]struct{}),
	}
}

// Err returns the first decode fault since the last ClearErr.
func (b *CpuBus) Err() error {
	return b.err
}

// ClearErr forgets a recorded fault.
func (b *CpuBus) ClearErr() {
	b.err = nil
}

func (b *CpuBus) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// ReadByte performs a CPU read, including register side effects.
func (b *CpuBus) ReadByte(addr uint16) uint8 {
	switch {
	case addr < ppuRegBase:
		return b.system.ReadWram(addr)

	case addr < ioRegBase:
		return b.readPpuPort(addr)

	case addr < expansionBase:
		switch addr {
		case apuStatus:
			return b.apu.ReadStatus()
		case pad1Port:
			return b.system.Pad(input.Pad1).Read()
		case pad2Port:
			return b.system.Pad(input.Pad2).Read()
		}
		return b.system.ReadIoReg(addr - ioRegBase)

	case addr < prgRamBase:
		b.fail(fmt.Errorf("read $%04X: %w", addr, ErrUnmappedAddress))
		return 0

	case addr < prgRomBase:
		return b.system.ReadPrgRam(addr - prgRamBase)

	default:
		return b.readPrgRom(addr)
	}
}

// WriteByte performs a CPU write.
func (b *CpuBus) WriteByte(addr uint16, data uint8) {
	switch {
	case addr < ppuRegBase:
		b.noteWrite(addr, data)
		b.system.WriteWram(addr, data)

	case addr < ioRegBase:
		b.writePpuPort(addr, data)

	case addr < expansionBase:
		b.writeIoPort(addr, data)

	case addr < prgRamBase:
		b.fail(fmt.Errorf("write $%04X: %w", addr, ErrUnmappedAddress))

	case addr < prgRomBase:
		b.noteWrite(addr, data)
		b.system.WritePrgRam(addr-prgRamBase, data)

	default:
		// NROM has no registers in PRG space.
		if b.watchLogging {
			log.Printf("[CPU_BUS] ignored write $%04X <- %02X", addr, data)
		}
	}
}

func (b *CpuBus) readPpuPort(addr uint16) uint8 {
	switch (addr - ppuRegBase) % 8 {
	case portStatus:
		return b.ppu.ReadPpuStatus()
	case portOamData:
		return b.ppu.ReadOamData()
	case portData:
		v, err := b.ppu.ReadPpuData()
		if err != nil {
			b.fail(fmt.Errorf("read $%04X: %w", addr, err))
		}
		return v
	}
	b.fail(fmt.Errorf("read $%04X: %w", addr, ErrUndefinedPort))
	return 0
}

func (b *CpuBus) writePpuPort(addr uint16, data uint8) {
	switch (addr - ppuRegBase) % 8 {
	case portCtrl:
		b.ppu.WritePpuCtrl(data)
	case portMask:
		b.ppu.WritePpuMask(data)
	case portStatus:
		// read-only
	case portOamAddr:
		b.ppu.WriteOamAddr(data)
	case portOamData:
		b.ppu.WriteOamData(data)
	case portScroll:
		b.ppu.WritePpuScroll(data)
	case portAddr:
		b.ppu.WritePpuAddr(data)
	case portData:
		if err := b.ppu.WritePpuData(data); err != nil {
			b.fail(fmt.Errorf("write $%04X: %w", addr, err))
		}
	}
}

func (b *CpuBus) writeIoPort(addr uint16, data uint8) {
	switch {
	case addr == oamDmaPort:
		b.dmaPage = data
		b.dmaPending = true
	case addr == pad1Port:
		strobe := data&1 != 0
		b.system.Pad(input.Pad1).SetStrobe(strobe)
		b.system.Pad(input.Pad2).SetStrobe(strobe)
	case addr <= apuStatus || addr == pad2Port:
		b.apu.WriteRegister(addr, data)
	}
	b.system.WriteIoReg(addr-ioRegBase, data)
}

func (b *CpuBus) readPrgRom(addr uint16) uint8 {
	var buf [1]byte
	if err := b.system.Cassette().ReadPrgRom(buf[:], int(addr-prgRomBase)); err != nil {
		b.fail(fmt.Errorf("read $%04X: %w", addr, err))
		return 0
	}
	return buf[0]
}

// DmaPending reports whether a $4014 write is waiting for RunDma.
func (b *CpuBus) DmaPending() bool {
	return b.dmaPending
}

// RunDma performs a pending OAM DMA and returns the CPU cycles it stole:
// 0 when nothing is pending, otherwise 513 plus one on an odd cycle.
func (b *CpuBus) RunDma(cpuCycles int) int {
	if !b.dmaPending {
		return 0
	}
	b.dmaPending = false

	if oam := b.ppu.OamAddr(); oam != 0 {
		b.fail(fmt.Errorf("dma page $%02X with oam address $%02X: %w", b.dmaPage, oam, ErrDmaOamAddr))
		return 0
	}

	base := uint16(b.dmaPage) << 8
	for i := uint16(0); i < oamDmaBytes; i++ {
		b.ppu.WriteOamData(b.ReadByte(base + i))
	}

	if cpuCycles%2 == 1 {
		return 514
	}
	return 513
}

// Peek reads RAM, PRG RAM, PRG ROM or the I/O shadow without side effects.
// Device registers cannot be peeked.
func (b *CpuBus) Peek(addr uint16) (uint8, error) {
	switch {
	case addr < ppuRegBase:
		return b.system.ReadWram(addr), nil
	case addr < ioRegBase:
		return 0, fmt.Errorf("peek $%04X: %w", addr, ErrUnmappedAddress)
	case addr < expansionBase:
		return b.system.ReadIoReg(addr - ioRegBase), nil
	case addr < prgRamBase:
		return 0, fmt.Errorf("peek $%04X: %w", addr, ErrUnmappedAddress)
	case addr < prgRomBase:
		return b.system.ReadPrgRam(addr - prgRamBase), nil
	}
	var buf [1]byte
	if err := b.system.Cassette().ReadPrgRom(buf[:], int(addr-prgRomBase)); err != nil {
		return 0, fmt.Errorf("peek $%04X: %w", addr, err)
	}
	return buf[0], nil
}

// Watch logs every change written to addr while watch logging is enabled.
func (b *CpuBus) Watch(addr uint16) {
	b.watches[addr] = struct{}{}
}

// SetWatchLogging enables or disables [CPU_BUS] write logging.
func (b *CpuBus) SetWatchLogging(enabled bool) {
	b.watchLogging = enabled
}

func (b *CpuBus) noteWrite(addr uint16, data uint8) {
	if !b.watchLogging {
		return
	}
	if _, ok := b.watches[addr]; !ok {
		return
	}
	old, _ := b.Peek(addr)
	if old != data {
		log.Printf("[CPU_BUS] $%04X: %02X -> %02X", addr, old, data)
	}
}
