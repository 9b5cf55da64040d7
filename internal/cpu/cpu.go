// Package cpu implements the 6502 CPU emulation for the NES.
package cpu

import (
	"errors"
	"fmt"
	"log"
)

const (
	stackBase = 0x0100

	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01

	pageMask = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

var (
	// ErrJammed is returned when the CPU executes one of the halting opcodes.
	ErrJammed = errors.New("cpu jammed")
	// ErrAddressingMode is returned when an opcode is paired with a mode it cannot use.
	ErrAddressingMode = errors.New("unexpected addressing mode")
)

// Bus is the CPU's view of the address space. Reads and writes never fail
// individually; the first fault is kept and reported by Err.
type Bus interface {
	ReadByte(addr uint16) uint8
	WriteByte(addr uint16, data uint8)
	Err() error
	// Peek reads without side effects, for debugging.
	Peek(addr uint16) (uint8, error)
}

// Cpu is a 6502 without decimal mode, as used in the NES.
type Cpu struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C bool
	Z bool
	I bool
	D bool
	V bool
	N bool

	bus   Bus
	fault error

	debugLogging bool
}

// New returns a CPU attached to bus. Registers are zero until a RESET
// interrupt loads them.
func New(bus Bus) *Cpu {
	return &Cpu{bus: bus, SP: 0xFD}
}

// SetDebugLogging toggles per-instruction [CPU_DEBUG] logging.
func (c *Cpu) SetDebugLogging(enabled bool) {
	c.debugLogging = enabled
}

// SetPC moves the program counter, for test ROMs with a fixed automation entry.
func (c *Cpu) SetPC(pc uint16) {
	c.PC = pc
}

// Run executes the instruction at PC and returns the cycles it consumed,
// including page-cross and branch penalties.
func (c *Cpu) Run() (int, error) {
	pc := c.PC
	opcode := c.bus.ReadByte(pc)
	inst := instructionTable[opcode]

	if c.debugLogging {
		c.logInstruction(pc, opcode, inst)
	}

	extra, jumped := c.execute(inst)
	if !jumped {
		c.PC = pc + uint16(inst.Bytes)
	}

	if c.fault != nil {
		err := c.fault
		c.fault = nil
		return 0, fmt.Errorf("opcode 0x%02X at $%04X: %w", opcode, pc, err)
	}
	if err := c.bus.Err(); err != nil {
		return 0, fmt.Errorf("opcode 0x%02X at $%04X: %w", opcode, pc, err)
	}
	return inst.Cycles + extra, nil
}

// Info returns a snapshot of the registers and the instruction about to run.
// The instruction bytes are peeked, so a byte the bus cannot peek reads as 0.
func (c *Cpu) Info() CpuInfo {
	opcode := c.peek(c.PC)
	inst := instructionTable[opcode]
	info := CpuInfo{
		A:           c.A,
		X:           c.X,
		Y:           c.Y,
		SP:          c.SP,
		P:           c.Status(),
		PC:          c.PC,
		Instruction: inst,
	}
	info.Operands[0] = opcode
	for i := 1; i < inst.Bytes; i++ {
		info.Operands[i] = c.peek(c.PC + uint16(i))
	}
	return info
}

func (c *Cpu) peek(addr uint16) uint8 {
	v, err := c.bus.Peek(addr)
	if err != nil {
		return 0
	}
	return v
}

// Status packs the flags into the P register layout. Bit 5 always reads as
// set and bit 4 only exists on the stack.
func (c *Cpu) Status() uint8 {
	status := uint8(unusedMask)
	if c.N {
		status |= nFlagMask
	}
	if c.V {
		status |= vFlagMask
	}
	if c.D {
		status |= dFlagMask
	}
	if c.I {
		status |= iFlagMask
	}
	if c.Z {
		status |= zFlagMask
	}
	if c.C {
		status |= cFlagMask
	}
	return status
}

// SetStatus unpacks a P register value. Bits 4 and 5 are ignored.
func (c *Cpu) SetStatus(status uint8) {
	c.N = status&nFlagMask != 0
	c.V = status&vFlagMask != 0
	c.D = status&dFlagMask != 0
	c.I = status&iFlagMask != 0
	c.Z = status&zFlagMask != 0
	c.C = status&cFlagMask != 0
}

func (c *Cpu) fail(err error) {
	if c.fault == nil {
		c.fault = err
	}
}

func (c *Cpu) read(addr uint16) uint8 {
	return c.bus.ReadByte(addr)
}

func (c *Cpu) write(addr uint16, data uint8) {
	c.bus.WriteByte(addr, data)
}

func (c *Cpu) readWord(addr uint16) uint16 {
	lo := uint16(c.read(addr))
	hi := uint16(c.read(addr + 1))
	return hi<<8 | lo
}

func (c *Cpu) push(value uint8) {
	c.write(stackBase|uint16(c.SP), value)
	c.SP--
}

func (c *Cpu) pop() uint8 {
	c.SP++
	return c.read(stackBase | uint16(c.SP))
}

func (c *Cpu) pushWord(value uint16) {
	c.push(uint8(value >> 8))
	c.push(uint8(value))
}

func (c *Cpu) popWord() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return hi<<8 | lo
}

func (c *Cpu) setZN(value uint8) {
	c.Z = value == 0
	c.N = value&nFlagMask != 0
}

func (c *Cpu) logInstruction(pc uint16, opcode uint8, inst Instruction) {
	log.Printf("[CPU_DEBUG] PC=$%04X: %v (0x%02X) | A=$%02X X=$%02X Y=$%02X SP=$%02X P=$%02X",
		pc, inst, opcode, c.A, c.X, c.Y, c.SP, c.Status())
}
