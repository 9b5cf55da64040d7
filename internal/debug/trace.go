// Package debug holds developer tooling around the emulator: instruction
// traces, picture dumps and memory snapshots.
package debug

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kazuhito-m/nes-emulator-study/internal/cpu"
	"github.com/kazuhito-m/nes-emulator-study/internal/emulator"
)

// TraceLogger writes one nestest-style line per instruction. Its Log method
// fits emulator.Options.TraceSink.
type TraceLogger struct {
	w     *bufio.Writer
	lines uint64
	limit uint64
	err   error
}

// NewTraceLogger writes to w. A limit of 0 means unlimited.
func NewTraceLogger(w io.Writer, limit uint64) *TraceLogger {
	return &TraceLogger{w: bufio.NewWriter(w), limit: limit}
}

// Log appends info. Write errors are kept and reported by Flush.
func (t *TraceLogger) Log(info emulator.EmuInfo) {
	if t.err != nil || (t.limit > 0 && t.lines >= t.limit) {
		return
	}
	if _, err := fmt.Fprintln(t.w, FormatTrace(info)); err != nil {
		t.err = err
		return
	}
	t.lines++
}

// Lines returns how many lines were written.
func (t *TraceLogger) Lines() uint64 {
	return t.lines
}

// Flush writes buffered lines and returns the first error seen.
func (t *TraceLogger) Flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}

// FormatTrace renders info in the column layout of nestest.log. Operand
// memory annotations ("= 00") are omitted since reading them could touch
// device registers.
func FormatTrace(info emulator.EmuInfo) string {
	var raw string
	for i := 0; i < info.Instruction.Bytes; i++ {
		if i > 0 {
			raw += " "
		}
		raw += fmt.Sprintf("%02X", info.Operands[i])
	}

	mark := ' '
	if !cpu.Official(info.Operands[0]) {
		mark = '*'
	}

	return fmt.Sprintf("%04X  %-9s%c%-32sA:%02X X:%02X Y:%02X P:%02X SP:%02X PPU:%3d,%3d CYC:%d",
		info.PC, raw, mark, Disassemble(info.CpuInfo),
		info.A, info.X, info.Y, info.P, info.SP,
		info.PpuLines, info.PpuCycles, info.CpuCycles)
}

// Disassemble formats the instruction at info.PC in 6502 assembler syntax.
func Disassemble(info cpu.CpuInfo) string {
	inst := info.Instruction
	op8 := info.Operands[1]
	op16 := uint16(info.Operands[1]) | uint16(info.Operands[2])<<8

	var operand string
	switch inst.Mode {
	case cpu.Implied:
	case cpu.Accumulator:
		operand = "A"
	case cpu.Immediate:
		operand = fmt.Sprintf("#$%02X", op8)
	case cpu.ZeroPage:
		operand = fmt.Sprintf("$%02X", op8)
	case cpu.ZeroPageX:
		operand = fmt.Sprintf("$%02X,X", op8)
	case cpu.ZeroPageY:
		operand = fmt.Sprintf("$%02X,Y", op8)
	case cpu.Relative:
		operand = fmt.Sprintf("$%04X", info.PC+2+uint16(int8(op8)))
	case cpu.Absolute:
		operand = fmt.Sprintf("$%04X", op16)
	case cpu.AbsoluteX:
		operand = fmt.Sprintf("$%04X,X", op16)
	case cpu.AbsoluteY:
		operand = fmt.Sprintf("$%04X,Y", op16)
	case cpu.Indirect:
		operand = fmt.Sprintf("($%04X)", op16)
	case cpu.IndexedIndirect:
		operand = fmt.Sprintf("($%02X,X)", op8)
	case cpu.IndirectIndexed:
		operand = fmt.Sprintf("($%02X),Y", op8)
	}

	if operand == "" {
		return inst.Opcode.String()
	}
	return inst.Opcode.String() + " " + operand
}
