package cpu

import "fmt"

// operand is an effective address plus whether indexing crossed a page.
type operand struct {
	addr        uint16
	pageCrossed bool
}

func crossed(base, addr uint16) bool {
	return base&pageMask != addr&pageMask
}

// fetchAddr resolves the effective address of the instruction at PC.
// Implied and Accumulator have no address and record a fault.
func (c *Cpu) fetchAddr(mode AddressingMode) operand {
	switch mode {
	case Immediate:
		return operand{addr: c.PC + 1}

	case ZeroPage:
		return operand{addr: uint16(c.read(c.PC + 1))}

	case ZeroPageX:
		return operand{addr: uint16(c.read(c.PC+1) + c.X)}

	case ZeroPageY:
		return operand{addr: uint16(c.read(c.PC+1) + c.Y)}

	case Relative:
		offset := int8(c.read(c.PC + 1))
		next := c.PC + 2
		target := uint16(int32(next) + int32(offset))
		return operand{addr: target, pageCrossed: crossed(next, target)}

	case Absolute:
		return operand{addr: c.readWord(c.PC + 1)}

	case AbsoluteX:
		base := c.readWord(c.PC + 1)
		addr := base + uint16(c.X)
		return operand{addr: addr, pageCrossed: crossed(base, addr)}

	case AbsoluteY:
		base := c.readWord(c.PC + 1)
		addr := base + uint16(c.Y)
		return operand{addr: addr, pageCrossed: crossed(base, addr)}

	case Indirect:
		// the high byte is fetched without carrying into the pointer's page
		ptr := c.readWord(c.PC + 1)
		lo := uint16(c.read(ptr))
		hi := uint16(c.read(ptr&pageMask | uint16(uint8(ptr)+1)))
		return operand{addr: hi<<8 | lo}

	case IndexedIndirect:
		ptr := c.read(c.PC+1) + c.X
		lo := uint16(c.read(uint16(ptr)))
		hi := uint16(c.read(uint16(ptr + 1)))
		return operand{addr: hi<<8 | lo}

	case IndirectIndexed:
		ptr := c.read(c.PC + 1)
		lo := uint16(c.read(uint16(ptr)))
		hi := uint16(c.read(uint16(ptr + 1)))
		base := hi<<8 | lo
		addr := base + uint16(c.Y)
		return operand{addr: addr, pageCrossed: crossed(base, addr)}

	default:
		c.fail(fmt.Errorf("no address for %v: %w", mode, ErrAddressingMode))
		return operand{}
	}
}

// fetchArg returns the operand value and the page-cross penalty for
// read-class instructions.
func (c *Cpu) fetchArg(mode AddressingMode) (uint8, int) {
	switch mode {
	case Accumulator:
		return c.A, 0
	case Implied, Relative, Indirect:
		c.fail(fmt.Errorf("no value for %v: %w", mode, ErrAddressingMode))
		return 0, 0
	}

	op := c.fetchAddr(mode)
	extra := 0
	if op.pageCrossed {
		extra = 1
	}
	return c.read(op.addr), extra
}
