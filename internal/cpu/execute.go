package cpu

import "fmt"

// execute runs one decoded instruction with PC still pointing at its opcode.
// It returns the extra cycles taken and whether the instruction set PC itself.
func (c *Cpu) execute(inst Instruction) (int, bool) {
	mode := inst.Mode

	switch inst.Opcode {
	// loads and stores
	case LDA:
		v, extra := c.fetchArg(mode)
		c.A = v
		c.setZN(v)
		return extra, false
	case LDX:
		v, extra := c.fetchArg(mode)
		c.X = v
		c.setZN(v)
		return extra, false
	case LDY:
		v, extra := c.fetchArg(mode)
		c.Y = v
		c.setZN(v)
		return extra, false
	case STA:
		c.write(c.fetchAddr(mode).addr, c.A)
	case STX:
		c.write(c.fetchAddr(mode).addr, c.X)
	case STY:
		c.write(c.fetchAddr(mode).addr, c.Y)

	// arithmetic and logic
	case ADC:
		v, extra := c.fetchArg(mode)
		c.adc(v)
		return extra, false
	case SBC:
		v, extra := c.fetchArg(mode)
		c.adc(^v)
		return extra, false
	case AND:
		v, extra := c.fetchArg(mode)
		c.A &= v
		c.setZN(c.A)
		return extra, false
	case ORA:
		v, extra := c.fetchArg(mode)
		c.A |= v
		c.setZN(c.A)
		return extra, false
	case EOR:
		v, extra := c.fetchArg(mode)
		c.A ^= v
		c.setZN(c.A)
		return extra, false
	case CMP:
		v, extra := c.fetchArg(mode)
		c.compare(c.A, v)
		return extra, false
	case CPX:
		v, extra := c.fetchArg(mode)
		c.compare(c.X, v)
		return extra, false
	case CPY:
		v, extra := c.fetchArg(mode)
		c.compare(c.Y, v)
		return extra, false
	case BIT:
		v, _ := c.fetchArg(mode)
		c.Z = c.A&v == 0
		c.V = v&vFlagMask != 0
		c.N = v&nFlagMask != 0

	// shifts and read-modify-write
	case ASL:
		c.modify(mode, c.asl)
	case LSR:
		c.modify(mode, c.lsr)
	case ROL:
		c.modify(mode, c.rol)
	case ROR:
		c.modify(mode, c.ror)
	case INC:
		c.modify(mode, func(v uint8) uint8 { v++; c.setZN(v); return v })
	case DEC:
		c.modify(mode, func(v uint8) uint8 { v--; c.setZN(v); return v })

	// register transfers and counters
	case INX:
		c.X++
		c.setZN(c.X)
	case INY:
		c.Y++
		c.setZN(c.Y)
	case DEX:
		c.X--
		c.setZN(c.X)
	case DEY:
		c.Y--
		c.setZN(c.Y)
	case TAX:
		c.X = c.A
		c.setZN(c.X)
	case TAY:
		c.Y = c.A
		c.setZN(c.Y)
	case TXA:
		c.A = c.X
		c.setZN(c.A)
	case TYA:
		c.A = c.Y
		c.setZN(c.A)
	case TSX:
		c.X = c.SP
		c.setZN(c.X)
	case TXS:
		c.SP = c.X

	// stack
	case PHA:
		c.push(c.A)
	case PHP:
		c.push(c.Status() | bFlagMask)
	case PLA:
		c.A = c.pop()
		c.setZN(c.A)
	case PLP:
		c.SetStatus(c.pop())

	// flags
	case CLC:
		c.C = false
	case SEC:
		c.C = true
	case CLI:
		c.I = false
	case SEI:
		c.I = true
	case CLD:
		c.D = false
	case SED:
		c.D = true
	case CLV:
		c.V = false

	// control flow
	case JMP:
		c.PC = c.fetchAddr(mode).addr
		return 0, true
	case JSR:
		target := c.fetchAddr(mode).addr
		c.pushWord(c.PC + 2)
		c.PC = target
		return 0, true
	case RTS:
		c.PC = c.popWord() + 1
		return 0, true
	case RTI:
		c.SetStatus(c.pop())
		c.PC = c.popWord()
		return 0, true
	case BRK:
		c.Interrupt(InterruptBRK)
		return 0, true
	case BCC:
		return c.branch(mode, !c.C)
	case BCS:
		return c.branch(mode, c.C)
	case BEQ:
		return c.branch(mode, c.Z)
	case BNE:
		return c.branch(mode, !c.Z)
	case BMI:
		return c.branch(mode, c.N)
	case BPL:
		return c.branch(mode, !c.N)
	case BVS:
		return c.branch(mode, c.V)
	case BVC:
		return c.branch(mode, !c.V)

	case NOP:
		if mode == Implied {
			return 0, false
		}
		_, extra := c.fetchArg(mode)
		return extra, false

	// unofficial combinations; the RMW ones never pay a page-cross cycle
	case LAX:
		v, extra := c.fetchArg(mode)
		c.A = v
		c.X = v
		c.setZN(v)
		return extra, false
	case SAX:
		c.write(c.fetchAddr(mode).addr, c.A&c.X)
	case DCP:
		v := c.modify(mode, func(v uint8) uint8 { return v - 1 })
		c.compare(c.A, v)
	case ISC:
		v := c.modify(mode, func(v uint8) uint8 { return v + 1 })
		c.adc(^v)
	case SLO:
		v := c.modify(mode, c.asl)
		c.A |= v
		c.setZN(c.A)
	case RLA:
		v := c.modify(mode, c.rol)
		c.A &= v
		c.setZN(c.A)
	case SRE:
		v := c.modify(mode, c.lsr)
		c.A ^= v
		c.setZN(c.A)
	case RRA:
		v := c.modify(mode, c.ror)
		c.adc(v)
	case ANC:
		v, _ := c.fetchArg(mode)
		c.A &= v
		c.setZN(c.A)
		c.C = c.N
	case ALR:
		v, _ := c.fetchArg(mode)
		c.A &= v
		c.A = c.lsr(c.A)
	case ARR:
		v, _ := c.fetchArg(mode)
		c.A &= v
		carry := uint8(0)
		if c.C {
			carry = 0x80
		}
		c.A = c.A>>1 | carry
		c.setZN(c.A)
		c.C = c.A&0x40 != 0
		c.V = (c.A>>6^c.A>>5)&1 != 0
	case AXS:
		v, _ := c.fetchArg(mode)
		ax := c.A & c.X
		c.C = ax >= v
		c.X = ax - v
		c.setZN(c.X)
	case LAS:
		v, extra := c.fetchArg(mode)
		v &= c.SP
		c.A, c.X, c.SP = v, v, v
		c.setZN(v)
		return extra, false
	case XAA:
		v, _ := c.fetchArg(mode)
		c.A = (c.A | 0xEE) & c.X & v
		c.setZN(c.A)
	case LXA:
		v, _ := c.fetchArg(mode)
		c.A = (c.A | 0xEE) & v
		c.X = c.A
		c.setZN(c.A)
	case AHX:
		c.unstableStore(c.fetchAddr(mode), c.Y, c.A&c.X)
	case SHX:
		c.unstableStore(c.fetchAddr(mode), c.Y, c.X)
	case SHY:
		c.unstableStore(c.fetchAddr(mode), c.X, c.Y)
	case TAS:
		c.SP = c.A & c.X
		c.unstableStore(c.fetchAddr(mode), c.Y, c.SP)

	case JAM:
		c.fail(ErrJammed)
		return 0, true

	default:
		c.fail(fmt.Errorf("unhandled opcode %v", inst.Opcode))
	}
	return 0, false
}

// adc adds with carry. SBC is adc of the inverted operand.
func (c *Cpu) adc(v uint8) {
	carry := uint16(0)
	if c.C {
		carry = 1
	}
	sum := uint16(c.A) + uint16(v) + carry
	result := uint8(sum)
	c.C = sum > 0xFF
	c.V = (c.A^result)&0x80 != 0 && (c.A^v)&0x80 == 0
	c.A = result
	c.setZN(result)
}

func (c *Cpu) compare(reg, v uint8) {
	c.C = reg >= v
	c.setZN(reg - v)
}

func (c *Cpu) asl(v uint8) uint8 {
	c.C = v&0x80 != 0
	v <<= 1
	c.setZN(v)
	return v
}

func (c *Cpu) lsr(v uint8) uint8 {
	c.C = v&0x01 != 0
	v >>= 1
	c.setZN(v)
	return v
}

func (c *Cpu) rol(v uint8) uint8 {
	carry := uint8(0)
	if c.C {
		carry = 1
	}
	c.C = v&0x80 != 0
	v = v<<1 | carry
	c.setZN(v)
	return v
}

func (c *Cpu) ror(v uint8) uint8 {
	carry := uint8(0)
	if c.C {
		carry = 0x80
	}
	c.C = v&0x01 != 0
	v = v>>1 | carry
	c.setZN(v)
	return v
}

// modify applies fn to A or to the memory cell at the fetched address,
// resolving the address once, and returns the written value.
func (c *Cpu) modify(mode AddressingMode, fn func(uint8) uint8) uint8 {
	if mode == Accumulator {
		c.A = fn(c.A)
		return c.A
	}
	addr := c.fetchAddr(mode).addr
	v := fn(c.read(addr))
	c.write(addr, v)
	return v
}

func (c *Cpu) branch(mode AddressingMode, taken bool) (int, bool) {
	op := c.fetchAddr(mode)
	if !taken {
		return 0, false
	}
	c.PC = op.addr
	if op.pageCrossed {
		return 2, true
	}
	return 1, true
}

// unstableStore writes value & (high byte of the base address + 1). When the
// index crosses a page the written value also replaces the address high byte.
func (c *Cpu) unstableStore(op operand, index uint8, value uint8) {
	base := op.addr - uint16(index)
	v := value & (uint8(base>>8) + 1)
	addr := op.addr
	if op.pageCrossed {
		addr = uint16(v)<<8 | addr&0x00FF
	}
	c.write(addr, v)
}
