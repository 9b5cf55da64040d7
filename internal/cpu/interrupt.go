package cpu

// InterruptKind selects the vector and stack frame of an interrupt.
type InterruptKind uint8

const (
	InterruptNMI InterruptKind = iota
	InterruptReset
	InterruptIRQ
	InterruptBRK
)

func (k InterruptKind) String() string {
	switch k {
	case InterruptNMI:
		return "NMI"
	case InterruptReset:
		return "RESET"
	case InterruptIRQ:
		return "IRQ"
	case InterruptBRK:
		return "BRK"
	default:
		return "unknown"
	}
}

// Interrupt services an interrupt at the current instruction boundary.
// IRQ and BRK are ignored while I is set; a suppressed BRK still steps over
// its opcode byte.
func (c *Cpu) Interrupt(kind InterruptKind) {
	switch kind {
	case InterruptNMI:
		c.pushWord(c.PC)
		c.push(c.Status() &^ bFlagMask)
		c.I = true
		c.PC = c.readWord(nmiVector)

	case InterruptReset:
		c.A, c.X, c.Y = 0, 0, 0
		c.SP = 0xFD
		c.SetStatus(0x24)
		c.PC = c.readWord(resetVector)

	case InterruptIRQ:
		if c.I {
			return
		}
		c.pushWord(c.PC)
		c.push(c.Status() &^ bFlagMask)
		c.I = true
		c.PC = c.readWord(irqVector)

	case InterruptBRK:
		if c.I {
			c.PC++
			return
		}
		c.pushWord(c.PC + 2)
		c.push(c.Status() | bFlagMask)
		c.I = true
		c.PC = c.readWord(irqVector)
	}
}
