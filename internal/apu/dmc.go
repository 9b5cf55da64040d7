package apu

// dmcFetchCycles is the CPU stall of one DMC sample fetch.
const dmcFetchCycles = 4

// dmc is the delta modulation channel. Its memory reader pulls sample
// bytes from PRG space through the bus.
type dmc struct {
	irqEnable bool
	loop      bool
	rateIndex uint8
	irqFlag   bool

	sampleAddr   uint16
	sampleLength uint16
	currentAddr  uint16
	remaining    uint16

	buffer      uint8
	bufferEmpty bool

	timerCounter uint16
	shift        uint8
	bitsLeft     uint8
	silent       bool
	level        uint8
}

// newDMC powers up as if $4012 and $4013 were written with zero.
func newDMC() dmc {
	return dmc{
		sampleAddr:   0xC000,
		sampleLength: 1,
		bufferEmpty:  true,
		bitsLeft:     8,
		silent:       true,
	}
}

func (d *dmc) write(offset uint16, value uint8) {
	switch offset {
	case 0:
		d.irqEnable = value&0x80 != 0
		d.loop = value&0x40 != 0
		d.rateIndex = value & 0x0F
		if !d.irqEnable {
			d.irqFlag = false
		}
	case 1:
		d.level = value & 0x7F
	case 2:
		d.sampleAddr = 0xC000 + uint16(value)<<6
	case 3:
		d.sampleLength = uint16(value)<<4 + 1
	}
}

func (d *dmc) setEnabled(enabled bool) {
	d.irqFlag = false
	if !enabled {
		d.remaining = 0
		return
	}
	if d.remaining == 0 {
		d.restart()
	}
}

func (d *dmc) restart() {
	d.currentAddr = d.sampleAddr
	d.remaining = d.sampleLength
}

// clockTimer runs every CPU cycle. It returns the CPU stall caused by a
// sample fetch and whether the sample just ended with IRQ enabled.
func (d *dmc) clockTimer(bus Bus) (int, bool, error) {
	stall, irq := 0, false

	if d.bufferEmpty && d.remaining > 0 {
		v, err := bus.ReadDmcByte(d.currentAddr)
		if err != nil {
			return 0, false, err
		}
		d.buffer = v
		d.bufferEmpty = false
		stall = dmcFetchCycles

		if d.currentAddr == 0xFFFF {
			d.currentAddr = 0x8000
		} else {
			d.currentAddr++
		}
		d.remaining--
		if d.remaining == 0 {
			if d.loop {
				d.restart()
			} else if d.irqEnable {
				d.irqFlag = true
				irq = true
			}
		}
	}

	if d.timerCounter > 0 {
		d.timerCounter--
		return stall, irq, nil
	}
	d.timerCounter = dmcRateTable[d.rateIndex] - 1

	if !d.silent {
		if d.shift&0x01 != 0 {
			if d.level <= 125 {
				d.level += 2
			}
		} else if d.level >= 2 {
			d.level -= 2
		}
	}
	d.shift >>= 1
	d.bitsLeft--
	if d.bitsLeft == 0 {
		d.bitsLeft = 8
		d.silent = d.bufferEmpty
		if !d.bufferEmpty {
			d.shift = d.buffer
			d.bufferEmpty = true
		}
	}
	return stall, irq, nil
}

func (d *dmc) output() uint8 {
	return d.level
}
