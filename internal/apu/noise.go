package apu

type noise struct {
	envelope envelope
	length   lengthCounter

	shortMode    bool // 93-step sequence
	periodIndex  uint8
	timerCounter uint16
	shift        uint16 // 15-bit LFSR
}

func newNoise() noise {
	return noise{shift: 1}
}

func (n *noise) write(offset uint16, value uint8) {
	switch offset {
	case 0:
		n.envelope.write(value)
	case 2:
		n.shortMode = value&0x80 != 0
		n.periodIndex = value & 0x0F
	case 3:
		n.length.load(value >> 3)
		n.envelope.start = true
	}
}

// clockTimer runs once per APU cycle, so the CPU-cycle period is halved.
func (n *noise) clockTimer() {
	if n.timerCounter > 0 {
		n.timerCounter--
		return
	}
	n.timerCounter = noisePeriodTable[n.periodIndex]/2 - 1

	tap := uint16(1)
	if n.shortMode {
		tap = 6
	}
	feedback := (n.shift ^ n.shift>>tap) & 0x01
	n.shift = n.shift>>1 | feedback<<14
}

func (n *noise) output() uint8 {
	if n.length.value == 0 || n.shift&0x01 != 0 {
		return 0
	}
	return n.envelope.output()
}
