package apu

// square is one of the two pulse channels.
type square struct {
	// pulse 1 negates with one's complement, pulse 2 with two's complement
	onesComplement bool

	duty     uint8
	envelope envelope
	length   lengthCounter

	sweepEnable  bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepReload  bool
	sweepCounter uint8

	timer        uint16
	timerCounter uint16
	sequencerPos uint8
}

// write handles the four registers of the channel, offset 0-3.
func (s *square) write(offset uint16, value uint8) {
	switch offset {
	case 0:
		s.duty = value >> 6 & 0x03
		s.envelope.write(value)
	case 1:
		s.sweepEnable = value&0x80 != 0
		s.sweepPeriod = value >> 4 & 0x07
		s.sweepNegate = value&0x08 != 0
		s.sweepShift = value & 0x07
		s.sweepReload = true
	case 2:
		s.timer = s.timer&0xFF00 | uint16(value)
	case 3:
		s.timer = s.timer&0x00FF | uint16(value&0x07)<<8
		s.length.load(value >> 3)
		s.envelope.start = true
		s.sequencerPos = 0
	}
}

// clockTimer runs once per APU cycle.
func (s *square) clockTimer() {
	if s.timerCounter == 0 {
		s.timerCounter = s.timer
		s.sequencerPos = (s.sequencerPos + 1) & 0x07
	} else {
		s.timerCounter--
	}
}

func (s *square) clockSweep() {
	if s.sweepCounter == 0 && s.sweepEnable && s.sweepShift > 0 {
		change := s.timer >> s.sweepShift
		switch {
		case !s.sweepNegate:
			s.timer += change
		case s.onesComplement:
			s.timer -= change + 1
		default:
			s.timer -= change
		}
	}

	if s.sweepCounter == 0 || s.sweepReload {
		s.sweepCounter = s.sweepPeriod
		s.sweepReload = false
	} else {
		s.sweepCounter--
	}
}

func (s *square) output() uint8 {
	if s.length.value == 0 || s.timer < 8 || s.timer > 0x7FF {
		return 0
	}
	if dutyTable[s.duty][s.sequencerPos] == 0 {
		return 0
	}
	return s.envelope.output()
}
