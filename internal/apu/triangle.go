package apu

type triangle struct {
	control     bool // length halt and linear reload hold
	linearLoad  uint8
	linear      uint8
	linearReset bool
	length      lengthCounter

	timer        uint16
	timerCounter uint16
	sequencerPos uint8
}

func (t *triangle) write(offset uint16, value uint8) {
	switch offset {
	case 0:
		t.control = value&0x80 != 0
		t.linearLoad = value & 0x7F
	case 2:
		t.timer = t.timer&0xFF00 | uint16(value)
	case 3:
		t.timer = t.timer&0x00FF | uint16(value&0x07)<<8
		t.length.load(value >> 3)
		t.linearReset = true
	}
}

// clockTimer runs every CPU cycle.
func (t *triangle) clockTimer() {
	if t.timerCounter == 0 {
		t.timerCounter = t.timer
		if t.length.value > 0 && t.linear > 0 {
			t.sequencerPos = (t.sequencerPos + 1) & 0x1F
		}
	} else {
		t.timerCounter--
	}
}

func (t *triangle) clockLinear() {
	if t.linearReset {
		t.linear = t.linearLoad
	} else if t.linear > 0 {
		t.linear--
	}
	if !t.control {
		t.linearReset = false
	}
}

func (t *triangle) output() uint8 {
	if t.length.value == 0 || t.linear == 0 || t.timer < 2 {
		return 0
	}
	return triangleTable[t.sequencerPos]
}
