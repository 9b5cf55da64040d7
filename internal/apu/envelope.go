package apu

// envelope is the volume unit shared by the square and noise channels.
type envelope struct {
	loop     bool // also halts the length counter
	constant bool
	volume   uint8
	start    bool
	counter  uint8
	divider  uint8
}

func (e *envelope) write(value uint8) {
	e.loop = value&0x20 != 0
	e.constant = value&0x10 != 0
	e.volume = value & 0x0F
}

func (e *envelope) clock() {
	switch {
	case e.start:
		e.start = false
		e.counter = 15
		e.divider = e.volume
	case e.divider == 0:
		e.divider = e.volume
		if e.counter > 0 {
			e.counter--
		} else if e.loop {
			e.counter = 15
		}
	default:
		e.divider--
	}
}

func (e *envelope) output() uint8 {
	if e.constant {
		return e.volume
	}
	return e.counter
}

// lengthCounter silences a channel after a programmed number of half frames.
type lengthCounter struct {
	enabled bool
	value   uint8
}

func (l *lengthCounter) load(index uint8) {
	if l.enabled {
		l.value = lengthTable[index&0x1F]
	}
}

func (l *lengthCounter) setEnabled(enabled bool) {
	l.enabled = enabled
	if !enabled {
		l.value = 0
	}
}

func (l *lengthCounter) clock(halt bool) {
	if !halt && l.value > 0 {
		l.value--
	}
}
