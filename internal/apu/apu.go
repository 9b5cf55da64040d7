// Package apu implements the Audio Processing Unit (2A03 sound) as a
// CPU-clocked frame sequencer driving five channels.
package apu

import (
	"fmt"
	"log"
)

// Bus is the APU's link to CPU address space for DMC sample fetches and to
// the CPU IRQ line.
type Bus interface {
	ReadDmcByte(addr uint16) (uint8, error)
	GenerateCpuInterrupt() error
}

// frame sequencer steps, in CPU cycles
const (
	stepQuarter1    = 7457
	stepHalf1       = 14913
	stepQuarter3    = 22371
	stepHalf2       = 29829
	stepFrameIRQ    = 29830
	stepFiveStepEnd = 37281
)

// Apu is the NES Audio Processing Unit.
type Apu struct {
	square1  square
	square2  square
	triangle triangle
	noise    noise
	dmc      dmc

	fiveStep         bool
	irqInhibit       bool
	frameIRQ         bool
	sequencerCounter int

	clock  uint64
	output float32

	// samples go out every 40 or 41 CPU clocks, alternating
	sampleCounter    int
	sampleCounterMax int
	sink             func(float32)

	bus          Bus
	debugLogging bool
}

// New creates an APU. sink receives one mixed sample every 40-41 CPU
// clocks and may be nil.
func New(bus Bus, sink func(float32)) *Apu {
	return &Apu{
		square1:          square{onesComplement: true},
		noise:            newNoise(),
		dmc:              newDMC(),
		sampleCounterMax: 40,
		sink:             sink,
		bus:              bus,
	}
}

// SetDebugLogging toggles [APU_DEBUG] logging of frame counter writes and IRQs.
func (a *Apu) SetDebugLogging(enabled bool) {
	a.debugLogging = enabled
}

// WriteRegister writes one of $4000-$4013, $4015 or $4017.
func (a *Apu) WriteRegister(addr uint16, value uint8) {
	switch {
	case addr <= 0x4003:
		a.square1.write(addr-0x4000, value)
	case addr <= 0x4007:
		a.square2.write(addr-0x4004, value)
	case addr <= 0x400B:
		a.triangle.write(addr-0x4008, value)
	case addr <= 0x400F:
		a.noise.write(addr-0x400C, value)
	case addr <= 0x4013:
		a.dmc.write(addr-0x4010, value)
	case addr == 0x4015:
		a.square1.length.setEnabled(value&0x01 != 0)
		a.square2.length.setEnabled(value&0x02 != 0)
		a.triangle.length.setEnabled(value&0x04 != 0)
		a.noise.length.setEnabled(value&0x08 != 0)
		a.dmc.setEnabled(value&0x10 != 0)
	case addr == 0x4017:
		a.writeFrameCounter(value)
	}
}

// writeFrameCounter handles $4017: bit7 selects 5-step mode, bit6 inhibits
// and clears the frame IRQ.
func (a *Apu) writeFrameCounter(value uint8) {
	a.fiveStep = value&0x80 != 0
	a.irqInhibit = value&0x40 != 0
	if a.irqInhibit {
		a.frameIRQ = false
	}
	a.sequencerCounter = 0

	if a.fiveStep {
		a.clockQuarterFrame()
		a.clockHalfFrame()
	}
	if a.debugLogging {
		log.Printf("[APU_DEBUG] $4017=0x%02X five-step=%t inhibit=%t", value, a.fiveStep, a.irqInhibit)
	}
}

// ReadStatus reads $4015 and clears the frame IRQ flag.
func (a *Apu) ReadStatus() uint8 {
	var status uint8
	if a.square1.length.value > 0 {
		status |= 0x01
	}
	if a.square2.length.value > 0 {
		status |= 0x02
	}
	if a.triangle.length.value > 0 {
		status |= 0x04
	}
	if a.noise.length.value > 0 {
		status |= 0x08
	}
	if a.dmc.remaining > 0 {
		status |= 0x10
	}
	if a.frameIRQ {
		status |= 0x40
	}
	if a.dmc.irqFlag {
		status |= 0x80
	}
	a.frameIRQ = false
	return status
}

// Output returns the most recent mixed sample.
func (a *Apu) Output() float32 {
	return a.output
}

// Run advances the APU by cpuClock CPU cycles and returns the CPU cycles
// stalled by DMC sample fetches.
func (a *Apu) Run(cpuClock int) (int, error) {
	stall := 0

	for i := 0; i < cpuClock; i++ {
		even := a.clock%2 == 0
		if even {
			a.square1.clockTimer()
			a.square2.clockTimer()
			a.noise.clockTimer()
		}
		a.triangle.clockTimer()

		s, irq, err := a.dmc.clockTimer(a.bus)
		if err != nil {
			return stall, fmt.Errorf("dmc fetch at $%04X: %w", a.dmc.currentAddr, err)
		}
		stall += s
		if irq {
			if err := a.raiseIRQ("dmc"); err != nil {
				return stall, err
			}
		}

		if err := a.clockSequencer(); err != nil {
			return stall, err
		}

		if even {
			a.output = a.mix()
		}

		a.sampleCounter++
		if a.sampleCounter >= a.sampleCounterMax {
			a.sampleCounter = 0
			a.sampleCounterMax = 81 - a.sampleCounterMax
			if a.sink != nil {
				a.sink(a.output)
			}
		}
		a.clock++
	}
	return stall, nil
}

func (a *Apu) clockSequencer() error {
	a.sequencerCounter++

	switch a.sequencerCounter {
	case stepQuarter1, stepQuarter3:
		a.clockQuarterFrame()
	case stepHalf1:
		a.clockQuarterFrame()
		a.clockHalfFrame()
	case stepHalf2:
		if !a.fiveStep {
			a.clockQuarterFrame()
			a.clockHalfFrame()
		}
	case stepFrameIRQ:
		if a.fiveStep {
			break
		}
		a.sequencerCounter = 0
		if !a.irqInhibit {
			a.frameIRQ = true
			return a.raiseIRQ("frame")
		}
	case stepFiveStepEnd:
		a.clockQuarterFrame()
		a.clockHalfFrame()
		a.sequencerCounter = 0
	}
	return nil
}

func (a *Apu) raiseIRQ(source string) error {
	if a.debugLogging {
		log.Printf("[APU_DEBUG] %s IRQ at clock %d", source, a.clock)
	}
	if err := a.bus.GenerateCpuInterrupt(); err != nil {
		return fmt.Errorf("%s irq: %w", source, err)
	}
	return nil
}

// clockQuarterFrame clocks envelopes and the triangle linear counter.
func (a *Apu) clockQuarterFrame() {
	a.square1.envelope.clock()
	a.square2.envelope.clock()
	a.noise.envelope.clock()
	a.triangle.clockLinear()
}

// clockHalfFrame clocks length counters and sweep units.
func (a *Apu) clockHalfFrame() {
	a.square1.length.clock(a.square1.envelope.loop)
	a.square1.clockSweep()
	a.square2.length.clock(a.square2.envelope.loop)
	a.square2.clockSweep()
	a.triangle.length.clock(a.triangle.control)
	a.noise.length.clock(a.noise.envelope.loop)
}

func (a *Apu) mix() float32 {
	return mixChannels(a.square1.output(), a.square2.output(), a.triangle.output(), a.noise.output(), a.dmc.output())
}

// mixChannels applies the NES non-linear mixer and scales to [-1, 1].
func mixChannels(pulse1, pulse2, triangle, noise, dmc uint8) float32 {
	pulseSum := float64(pulse1) + float64(pulse2)
	var pulseOut float64
	if pulseSum != 0 {
		pulseOut = 95.88 / (8128.0/pulseSum + 100.0)
	}

	tndSum := float64(triangle)/8227.0 + float64(noise)/12241.0 + float64(dmc)/22638.0
	var tndOut float64
	if tndSum != 0 {
		tndOut = 159.79 / (1.0/tndSum + 100.0)
	}

	return float32((pulseOut+tndOut)*2 - 1)
}
