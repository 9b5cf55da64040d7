package app

import (
	"fmt"
	"time"

	"github.com/kazuhito-m/nes-emulator-study/internal/emulator"
	"github.com/kazuhito-m/nes-emulator-study/internal/graphics"
)

// Runner advances the emulator one frame per Update and keeps the timing
// figures shown in debug logs.
type Runner struct {
	emu    *emulator.Emulator
	video  *graphics.VideoProcessor
	frame  graphics.Frame
	paused bool

	maxFrames       uint64
	frames          uint64
	targetFrameTime time.Duration
	nextFrame       time.Time

	emulationTimes *timingBuffer
	frameTimes     *timingBuffer
	lastUpdate     time.Time
}

// NewRunner paces frames at frameRate when Wait is used. A maxFrames of 0
// runs until the frontend closes.
func NewRunner(emu *emulator.Emulator, video *graphics.VideoProcessor, frameRate float64, maxFrames uint64) *Runner {
	return &Runner{
		emu:             emu,
		video:           video,
		maxFrames:       maxFrames,
		targetFrameTime: time.Duration(float64(time.Second) / frameRate),
		emulationTimes:  newTimingBuffer(60),
		frameTimes:      newTimingBuffer(60),
	}
}

// Update runs one frame unless paused and returns the processed picture.
func (r *Runner) Update() (*graphics.Frame, error) {
	now := time.Now()
	if !r.lastUpdate.IsZero() {
		r.frameTimes.Add(now.Sub(r.lastUpdate))
	}
	r.lastUpdate = now

	if r.paused || r.Done() {
		return &r.frame, nil
	}

	if err := r.emu.StepFrame(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", r.frames+1, err)
	}
	r.frames++
	r.emu.GetPictureColor(&r.frame)
	if r.video != nil && r.video.Enabled() {
		r.video.ProcessFrame(&r.frame)
	}
	r.emulationTimes.Add(time.Since(now))
	return &r.frame, nil
}

// Wait sleeps until the next frame is due. Loops that are not paced by the
// display call it after each Update.
func (r *Runner) Wait() {
	now := time.Now()
	if r.nextFrame.IsZero() || now.Sub(r.nextFrame) > 4*r.targetFrameTime {
		// first frame, or too far behind to catch up
		r.nextFrame = now
	}
	r.nextFrame = r.nextFrame.Add(r.targetFrameTime)
	if d := r.nextFrame.Sub(now); d > 0 {
		time.Sleep(d)
	}
}

// Done reports whether the frame limit has been reached.
func (r *Runner) Done() bool {
	return r.maxFrames > 0 && r.frames >= r.maxFrames
}

// Frames returns the number of emulated frames.
func (r *Runner) Frames() uint64 {
	return r.frames
}

func (r *Runner) Pause()  { r.paused = true }
func (r *Runner) Resume() { r.paused = false }

// TogglePause flips the pause state and returns the new one.
func (r *Runner) TogglePause() bool {
	r.paused = !r.paused
	return r.paused
}

func (r *Runner) IsPaused() bool {
	return r.paused
}

// FPS is the host frame rate over the last second or so.
func (r *Runner) FPS() float64 {
	avg := r.frameTimes.Average()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// EmulationTime is the average time spent emulating one frame.
func (r *Runner) EmulationTime() time.Duration {
	return r.emulationTimes.Average()
}

// timingBuffer keeps the last few durations.
type timingBuffer struct {
	buffer []time.Duration
	index  int
	size   int
}

func newTimingBuffer(capacity int) *timingBuffer {
	return &timingBuffer{buffer: make([]time.Duration, capacity)}
}

func (tb *timingBuffer) Add(d time.Duration) {
	tb.buffer[tb.index] = d
	tb.index = (tb.index + 1) % len(tb.buffer)
	if tb.size < len(tb.buffer) {
		tb.size++
	}
}

func (tb *timingBuffer) Average() time.Duration {
	if tb.size == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < tb.size; i++ {
		total += tb.buffer[i]
	}
	return total / time.Duration(tb.size)
}

// Variance is in squared nanoseconds, returned as a Duration like the average.
func (tb *timingBuffer) Variance() time.Duration {
	if tb.size < 2 {
		return 0
	}
	avg := tb.Average()
	var v int64
	for i := 0; i < tb.size; i++ {
		diff := int64(tb.buffer[i] - avg)
		v += diff * diff
	}
	return time.Duration(v / int64(tb.size))
}
