package app

import (
	"testing"
	"time"

	"github.com/kazuhito-m/nes-emulator-study/internal/cartridge"
	"github.com/kazuhito-m/nes-emulator-study/internal/emulator"
	"github.com/kazuhito-m/nes-emulator-study/internal/graphics"
)

func newTestRunner(t *testing.T, maxFrames uint64) *Runner {
	t.Helper()
	rom, err := cartridge.NewROMBuilder().WithCode(0x8000, 0x4C, 0x00, 0x80).Build()
	if err != nil {
		t.Fatalf("Failed to build ROM: %v", err)
	}
	emu, err := emulator.New(rom, emulator.Options{})
	if err != nil {
		t.Fatalf("Failed to create emulator: %v", err)
	}
	return NewRunner(emu, graphics.NewVideoProcessor(1, 1, 1), 60, maxFrames)
}

func TestRunnerFrameLimit(t *testing.T) {
	r := newTestRunner(t, 2)
	for i := 0; i < 4; i++ {
		if _, err := r.Update(); err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
	}
	if r.Frames() != 2 {
		t.Errorf("Expected 2 frames, got %d", r.Frames())
	}
	if !r.Done() {
		t.Error("Expected runner to be done")
	}
}

func TestRunnerPause(t *testing.T) {
	r := newTestRunner(t, 0)
	r.Pause()
	frame, err := r.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if frame == nil || r.Frames() != 0 {
		t.Errorf("Expected the old frame while paused, got %d frames", r.Frames())
	}
	r.Resume()
	r.Update()
	if r.Frames() != 1 {
		t.Errorf("Expected 1 frame after resume, got %d", r.Frames())
	}
	if !r.TogglePause() || !r.IsPaused() {
		t.Error("Expected TogglePause to pause")
	}
	if r.Done() {
		t.Error("Expected an unlimited runner never to be done")
	}
}

func TestTimingBuffer(t *testing.T) {
	tb := newTimingBuffer(3)
	if tb.Average() != 0 || tb.Variance() != 0 {
		t.Error("Expected empty buffer to report zero")
	}

	for _, d := range []time.Duration{10, 20, 30, 40} {
		tb.Add(d)
	}
	// 10 was overwritten
	if got := tb.Average(); got != 30 {
		t.Errorf("Expected average 30, got %d", got)
	}
	// ((-10)² + 0 + 10²) / 3
	if got := tb.Variance(); got != 66 {
		t.Errorf("Expected variance 66, got %d", got)
	}
}

func TestRunnerWait(t *testing.T) {
	r := newTestRunner(t, 0)
	r.targetFrameTime = 5 * time.Millisecond

	start := time.Now()
	for i := 0; i < 3; i++ {
		r.Wait()
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Expected pacing of at least 10ms, got %v", elapsed)
	}
}
