package sound

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func readFrames(t *testing.T, s *Stream, frames int) []float32 {
	t.Helper()
	p := make([]byte, frames*bytesPerFrame)
	n, err := s.Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(p) {
		t.Fatalf("Expected %d bytes, got %d", len(p), n)
	}
	out := make([]float32, frames)
	for i := range out {
		left := math.Float32frombits(binary.LittleEndian.Uint32(p[i*8:]))
		right := math.Float32frombits(binary.LittleEndian.Uint32(p[i*8+4:]))
		if left != right {
			t.Errorf("Frame %d: expected equal channels, got %v and %v", i, left, right)
		}
		out[i] = left
	}
	return out
}

func TestStreamOrder(t *testing.T) {
	s := NewStream(8)
	for _, v := range []float32{0.1, 0.2, 0.3} {
		s.Push(v)
	}
	if got := s.Buffered(); got != 3 {
		t.Errorf("Expected 3 buffered, got %d", got)
	}

	got := readFrames(t, s, 5)
	want := []float32{0.1, 0.2, 0.3, 0.3, 0.3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frame %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if _, starved := s.Stats(); starved != 2 {
		t.Errorf("Expected 2 starved frames, got %d", starved)
	}
}

func TestStreamOverflowDropsOldest(t *testing.T) {
	s := NewStream(4)
	for i := 0; i < 6; i++ {
		s.Push(float32(i))
	}
	got := readFrames(t, s, 4)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frame %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if drops, _ := s.Stats(); drops != 2 {
		t.Errorf("Expected 2 drops, got %d", drops)
	}
}

func TestStreamPartialFrame(t *testing.T) {
	s := NewStream(4)
	n, err := s.Read(make([]byte, 11))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 8 {
		t.Errorf("Expected whole frames only (8 bytes), got %d", n)
	}
}

func TestWavRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	rec, err := CreateWav(path, SampleRate)
	if err != nil {
		t.Fatalf("CreateWav failed: %v", err)
	}

	samples := []float32{0, 1, -1, 0.5, 2}
	for i := 0; i < 1000; i++ {
		if err := rec.Push(samples[i%len(samples)]); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}
	if rec.Frames() != 1000 {
		t.Errorf("Expected 1000 frames, got %d", rec.Frames())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("Expected a valid WAV file")
	}
	if dec.SampleRate != SampleRate || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("Expected 44100 Hz mono 16-bit, got %d Hz %d ch %d-bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if len(buf.Data) != 1000 {
		t.Fatalf("Expected 1000 samples, got %d", len(buf.Data))
	}
	want := []int{0, 32767, -32767, 16383, 32767}
	for i, w := range want {
		if buf.Data[i] != w {
			t.Errorf("Sample %d: expected %d, got %d", i, w, buf.Data[i])
		}
	}
}
