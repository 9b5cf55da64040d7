// Package sound moves APU samples to the host: a live PCM stream for the
// audio device and a WAV recorder.
package sound

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleRate is the nominal output rate. The APU emits one sample per 40.5
// CPU clocks, about 44192 Hz; the difference is inaudible.
const SampleRate = 44100

const bytesPerFrame = 8 // stereo float32

// Stream buffers mono samples from the emulator goroutine and serves them to
// the audio player as little-endian float32 stereo frames.
type Stream struct {
	mu     sync.Mutex
	buf    []float32
	head   int
	tail   int
	count  int
	last   float32
	drops  uint64
	starve uint64
}

// NewStream returns a stream holding up to size samples.
func NewStream(size int) *Stream {
	if size < 2 {
		size = 2
	}
	return &Stream{buf: make([]float32, size)}
}

// Push appends a sample. When the buffer is full the oldest sample is dropped,
// which keeps latency bounded if the emulator outruns the device.
func (s *Stream) Push(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == len(s.buf) {
		s.tail = (s.tail + 1) % len(s.buf)
		s.count--
		s.drops++
	}
	s.buf[s.head] = v
	s.head = (s.head + 1) % len(s.buf)
	s.count++
}

// Buffered returns the number of samples waiting.
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Stats returns how many samples were dropped on overflow and how many
// frames were padded on underflow.
func (s *Stream) Stats() (drops, starved uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops, s.starve
}

// Read implements io.Reader. It never blocks: an empty buffer repeats the
// last sample so the device does not click.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / bytesPerFrame * bytesPerFrame
	for i := 0; i < n; i += bytesPerFrame {
		if s.count > 0 {
			s.last = s.buf[s.tail]
			s.tail = (s.tail + 1) % len(s.buf)
			s.count--
		} else {
			s.starve++
		}
		bits := math.Float32bits(s.last)
		binary.LittleEndian.PutUint32(p[i:], bits)
		binary.LittleEndian.PutUint32(p[i+4:], bits)
	}
	return n, nil
}
