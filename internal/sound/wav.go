package sound

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth = 16
	wavPCM      = 1
	wavChunk    = 4096
	pcmScale    = 1<<15 - 1
)

// WavRecorder writes APU samples to a 16-bit mono WAV file.
type WavRecorder struct {
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	closer io.Closer
	frames int
}

// NewWavRecorder encodes to w. The header is patched on Close, so w must seek.
func NewWavRecorder(w io.WriteSeeker, sampleRate int) *WavRecorder {
	return &WavRecorder{
		enc: wav.NewEncoder(w, sampleRate, wavBitDepth, 1, wavPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, 0, wavChunk),
			SourceBitDepth: wavBitDepth,
		},
	}
}

// CreateWav creates path and returns a recorder that closes it.
func CreateWav(path string, sampleRate int) (*WavRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav %s: %w", path, err)
	}
	r := NewWavRecorder(f, sampleRate)
	r.closer = f
	return r, nil
}

// Push converts a sample in [-1, 1] to 16-bit PCM. Out-of-range values clip.
func (r *WavRecorder) Push(v float32) error {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	r.buf.Data = append(r.buf.Data, int(v*pcmScale))
	r.frames++
	if len(r.buf.Data) >= wavChunk {
		return r.flush()
	}
	return nil
}

// Frames returns the number of samples pushed so far.
func (r *WavRecorder) Frames() int {
	return r.frames
}

func (r *WavRecorder) flush() error {
	if len(r.buf.Data) == 0 {
		return nil
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	r.buf.Data = r.buf.Data[:0]
	return nil
}

// Close flushes pending samples, finalises the header and closes the file
// if the recorder created it.
func (r *WavRecorder) Close() error {
	err := r.flush()
	if cerr := r.enc.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("wav close: %w", cerr)
	}
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
