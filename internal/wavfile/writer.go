// Package wavfile writes captured PCM to a WAV file.
package wavfile

import (
	"encoding/binary"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer encodes 16-bit little-endian PCM chunks into one WAV file.
type Writer struct {
	f   *os.File
	enc *wav.Encoder
	buf *gaudio.IntBuffer
}

// Create opens path for writing and prepares a 16-bit PCM encoder.
func Create(path string, sampleRate, channels int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: create %s: %w", path, err)
	}

	return &Writer{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, channels, 1),
		buf: &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: 16,
		},
	}, nil
}

// WritePCM appends one chunk of S16LE samples.
func (w *Writer) WritePCM(pcm []byte) error {
	n := len(pcm) / 2
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]
	for i := 0; i < n; i++ {
		w.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("wavfile: write: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("wavfile: finalize: %w", err)
	}
	return w.f.Close()
}
