package recognizer

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/petems/micstream/internal/audio"
)

// FromFile returns a recognizer that replays a 16-bit PCM WAV file into t,
// one frame-count chunk at a time. The capture core is never touched.
func FromFile(path string, cfg Config, t Transcriber) (*Recognizer, error) {
	if t == nil {
		return nil, fmt.Errorf("recognizer: nil transcriber")
	}
	frameCount := cfg.FrameCount
	if frameCount <= 0 {
		frameCount = audio.DefaultFrameCount
	}

	log := cfg.Logger.With().Str("component", "recognizer").Str("source", "file").Logger()

	replay := func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("recognizer: open %s: %w", path, err)
		}
		defer f.Close()

		d := wav.NewDecoder(f)
		if !d.IsValidFile() {
			return fmt.Errorf("recognizer: %s is not a valid WAV file", path)
		}
		if d.BitDepth != 16 {
			return fmt.Errorf("recognizer: %s: bit depth %d, want 16", path, d.BitDepth)
		}

		buf := &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: int(d.NumChans),
				SampleRate:  int(d.SampleRate),
			},
			Data:           make([]int, frameCount),
			SourceBitDepth: 16,
		}
		pcm := make([]byte, frameCount*audio.BlockAlign)

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := d.PCMBuffer(buf)
			if err != nil {
				return fmt.Errorf("recognizer: decode %s: %w", path, err)
			}
			if n == 0 {
				log.Debug().Msg("file drained")
				return nil
			}
			for i := 0; i < n; i++ {
				binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(buf.Data[i])))
			}
			if err := t.Feed(pcm[:n*2]); err != nil {
				return fmt.Errorf("recognizer: transcriber rejected audio: %w", err)
			}
		}
	}

	return &Recognizer{log: log, t: t, replay: replay}, nil
}
