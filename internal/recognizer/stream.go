package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/petems/micstream/internal/audio"
)

// FromStream returns a recognizer that chunks raw 16-bit mono PCM from r
// into t. The reader is caller-owned and is not closed.
func FromStream(r io.Reader, cfg Config, t Transcriber) (*Recognizer, error) {
	if r == nil || t == nil {
		return nil, fmt.Errorf("recognizer: nil stream or transcriber")
	}
	frameCount := cfg.FrameCount
	if frameCount <= 0 {
		frameCount = audio.DefaultFrameCount
	}

	log := cfg.Logger.With().Str("component", "recognizer").Str("source", "stream").Logger()

	replay := func(ctx context.Context) error {
		pcm := make([]byte, frameCount*audio.BlockAlign)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := io.ReadFull(r, pcm)
			// Drop a trailing odd byte rather than feed half a frame.
			if n -= n % audio.BlockAlign; n > 0 {
				if feedErr := t.Feed(pcm[:n]); feedErr != nil {
					return fmt.Errorf("recognizer: transcriber rejected audio: %w", feedErr)
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					log.Debug().Msg("stream drained")
					return nil
				}
				return fmt.Errorf("recognizer: read stream: %w", err)
			}
		}
	}

	return &Recognizer{log: log, t: t, replay: replay}, nil
}
