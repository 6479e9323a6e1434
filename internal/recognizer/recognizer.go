// Package recognizer is the thin factory surface between audio input
// sources and a speech engine. The engine itself is an external
// collaborator behind the Transcriber interface; this package only moves
// fixed-format PCM into it.
package recognizer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/petems/micstream/internal/audio"
)

// Transcriber consumes 16-bit mono 16 kHz PCM. Feed is called synchronously
// from the input source's goroutine; the slice is valid only for the
// duration of the call.
type Transcriber interface {
	Feed(pcm []byte) error
	Close() error
}

// Config carries recognizer construction parameters.
type Config struct {
	Backend    audio.Backend
	DeviceName string
	FrameCount int
	Logger     zerolog.Logger
}

// Recognizer drives PCM from one input source into a Transcriber. Exactly
// one of session (microphone) or replay (file/stream) is set.
type Recognizer struct {
	log     zerolog.Logger
	t       Transcriber
	session *audio.Session
	replay  func(ctx context.Context) error
}

// Run feeds the transcriber until the context is canceled (microphone) or
// the source is exhausted (file, stream).
func (r *Recognizer) Run(ctx context.Context) error {
	if r.replay != nil {
		return r.replay(ctx)
	}
	return r.runMicrophone(ctx)
}

// Close releases the audio session, if any. The transcriber stays open; it
// is caller-owned.
func (r *Recognizer) Close() error {
	if r.session != nil {
		return r.session.Close()
	}
	return nil
}
