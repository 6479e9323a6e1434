package recognizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/petems/micstream/internal/audio"
)

// FromDefaultMicrophone activates the configured capture device and returns
// a recognizer streaming live microphone audio into t. Activation failure
// is fatal: no recognizer is returned.
func FromDefaultMicrophone(cfg Config, t Transcriber) (*Recognizer, error) {
	if t == nil {
		return nil, fmt.Errorf("recognizer: nil transcriber")
	}

	session, err := audio.New(audio.Config{
		Backend:    cfg.Backend,
		DeviceName: cfg.DeviceName,
		FrameCount: cfg.FrameCount,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizer: activate microphone: %w", err)
	}

	return &Recognizer{
		log:     cfg.Logger.With().Str("component", "recognizer").Str("source", "microphone").Logger(),
		t:       t,
		session: session,
	}, nil
}

func (r *Recognizer) runMicrophone(ctx context.Context) error {
	var (
		mu      sync.Mutex
		feedErr error
	)
	captureErr := make(chan error, 1)

	err := r.session.SetCallbacks(audio.Callbacks{
		Write: func(_ any, pcm []byte, frames int) int {
			if err := r.t.Feed(pcm); err != nil {
				mu.Lock()
				if feedErr == nil {
					feedErr = err
				}
				mu.Unlock()
				return 1
			}
			return 0
		},
		OnInput: func(_ any, state audio.State) {
			r.log.Debug().Stringer("state", state).Msg("input state")
		},
		OnError: func(_ any, err error) {
			select {
			case captureErr <- err:
			default:
			}
		},
	})
	if err != nil {
		return err
	}

	if err := r.session.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-captureErr:
		_ = r.session.Stop()
		return fmt.Errorf("recognizer: capture failed: %w", err)
	}

	if err := r.session.Stop(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if feedErr != nil {
		return fmt.Errorf("recognizer: transcriber rejected audio: %w", feedErr)
	}
	return nil
}
