package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/micstream/internal/audio"
	"github.com/petems/micstream/internal/config"
	"github.com/petems/micstream/internal/wavfile"
)

func recordCommand(cfg *config.Config, log zerolog.Logger) *cobra.Command {
	var (
		output   string
		duration time.Duration
		meter    bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record microphone audio to a WAV file",
		Long:  "Capture from the configured input device until interrupted (or for --duration) and write 16-bit mono PCM to a WAV file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cfg, log, output, duration, meter)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "capture.wav", "Output WAV file path")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (0 records until Ctrl-C)")
	cmd.Flags().BoolVar(&meter, "meter", true, "Show a live input level meter")
	cmd.Flags().StringVar(&cfg.Audio.DeviceName, "device", cfg.Audio.DeviceName, "Capture device name (empty for system default)")
	cmd.Flags().IntVar(&cfg.Audio.FrameCount, "frames", cfg.Audio.FrameCount, "Samples per delivered chunk (0 for 10 ms default)")
	cmd.Flags().StringVar(&cfg.Audio.Backend, "backend", cfg.Audio.Backend, "Audio backend (malgo, portaudio)")

	return cmd
}

func runRecord(cfg *config.Config, log zerolog.Logger, output string, duration time.Duration, meter bool) error {
	backend, err := audio.BackendByName(cfg.Audio.Backend, log)
	if err != nil {
		return err
	}

	session, err := audio.New(audio.Config{
		Backend:    backend,
		DeviceName: cfg.Audio.DeviceName,
		FrameCount: cfg.Audio.FrameCount,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("activate capture device: %w", err)
	}
	defer session.Close()

	writer, err := wavfile.Create(output, audio.SampleRate, audio.Channels)
	if err != nil {
		return err
	}

	var captured atomic.Int64
	var level atomic.Int64
	captureErr := make(chan error, 1)

	err = session.SetCallbacks(audio.Callbacks{
		Write: func(_ any, pcm []byte, frames int) int {
			if err := writer.WritePCM(pcm); err != nil {
				log.Error().Err(err).Msg("wav write failed")
				return 1
			}
			captured.Add(int64(frames))
			level.Store(int64(audio.MeasureLevel(pcm).Percent))
			return 0
		},
		OnInput: func(_ any, state audio.State) {
			log.Debug().Stringer("state", state).Msg("input state")
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

	if err := session.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	log.Info().Str("output", output).Msg("Recording... press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sigChan:
			break loop
		case <-timeout:
			break loop
		case err := <-captureErr:
			_ = session.Stop()
			writer.Close()
			return fmt.Errorf("capture failed: %w", err)
		case <-ticker.C:
			if meter {
				secs := float64(captured.Load()) / float64(audio.SampleRate)
				fmt.Printf("\r%6.1fs  level %3d%%", secs, level.Load())
			}
		}
	}
	if meter {
		fmt.Println()
	}

	if err := session.Stop(); err != nil {
		writer.Close()
		return fmt.Errorf("stop capture: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	log.Info().
		Int64("frames", captured.Load()).
		Str("output", output).
		Msg("Recording finished")
	return nil
}
