package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/micstream/internal/audio"
	"github.com/petems/micstream/internal/config"
)

func devicesCommand(cfg *config.Config, log zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := audio.BackendByName(cfg.Audio.Backend, log)
			if err != nil {
				return err
			}

			devices, err := backend.Devices()
			if err != nil {
				return err
			}

			fmt.Printf("Capture devices (%s):\n", backend.Name())
			for i, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Printf("%s %d: %s\n", marker, i, d.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Audio.Backend, "backend", cfg.Audio.Backend, "Audio backend (malgo, portaudio)")
	return cmd
}
