package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petems/micstream/internal/config"
	"github.com/petems/micstream/internal/logging"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	root := &cobra.Command{
		Use:           "micstream",
		Short:         "Capture microphone audio as fixed-size PCM frames",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		recordCommand(cfg, log),
		devicesCommand(cfg, log),
		versionCommand(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("micstream %s (%s)\n", Version, Commit)
		},
	}
}
