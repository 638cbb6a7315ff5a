package main

import (
	"log"
	"os"
	"time"

	"github.com/cbegin/skyline-go/internal/config"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const sentryFlushTimeout = 2 * time.Second

// releaseVersion is set via ldflags during build.
var releaseVersion = "dev"

var cfg config.Config

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg = config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "skyline@" + releaseVersion,
			Debug:       cfg.IsDevelopment(),
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	rootCmd.PersistentFlags().StringVar(&cfg.StatePath, "state", cfg.StatePath, "Path of the saved instruments and loop")
	rootCmd.PersistentFlags().IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	rootCmd.PersistentFlags().Float64Var(&cfg.MasterVolume, "volume", cfg.MasterVolume, "Master volume (0 or more)")

	if err := rootCmd.Execute(); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(sentryFlushTimeout)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skyline",
	Short: "Loop a generated multi-track groove through a small synth engine",
	Long: `Skyline loops a 16-beat score across up to four instruments
(percussion, bass, lead and pad), each with an optional reverb or delay.

Scores come from a composition model (Gemini or OpenAI) and are saved
alongside the instrument setup in a single JSON state file.`,
	Version:      releaseVersion,
	SilenceUsage: true,
}
