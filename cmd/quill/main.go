// Package main is the entry point for the quill table assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ademiltonnunes/quill-project/internal/api"
	"github.com/ademiltonnunes/quill-project/internal/config"
	"github.com/ademiltonnunes/quill-project/internal/monitoring"
	"github.com/ademiltonnunes/quill-project/internal/provider"
	"github.com/ademiltonnunes/quill-project/internal/session"
	"github.com/ademiltonnunes/quill-project/internal/store"
	"github.com/ademiltonnunes/quill-project/internal/table"
)

// loadEnvFiles loads .env from standard locations before config parsing,
// so ${VAR} references in the config file resolve.
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configEnv := filepath.Join(homeDir, ".config", "quill", ".env")
		if _, err := os.Stat(configEnv); err == nil {
			_ = godotenv.Load(configEnv)
		}
	}
	// Local .env can override.
	_ = godotenv.Load()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	loadEnvFiles()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	monitoring.Global(cfg.Logging)

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("quill exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := provider.New(cfg.Provider)
	if err != nil {
		return err
	}

	var recorder session.Recorder
	if cfg.Transcript.Enabled {
		transcript, err := store.Open(ctx, cfg.Transcript.Path)
		if err != nil {
			return fmt.Errorf("open transcript store: %w", err)
		}
		defer transcript.Close()
		recorder = transcript
		log.Info().Str("path", cfg.Transcript.Path).Msg("transcript store enabled")
	}

	rows := table.SampleRows(cfg.Table.SampleRows, cfg.Table.SampleSeed)
	sess := session.New(prov, table.NewState(rows, cfg.Table.PageSize), recorder)

	log.Info().
		Str("provider", prov.ID()).
		Str("model", cfg.Provider.Model).
		Int("sample_rows", cfg.Table.SampleRows).
		Msg("session ready")

	return api.New(*cfg, sess).Start(ctx)
}
