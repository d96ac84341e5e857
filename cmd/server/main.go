// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Command server runs the MachineMate backend: the gym machine identification
// pipeline plus the catalog, favorites, history, stats and media APIs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/machinemate/machinemate/internal/api"
	"github.com/machinemate/machinemate/internal/auth"
	"github.com/machinemate/machinemate/internal/catalog"
	"github.com/machinemate/machinemate/internal/config"
	"github.com/machinemate/machinemate/internal/database"
	"github.com/machinemate/machinemate/internal/inference"
	"github.com/machinemate/machinemate/internal/logging"
	"github.com/machinemate/machinemate/internal/prompt"
	"github.com/machinemate/machinemate/internal/storage"
	"github.com/machinemate/machinemate/internal/trace"
	"github.com/machinemate/machinemate/internal/vlm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("starting machinemate backend")

	cat := catalog.Load(cfg.Catalog.Path)
	logging.Info().Int("machines", cat.Len()).Bool("metadata", cat.HasMetadata()).
		Msg("machine catalog loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.SeedFromCatalog {
		seeded, err := db.SeedMachines(context.Background(), cat.Entries())
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to seed machines from catalog")
		}
		if seeded > 0 {
			logging.Info().Int("seeded", seeded).Msg("catalog machines inserted")
		}
	}

	traces := trace.NewStore(cfg.Trace.Capacity)

	variant := prompt.Select(cfg.Prompt.Variant, cfg.Prompt.ABTestingEnabled)
	var machines []catalog.Machine
	if cfg.Prompt.MetadataEnabled {
		machines = cat.Entries()
	}
	promptText := prompt.Build(variant, cat.Names(), machines)
	logging.Info().Str("variant", variant.String()).Int("prompt_chars", len(promptText)).
		Msg("identification prompt built")

	classifier := vlm.NewClient(cfg.VLM, promptText, variant.String(), cat.Names(), traces)
	svc := inference.NewService(classifier, traces, cfg.VLM.Model, cfg.VLM.MockFallbackEnabled)

	media := storage.NewClient(cfg.Storage)
	verifier := auth.NewVerifier(cfg.Auth)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewServer(cfg, db, svc, media, verifier).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
			_ = server.Close()
		}
	}

	logging.Info().Msg("server stopped")
}
