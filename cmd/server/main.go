// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package main is the entry point for the alsrec server.
//
// alsrec trains an implicit-feedback ALS model on user-item interactions
// stored in DuckDB and serves item similarity and per-user recommendations
// over HTTP.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml and environment (Koanf v2)
//  2. Logging: zerolog, also backing the supervisor's slog events
//  3. Database: DuckDB, importing interaction and item CSVs when configured
//  4. Model store: file or BadgerDB persistence of published models
//  5. Engine: ALS training, publishing and query serving
//  6. Supervisor tree: training service and HTTP server (suture v4)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains
// in-flight requests, a running training pass is cancelled and the published
// model stays persisted for the next start.
//
// # Example Usage
//
//	export DATA_INTERACTIONS_CSV=/data/ratings.csv
//	export DATA_ITEMS_CSV=/data/movies.csv
//	export STORAGE_BACKEND=file
//	export STORAGE_PATH=/data/models
//	./alsrec
//
//	curl 'localhost:8088/api/v1/items/search?q=toy%20story'
//	curl 'localhost:8088/api/v1/items/1/similar?k=10&normalized=true'
//	curl 'localhost:8088/api/v1/users/42/recommendations?k=20'
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/tomtom215/alsrec/internal/api"
	"github.com/tomtom215/alsrec/internal/config"
	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/supervisor"
	"github.com/tomtom215/alsrec/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Data.DatabasePath).
		Str("storage_backend", cfg.Storage.Backend).
		Int("factors", cfg.Model.Factors).
		Int("iterations", cfg.Model.Iterations).
		Msg("Starting alsrec")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, &cfg.Data)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, err := initModelStore(&cfg.Storage)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open model store")
		return
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing model store")
			}
		}()
	}

	engine, err := initEngine(cfg, db, store, logger)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create recommendation engine")
		return
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	tree.AddDataService(services.NewTrainingService(engine, services.TrainingServiceConfig{
		Restore:        store != nil,
		TrainOnStartup: cfg.Training.OnStartup,
		Interval:       cfg.Training.Interval,
	}, logger))

	handler := api.NewHandler(ctx, engine, db)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromServer(&cfg.Server))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
