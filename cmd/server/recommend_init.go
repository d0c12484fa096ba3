// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/alsrec/internal/config"
	"github.com/tomtom215/alsrec/internal/database"
	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/recommend"
	"github.com/tomtom215/alsrec/internal/recommend/als"
	"github.com/tomtom215/alsrec/internal/recommend/storage"
)

// initDatabase opens DuckDB and imports the configured CSV files. Each
// import replaces the table contents, so restarts pick up edited files.
func initDatabase(ctx context.Context, cfg *config.DataConfig) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.InteractionsCSV != "" {
		n, err := db.ImportInteractionsCSV(ctx, cfg.InteractionsCSV)
		if err != nil {
			closeErr := db.Close()
			return nil, fmt.Errorf("import interactions: %w (close: %v)", err, closeErr)
		}
		logging.Info().Int64("rows", n).Str("file", cfg.InteractionsCSV).Msg("Imported interactions")
	}
	if cfg.ItemsCSV != "" {
		n, err := db.ImportItemsCSV(ctx, cfg.ItemsCSV)
		if err != nil {
			closeErr := db.Close()
			return nil, fmt.Errorf("import items: %w (close: %v)", err, closeErr)
		}
		logging.Info().Int64("rows", n).Str("file", cfg.ItemsCSV).Msg("Imported items")
	}
	return db, nil
}

// initModelStore opens the configured store, or returns nil when
// persistence is disabled.
func initModelStore(cfg *config.StorageConfig) (storage.Store, error) {
	return storage.Open(cfg.Backend, cfg.Path)
}

// initEngine builds the engine over a circuit-broken view of db.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initEngine(cfg *config.Config, db database.InteractionSource, store storage.Store, logger zerolog.Logger) (*recommend.Engine, error) {
	engineCfg, err := buildEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := recommend.NewEngine(engineCfg, logger)
	if err != nil {
		return nil, err
	}
	engine.SetDataProvider(database.NewBreakerSource(db, database.DefaultBreakerConfig()))
	if store != nil {
		engine.SetModelStore(store)
	}
	return engine, nil
}

// buildEngineConfig maps the application config onto the engine config.
func buildEngineConfig(cfg *config.Config) (*recommend.Config, error) {
	policy, err := als.ParseDuplicatePolicy(cfg.Model.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	ec := recommend.DefaultConfig()
	ec.ALS.Factors = cfg.Model.Factors
	ec.ALS.Regularization = cfg.Model.Regularization
	ec.ALS.Alpha = cfg.Model.Alpha
	ec.ALS.Epsilon = cfg.Model.Epsilon
	ec.ALS.Confidence = als.ConfidenceMode(cfg.Model.Confidence)
	ec.ALS.Iterations = cfg.Model.Iterations
	ec.ALS.Seed = cfg.Model.Seed
	ec.ALS.Workers = cfg.Model.Workers
	ec.ALS.Solver = als.SolverKind(cfg.Model.Solver)
	ec.ALS.CGSteps = cfg.Model.CGSteps
	ec.ALS.TrackLoss = cfg.Model.TrackLoss
	ec.DuplicatePolicy = policy

	ec.Training.Timeout = cfg.Training.Timeout
	ec.Training.MinInteractions = cfg.Training.MinInteractions

	ec.Limits.DefaultK = cfg.Query.DefaultK
	ec.Limits.MaxK = cfg.Query.MaxK
	ec.Cache.Enabled = cfg.Query.CacheSize > 0
	ec.Cache.Size = cfg.Query.CacheSize
	ec.Cache.TTL = cfg.Query.CacheTTL

	if cfg.Storage.KeepVersions > 0 {
		ec.KeepVersions = cfg.Storage.KeepVersions
	}

	if err := ec.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return ec, nil
}
