// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/alsrec/internal/recommend"
	"github.com/tomtom215/alsrec/internal/recommend/storage"
)

// TrainingEngine is the part of *recommend.Engine the service drives.
type TrainingEngine interface {
	Train(ctx context.Context) error
	LoadLatest(ctx context.Context) error
	Ready() bool
}

// TrainingServiceConfig holds configuration for the training service.
type TrainingServiceConfig struct {
	// Restore loads the latest persisted model before anything else.
	Restore bool

	// TrainOnStartup trains even when a model was restored.
	TrainOnStartup bool

	// Interval between scheduled retrains. Zero disables the schedule.
	Interval time.Duration
}

// TrainingService owns the training lifecycle: restore, initial training and
// periodic retraining. Queries are never blocked by it; the engine keeps
// serving the published model while a new one trains.
type TrainingService struct {
	engine TrainingEngine
	config TrainingServiceConfig
	logger zerolog.Logger
	name   string

	// bootstrapped is set after the first Serve finished its startup steps,
	// so a supervisor restart does not restore or retrain again.
	bootstrapped atomic.Bool
}

// NewTrainingService creates a new training service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(engine TrainingEngine, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	return &TrainingService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "training").Logger(),
		name:   "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	if !s.bootstrapped.Load() {
		s.bootstrap(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.bootstrapped.Store(true)
	}

	if s.config.Interval <= 0 {
		s.logger.Info().Msg("scheduled retraining disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.config.Interval).Msg("training service running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("scheduled training triggered")
			s.train(ctx, "scheduled")
		}
	}
}

func (s *TrainingService) bootstrap(ctx context.Context) {
	if s.config.Restore {
		err := s.engine.LoadLatest(ctx)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNoModel):
			s.logger.Info().Msg("no persisted model to restore")
		case errors.Is(err, recommend.ErrNoModelStore):
			s.logger.Debug().Msg("model persistence disabled")
		default:
			s.logger.Warn().Err(err).Msg("restoring persisted model failed")
		}
	}

	if s.config.TrainOnStartup || !s.engine.Ready() {
		s.train(ctx, "startup")
	}
}

// train runs one training pass. Failures are logged; the published model, if
// any, stays in service and the next tick tries again.
func (s *TrainingService) train(ctx context.Context, trigger string) {
	err := s.engine.Train(ctx)
	switch {
	case err == nil:
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Info().Str("trigger", trigger).Msg("training already in progress, skipping")
	case ctx.Err() != nil:
		s.logger.Info().Str("trigger", trigger).Msg("training interrupted by shutdown")
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("training failed, will retry on schedule")
	}
}

// String identifies the service in supervisor logs.
func (s *TrainingService) String() string {
	return s.name
}
