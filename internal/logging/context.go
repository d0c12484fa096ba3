// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	trainingRunKey contextKey = "training_run"
	loggerKey      contextKey = "logger"
)

// GenerateRequestID returns a new random request id.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID stores an HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithTrainingRun stores the id of the training run doing the work.
func ContextWithTrainingRun(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, trainingRunKey, id)
}

// TrainingRunFromContext returns the training run id, or "".
func TrainingRunFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(trainingRunKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger for Ctx to build on.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the stored logger or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger carrying the request id and training run id found in ctx.
//
//	logging.Ctx(r.Context()).Info().Int("k", k).Msg("recommendations served")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if id := TrainingRunFromContext(ctx); id != "" {
		logCtx = logCtx.Str("training_run", id)
	}
	l := logCtx.Logger()
	return &l
}
