// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package config

import (
	"fmt"
	"strings"
)

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateQuery()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateModel() error {
	m := c.Model
	if m.Factors <= 0 {
		return fmt.Errorf("model.factors must be positive, got %d", m.Factors)
	}
	if m.Regularization <= 0 {
		return fmt.Errorf("model.regularization must be positive, got %v", m.Regularization)
	}
	if m.Alpha < 0 {
		return fmt.Errorf("model.alpha must be non-negative, got %v", m.Alpha)
	}
	if m.Iterations < 1 {
		return fmt.Errorf("model.iterations must be at least 1, got %d", m.Iterations)
	}
	if m.Workers < 0 {
		return fmt.Errorf("model.workers must be non-negative, got %d", m.Workers)
	}
	switch m.Confidence {
	case "linear":
	case "log":
		if m.Epsilon <= 0 {
			return fmt.Errorf("model.epsilon must be positive for log confidence, got %v", m.Epsilon)
		}
	default:
		return fmt.Errorf("model.confidence must be linear or log, got %q", m.Confidence)
	}
	switch m.Solver {
	case "cholesky":
	case "cg":
		if m.CGSteps <= 0 {
			return fmt.Errorf("model.cg_steps must be positive, got %d", m.CGSteps)
		}
	default:
		return fmt.Errorf("model.solver must be cholesky or cg, got %q", m.Solver)
	}
	switch m.DuplicatePolicy {
	case "sum", "overwrite":
	default:
		return fmt.Errorf("model.duplicate_policy must be sum or overwrite, got %q", m.DuplicatePolicy)
	}
	return nil
}

func (c *Config) validateTraining() error {
	if c.Training.Interval < 0 {
		return fmt.Errorf("training.interval must be non-negative, got %v", c.Training.Interval)
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive, got %v", c.Training.Timeout)
	}
	if c.Training.MinInteractions < 1 {
		return fmt.Errorf("training.min_interactions must be at least 1, got %d", c.Training.MinInteractions)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "none":
		return nil
	case "file", "badger":
	default:
		return fmt.Errorf("storage.backend must be file, badger or none, got %q", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
	}
	if c.Storage.KeepVersions < 1 {
		return fmt.Errorf("storage.keep_versions must be at least 1, got %d", c.Storage.KeepVersions)
	}
	return nil
}

func (c *Config) validateQuery() error {
	if c.Query.DefaultK < 1 {
		return fmt.Errorf("query.default_k must be at least 1, got %d", c.Query.DefaultK)
	}
	if c.Query.MaxK < c.Query.DefaultK {
		return fmt.Errorf("query.max_k (%d) must not be below query.default_k (%d)", c.Query.MaxK, c.Query.DefaultK)
	}
	if c.Query.CacheSize < 0 {
		return fmt.Errorf("query.cache_size must be non-negative, got %d", c.Query.CacheSize)
	}
	return nil
}
