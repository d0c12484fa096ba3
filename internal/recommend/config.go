// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/alsrec/internal/recommend/als"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// ALS contains the trainer hyperparameters.
	ALS als.TrainerConfig `json:"als"`

	// DuplicatePolicy combines repeated (user, item) records.
	DuplicatePolicy als.DuplicatePolicy `json:"duplicate_policy"`

	// Training contains training run parameters.
	Training TrainingConfig `json:"training"`

	// Limits contains query limits.
	Limits LimitsConfig `json:"limits"`

	// Cache contains query result caching parameters.
	Cache CacheConfig `json:"cache"`

	// KeepVersions is how many stored model versions survive pruning.
	KeepVersions int `json:"keep_versions"`
}

// TrainingConfig contains training run parameters.
type TrainingConfig struct {
	// Timeout bounds a single training run including data loading.
	Timeout time.Duration `json:"timeout"`

	// MinInteractions is the minimum record count required to train.
	MinInteractions int `json:"min_interactions"`
}

// LimitsConfig bounds query sizes.
type LimitsConfig struct {
	// DefaultK is used when a query asks for k <= 0.
	DefaultK int `json:"default_k"`

	// MaxK caps k.
	MaxK int `json:"max_k"`
}

// CacheConfig contains query result caching parameters.
type CacheConfig struct {
	// Enabled turns the result cache on.
	Enabled bool `json:"enabled"`

	// Size is the maximum number of cached results.
	Size int `json:"size"`

	// TTL is how long a cached result stays valid.
	TTL time.Duration `json:"ttl"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		ALS:             als.DefaultTrainerConfig(),
		DuplicatePolicy: als.DuplicateSum,
		Training: TrainingConfig{
			Timeout:         30 * time.Minute,
			MinInteractions: 1,
		},
		Limits: LimitsConfig{
			DefaultK: 10,
			MaxK:     500,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    4096,
			TTL:     10 * time.Minute,
		},
		KeepVersions: 3,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.ALS.Validate(); err != nil {
		return fmt.Errorf("als: %w", err)
	}
	if _, err := als.ParseDuplicatePolicy(string(c.DuplicatePolicy)); err != nil {
		return err
	}
	if c.Training.Timeout <= 0 {
		return fmt.Errorf("training timeout must be positive, got %v", c.Training.Timeout)
	}
	if c.Training.MinInteractions < 1 {
		return fmt.Errorf("min_interactions must be at least 1, got %d", c.Training.MinInteractions)
	}
	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("default_k must be at least 1, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("max_k (%d) must be >= default_k (%d)", c.Limits.MaxK, c.Limits.DefaultK)
	}
	if c.Cache.Enabled && c.Cache.Size < 1 {
		return fmt.Errorf("cache size must be at least 1 when enabled, got %d", c.Cache.Size)
	}
	if c.KeepVersions < 1 {
		return fmt.Errorf("keep_versions must be at least 1, got %d", c.KeepVersions)
	}
	return nil
}

// clampK applies the default and maximum to a requested k.
func (c *Config) clampK(k int) int {
	if k <= 0 {
		return c.Limits.DefaultK
	}
	return min(k, c.Limits.MaxK)
}
