// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package config loads service configuration with koanf.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. built-in defaults (defaultConfig)
//  2. a YAML file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. environment variables listed in envTransformFunc
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Data     DataConfig     `koanf:"data"`
	Model    ModelConfig    `koanf:"model"`
	Training TrainingConfig `koanf:"training"`
	Storage  StorageConfig  `koanf:"storage"`
	Query    QueryConfig    `koanf:"query"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DataConfig locates the interaction data.
type DataConfig struct {
	// DatabasePath is the DuckDB file. Empty keeps the database in memory.
	DatabasePath string `koanf:"database_path"`

	// InteractionsCSV is imported into the interactions table at startup when set.
	InteractionsCSV string `koanf:"interactions_csv"`

	// ItemsCSV is imported into the items table at startup when set.
	ItemsCSV string `koanf:"items_csv"`

	// Column names in the interactions CSV.
	UserColumn   string `koanf:"user_column"`
	ItemColumn   string `koanf:"item_column"`
	WeightColumn string `koanf:"weight_column"`

	// Column names in the items CSV.
	ItemIDColumn string `koanf:"item_id_column"`
	TitleColumn  string `koanf:"title_column"`

	// MinWeight drops interactions below this weight when loading.
	MinWeight float64 `koanf:"min_weight"`
}

// ModelConfig holds ALS hyperparameters.
type ModelConfig struct {
	Factors         int     `koanf:"factors"`
	Regularization  float64 `koanf:"regularization"`
	Alpha           float64 `koanf:"alpha"`
	Epsilon         float64 `koanf:"epsilon"`
	Confidence      string  `koanf:"confidence"`
	Iterations      int     `koanf:"iterations"`
	Seed            int64   `koanf:"seed"`
	Workers         int     `koanf:"workers"`
	Solver          string  `koanf:"solver"`
	CGSteps         int     `koanf:"cg_steps"`
	DuplicatePolicy string  `koanf:"duplicate_policy"`
	TrackLoss       bool    `koanf:"track_loss"`
}

// TrainingConfig schedules training runs.
type TrainingConfig struct {
	OnStartup       bool          `koanf:"on_startup"`
	Interval        time.Duration `koanf:"interval"`
	Timeout         time.Duration `koanf:"timeout"`
	MinInteractions int           `koanf:"min_interactions"`
}

// StorageConfig selects where trained models are persisted.
type StorageConfig struct {
	// Backend is file, badger or none.
	Backend      string `koanf:"backend"`
	Path         string `koanf:"path"`
	KeepVersions int    `koanf:"keep_versions"`
}

// QueryConfig bounds query parameters and the result cache.
type QueryConfig struct {
	DefaultK  int           `koanf:"default_k"`
	MaxK      int           `koanf:"max_k"`
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
