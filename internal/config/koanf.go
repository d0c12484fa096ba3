// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/alsrec/config.yaml",
	"/etc/alsrec/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Data: DataConfig{
			DatabasePath: "",
			UserColumn:   "userId",
			ItemColumn:   "movieId",
			WeightColumn: "rating",
			ItemIDColumn: "movieId",
			TitleColumn:  "title",
			MinWeight:    0,
		},
		Model: ModelConfig{
			Factors:         64,
			Regularization:  0.01,
			Alpha:           40,
			Epsilon:         1,
			Confidence:      "linear",
			Iterations:      15,
			Seed:            42,
			Workers:         0,
			Solver:          "cholesky",
			CGSteps:         3,
			DuplicatePolicy: "sum",
		},
		Training: TrainingConfig{
			OnStartup:       true,
			Interval:        24 * time.Hour,
			Timeout:         30 * time.Minute,
			MinInteractions: 1,
		},
		Storage: StorageConfig{
			Backend:      "file",
			Path:         "data/models",
			KeepVersions: 3,
		},
		Query: QueryConfig{
			DefaultK:  10,
			MaxK:      500,
			CacheSize: 4096,
			CacheTTL:  10 * time.Minute,
		},
	}
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// Load builds the configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"duckdb_path":      "data.database_path",
	"interactions_csv": "data.interactions_csv",
	"items_csv":        "data.items_csv",
	"min_weight":       "data.min_weight",

	"als_factors":          "model.factors",
	"als_regularization":   "model.regularization",
	"als_alpha":            "model.alpha",
	"als_epsilon":          "model.epsilon",
	"als_confidence":       "model.confidence",
	"als_iterations":       "model.iterations",
	"als_seed":             "model.seed",
	"als_workers":          "model.workers",
	"als_solver":           "model.solver",
	"als_cg_steps":         "model.cg_steps",
	"als_track_loss":       "model.track_loss",
	"als_duplicate_policy": "model.duplicate_policy",

	"train_on_startup":       "training.on_startup",
	"train_interval":         "training.interval",
	"train_timeout":          "training.timeout",
	"train_min_interactions": "training.min_interactions",

	"model_store":      "storage.backend",
	"model_store_path": "storage.path",
	"model_keep":       "storage.keep_versions",

	"query_default_k": "query.default_k",
	"query_max_k":     "query.max_k",
	"query_cache":     "query.cache_size",
	"query_cache_ttl": "query.cache_ttl",
}

// envTransformFunc maps an environment variable name to its koanf path, or
// "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
