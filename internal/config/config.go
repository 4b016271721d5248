// Package config loads slate's layered configuration: built-in defaults,
// then an optional YAML file, then SLATE_ environment variables. A .env file
// in the working directory is folded into the environment first.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix marks the environment variables slate reads. A double underscore
// separates nesting levels, so SLATE_CANVAS__TOKEN sets canvas.token while
// SLATE_LOG_LEVEL stays log_level.
const envPrefix = "SLATE_"

// Config is the full runtime configuration.
type Config struct {
	LogLevel  string `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	// Output is the root of the CSV tree the extractors write and the
	// loader reads.
	Output string `koanf:"output" validate:"required"`

	// SyncDB is the path of the local SQLite sync database.
	SyncDB string `koanf:"sync_db" validate:"required"`

	Canvas    CanvasConfig    `koanf:"canvas"`
	Classroom ClassroomConfig `koanf:"classroom"`
	Schoology SchoologyConfig `koanf:"schoology"`
	Database  DatabaseConfig  `koanf:"database"`
}

// CanvasConfig holds Canvas GraphQL API access.
type CanvasConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	Token     string `koanf:"token" validate:"required"`
	AccountID string `koanf:"account_id" validate:"required"`
	StartDate string `koanf:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `koanf:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// ClassroomConfig holds Google Classroom API access.
type ClassroomConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token" validate:"required"`
}

// SchoologyConfig holds Schoology API access.
type SchoologyConfig struct {
	Key            string `koanf:"key" validate:"required"`
	Secret         string `koanf:"secret" validate:"required"`
	PageSize       int    `koanf:"page_size" validate:"gt=0"`
	// GradingPeriods filters the assignment pull. Empty means no filter.
	GradingPeriods []int `koanf:"grading_periods"`
}

// DatabaseConfig points at the production lms database.
type DatabaseConfig struct {
	Engine           string `koanf:"engine" validate:"oneof=postgresql mysql"`
	ConnectionString string `koanf:"connection_string" validate:"required"`
}

func defaults() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Output:    "data",
		SyncDB:    "sync.db",
		Canvas: CanvasConfig{
			BaseURL: "https://canvas.instructure.com",
		},
		Schoology: SchoologyConfig{
			PageSize: 200,
		},
		Database: DatabaseConfig{
			Engine: "postgresql",
		},
	}
}

// Load builds the configuration. path names an explicit YAML file; when
// empty, config.yaml in the working directory is used if present.
func Load(path string) (*Config, error) {
	// Missing .env files are the common case and not an error.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// envTransform maps SLATE_CANVAS__TOKEN to canvas.token.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
