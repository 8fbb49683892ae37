package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all pipeline configuration loaded from environment variables.
// Every variable is prefixed with APP_, e.g. APP_STORE_DRIVER.
type Config struct {
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite" validate:"oneof=sqlite postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"database/dataset.db" validate:"required_if=StoreDriver sqlite"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"pipeline"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"pipeline"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"appliances"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable" validate:"oneof=disable require verify-ca verify-full"`

	DataDir       string `envconfig:"DATA_DIR" default:"data" validate:"required"`
	StagingDir    string `envconfig:"STAGING_DIR" default:"staging" validate:"required"`
	ModelsDir     string `envconfig:"MODELS_DIR" default:"models_store" validate:"required"`
	AlgorithmFile string `envconfig:"ALGORITHM_FILE" default:"models.yaml"`
	HeaderRow     int    `envconfig:"HEADER_ROW" default:"1" validate:"gte=0"`

	MaxConcurrency int    `envconfig:"MAX_CONCURRENCY" default:"4" validate:"gte=1,lte=64"`
	MaxRetries     int    `envconfig:"MAX_RETRIES" default:"3" validate:"gte=1"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	ForestTrees  int     `envconfig:"FOREST_TREES" default:"50" validate:"gte=1"`
	ForestDepth  int     `envconfig:"FOREST_DEPTH" default:"8" validate:"gte=1"`
	RidgeLambda  float64 `envconfig:"RIDGE_LAMBDA" default:"0.001" validate:"gte=0"`
	RandomSeed   int64   `envconfig:"RANDOM_SEED" default:"42"`
	MinTrainRows int     `envconfig:"MIN_TRAIN_ROWS" default:"3" validate:"gte=1"`
}

// Load reads the .env file, processes APP_* variables and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("APP", &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RawDir is where store tables are exported before preprocessing.
func (c *Config) RawDir() string { return filepath.Join(c.StagingDir, "01_raw") }

// PreprocessedDir holds encoded and scaled tables.
func (c *Config) PreprocessedDir() string { return filepath.Join(c.StagingDir, "02_preprocessed") }

// FinalDir holds feature-engineered tables ready for training.
func (c *Config) FinalDir() string { return filepath.Join(c.StagingDir, "03_final") }
