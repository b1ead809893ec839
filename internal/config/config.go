// Package config loads deskcore settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Storage selects and parameterizes the persistence backend.
type Storage struct {
	// Driver is one of memory, sqlite, postgres, surreal.
	Driver string `env:"DESKCORE_STORAGE_DRIVER" envDefault:"memory"`

	SQLitePath  string `env:"DESKCORE_SQLITE_PATH" envDefault:"deskcore.db"`
	PostgresDSN string `env:"DESKCORE_POSTGRES_DSN"`

	SurrealURL       string `env:"DESKCORE_SURREAL_URL" envDefault:"ws://localhost:8000/rpc"`
	SurrealNamespace string `env:"DESKCORE_SURREAL_NAMESPACE" envDefault:"deskcore"`
	SurrealDatabase  string `env:"DESKCORE_SURREAL_DATABASE" envDefault:"deskcore"`
	SurrealUser      string `env:"DESKCORE_SURREAL_USER"`
	SurrealPass      string `env:"DESKCORE_SURREAL_PASS"`
}

// Blob selects and parameterizes the archive blob store.
type Blob struct {
	// Driver is one of fs, memory, s3.
	Driver string `env:"DESKCORE_BLOB_DRIVER" envDefault:"fs"`

	FSRoot string `env:"DESKCORE_BLOB_FS_ROOT" envDefault:"deskcore-archive"`

	S3Bucket   string `env:"DESKCORE_BLOB_S3_BUCKET"`
	S3Prefix   string `env:"DESKCORE_BLOB_S3_PREFIX"`
	S3Region   string `env:"DESKCORE_BLOB_S3_REGION"`
	S3Endpoint string `env:"DESKCORE_BLOB_S3_ENDPOINT"`
}

// Assist parameterizes the suggestion backend.
type Assist struct {
	OpenAIAPIKey  string `env:"DESKCORE_OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"DESKCORE_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"DESKCORE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
}

// Maildraft parameterizes the outbound mail-draft gateway. Drafts are
// rendered locally when no gateway URL is configured.
type Maildraft struct {
	DraftURL  string `env:"DESKCORE_MAILDRAFT_URL"`
	AuthToken string `env:"DESKCORE_MAILDRAFT_TOKEN"`
}

// Config is the full runtime configuration.
type Config struct {
	LogLevel string `env:"DESKCORE_LOG_LEVEL" envDefault:"info"`

	Storage   Storage   `envPrefix:""`
	Blob      Blob      `envPrefix:""`
	Assist    Assist    `envPrefix:""`
	Maildraft Maildraft `envPrefix:""`
}

// Load parses the configuration from process environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
