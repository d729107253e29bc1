// Package config loads the root Dossier configuration: a base config.toml,
// an optional per-environment overlay selected by DOSSIER_ENV, and
// environment variable overrides applied during finalization.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/dossier/internal/classify"
	"github.com/JaimeStill/dossier/internal/extract"
	"github.com/JaimeStill/dossier/internal/report"
	"github.com/JaimeStill/dossier/pkg/database"
	"github.com/JaimeStill/dossier/pkg/retry"
	"github.com/JaimeStill/dossier/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	DefaultDatabasePath = "data/dossier.db"

	EnvDossierEnv      = "DOSSIER_ENV"
	EnvDossierInputDir = "DOSSIER_INPUT_DIR"
	EnvDossierVersion  = "DOSSIER_VERSION"
)

var databaseEnv = &database.Env{
	Driver:      "DOSSIER_DB_DRIVER",
	Path:        "DOSSIER_DB_PATH",
	Host:        "DOSSIER_DB_HOST",
	Port:        "DOSSIER_DB_PORT",
	Name:        "DOSSIER_DB_NAME",
	User:        "DOSSIER_DB_USER",
	Password:    "DOSSIER_DB_PASSWORD",
	SSLMode:     "DOSSIER_DB_SSL_MODE",
	ConnTimeout: "DOSSIER_DB_CONN_TIMEOUT",
}

var retryEnv = &retry.Env{
	MaxAttempts:     "DOSSIER_RETRY_MAX_ATTEMPTS",
	InitialInterval: "DOSSIER_RETRY_INITIAL_INTERVAL",
	BackoffFactor:   "DOSSIER_RETRY_BACKOFF_FACTOR",
	MaxInterval:     "DOSSIER_RETRY_MAX_INTERVAL",
}

var extractEnv = &extract.Env{
	MaxChars:    "DOSSIER_EXTRACT_MAX_CHARS",
	MaxFileSize: "DOSSIER_EXTRACT_MAX_FILE_SIZE",
}

var classifyEnv = &classify.Env{
	Categories:  "DOSSIER_CLASSIFY_CATEGORIES",
	SampleChars: "DOSSIER_CLASSIFY_SAMPLE_CHARS",
}

var reportEnv = &report.Env{
	OutputDir: "DOSSIER_REPORT_OUTPUT_DIR",
}

var storageEnv = &storage.Env{
	ContainerName:    "DOSSIER_STORAGE_CONTAINER_NAME",
	ConnectionString: "DOSSIER_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the Dossier workflow service.
type Config struct {
	Database database.Config `toml:"database"`
	Retry    retry.Config    `toml:"retry"`
	Extract  extract.Config  `toml:"extract"`
	Classify classify.Config `toml:"classify"`
	Report   report.Config   `toml:"report"`
	Storage  storage.Config  `toml:"storage"`
	Agent    AgentConfig     `toml:"agent"`
	InputDir string          `toml:"input_dir"`
	Version  string          `toml:"version"`
}

// Env returns the DOSSIER_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDossierEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and
// environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.InputDir != "" {
		c.InputDir = overlay.InputDir
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Database.Merge(&overlay.Database)
	c.Retry.Merge(&overlay.Retry)
	c.Extract.Merge(&overlay.Extract)
	c.Classify.Merge(&overlay.Classify)
	c.Report.Merge(&overlay.Report)
	c.Storage.Merge(&overlay.Storage)
	c.Agent.Merge(&overlay.Agent)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Database.Finalize(databaseEnv, DefaultDatabasePath); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Retry.Finalize(retryEnv); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if err := c.Extract.Finalize(extractEnv); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if err := c.Classify.Finalize(classifyEnv); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if err := c.Report.Finalize(reportEnv); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Agent.Finalize(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.InputDir == "" {
		c.InputDir = "input"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDossierInputDir); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv(EnvDossierVersion); v != "" {
		c.Version = v
	}
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvDossierEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
