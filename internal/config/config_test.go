package config_test

import (
	"os"
	"testing"

	"github.com/JaimeStill/dossier/internal/config"
	"github.com/JaimeStill/dossier/pkg/database"
)

func writeConfig(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.InputDir != "input" {
		t.Errorf("InputDir = %q, want input", cfg.InputDir)
	}
	if cfg.Database.Driver != database.DriverSqlite {
		t.Errorf("Database.Driver = %q, want sqlite default", cfg.Database.Driver)
	}
	if cfg.Database.Path != config.DefaultDatabasePath {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, config.DefaultDatabasePath)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if len(cfg.Classify.Categories) == 0 {
		t.Error("Classify.Categories empty, want defaults")
	}
	if cfg.Agent.AgentConfig() != nil {
		t.Error("AgentConfig() non-nil, want nil while disabled")
	}
}

func TestLoadBaseConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, `
input_dir = "documents"
version = "1.2.0"

[extract]
max_chars = 4000

[report]
output_dir = "artifacts"
`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.InputDir != "documents" {
		t.Errorf("InputDir = %q, want documents", cfg.InputDir)
	}
	if cfg.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", cfg.Version)
	}
	if cfg.Extract.MaxChars != 4000 {
		t.Errorf("Extract.MaxChars = %d, want 4000", cfg.Extract.MaxChars)
	}
	if cfg.Report.OutputDir != "artifacts" {
		t.Errorf("Report.OutputDir = %q, want artifacts", cfg.Report.OutputDir)
	}
	// untouched sections keep their defaults
	if cfg.Extract.MaxFileSize != "50MB" {
		t.Errorf("Extract.MaxFileSize = %q, want default", cfg.Extract.MaxFileSize)
	}
}

func TestLoadOverlay(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDossierEnv, "staging")

	writeConfig(t, config.BaseConfigFile, `
input_dir = "documents"

[retry]
max_attempts = 5
`)
	writeConfig(t, "config.staging.toml", `
[retry]
max_attempts = 7
`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Retry.MaxAttempts != 7 {
		t.Errorf("Retry.MaxAttempts = %d, want overlay value 7", cfg.Retry.MaxAttempts)
	}
	if cfg.InputDir != "documents" {
		t.Errorf("InputDir = %q, want base value preserved", cfg.InputDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDossierInputDir, "/srv/input")
	t.Setenv("DOSSIER_DB_DRIVER", "postgres")
	t.Setenv("DOSSIER_DB_HOST", "db.internal")
	t.Setenv("DOSSIER_DB_NAME", "dossier")
	t.Setenv("DOSSIER_DB_USER", "svc")
	t.Setenv("DOSSIER_DB_PASSWORD", "secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.InputDir != "/srv/input" {
		t.Errorf("InputDir = %q, want env override", cfg.InputDir)
	}
	if cfg.Database.Driver != database.DriverPostgres {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, `
[extract]
max_file_size = "lots"
`)

	if _, err := config.Load(); err == nil {
		t.Error("Load() succeeded with invalid max_file_size")
	}
}

func TestAgentConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, `
[agent]
enabled = true
provider = "ollama"
base_url = "http://localhost:11434"
model = "llama3.2"
`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	ac := cfg.Agent.AgentConfig()
	if ac == nil {
		t.Fatal("AgentConfig() nil, want populated config while enabled")
	}
	if ac.Model == nil || ac.Model.Name != "llama3.2" {
		t.Errorf("Model = %+v, want llama3.2", ac.Model)
	}
}

func TestAgentEnabledRequiresModel(t *testing.T) {
	t.Chdir(t.TempDir())
	writeConfig(t, config.BaseConfigFile, `
[agent]
enabled = true
`)

	if _, err := config.Load(); err == nil {
		t.Error("Load() succeeded without a model for an enabled agent")
	}
}

func TestOverlayIgnoredWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvDossierEnv, "production")
	writeConfig(t, config.BaseConfigFile, `input_dir = "documents"`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.InputDir != "documents" {
		t.Errorf("InputDir = %q, want base value", cfg.InputDir)
	}
}
