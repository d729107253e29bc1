package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentEnabled      = "DOSSIER_AGENT_ENABLED"
	EnvAgentName         = "DOSSIER_AGENT_NAME"
	EnvAgentProviderName = "DOSSIER_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "DOSSIER_AGENT_BASE_URL"
	EnvAgentToken        = "DOSSIER_AGENT_TOKEN"
	EnvAgentModelName    = "DOSSIER_AGENT_MODEL_NAME"
)

// AgentConfig configures the language model shared by the extraction and
// classification systems. When disabled, both systems fall back to their
// model-free heuristics.
type AgentConfig struct {
	Enabled  bool   `toml:"enabled"`
	Name     string `toml:"name"`
	Provider string `toml:"provider"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`
	Token    string `toml:"token"`
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// AgentConfig converts the finalized config to a go-agents configuration,
// layered over the library defaults. Returns nil when the agent is disabled.
func (c *AgentConfig) AgentConfig() *gaconfig.AgentConfig {
	if !c.Enabled {
		return nil
	}

	options := map[string]any{}
	if c.Token != "" {
		options["token"] = c.Token
	}

	cfg := gaconfig.DefaultAgentConfig()
	cfg.Merge(&gaconfig.AgentConfig{
		Name: c.Name,
		Provider: &gaconfig.ProviderConfig{
			Name:    c.Provider,
			BaseURL: c.BaseURL,
			Options: options,
		},
		Model: &gaconfig.ModelConfig{
			Name: c.Model,
		},
	})

	return &cfg
}

func (c *AgentConfig) loadDefaults() {
	if c.Name == "" {
		c.Name = "dossier"
	}
	if c.Provider == "" {
		c.Provider = "ollama"
	}
}

func (c *AgentConfig) loadEnv() {
	if v := os.Getenv(EnvAgentEnabled); v != "" {
		c.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAgentToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model = v
	}
}

func (c *AgentConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Provider == "" {
		return fmt.Errorf("provider required")
	}
	if c.Model == "" {
		return fmt.Errorf("model required when agent is enabled")
	}
	return nil
}
