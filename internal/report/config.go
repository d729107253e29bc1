package report

import (
	"fmt"
	"os"
)

// Config holds report generation parameters.
type Config struct {
	// OutputDir is the directory report files are written to.
	OutputDir string `toml:"output_dir"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	OutputDir string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.OutputDir != "" {
		c.OutputDir = overlay.OutputDir
	}
}

func (c *Config) loadDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output/reports"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.OutputDir != "" {
		if v := os.Getenv(env.OutputDir); v != "" {
			c.OutputDir = v
		}
	}
}

func (c *Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir required")
	}
	return nil
}
