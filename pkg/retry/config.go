package retry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds retry policy parameters in their serialized form.
type Config struct {
	MaxAttempts     int     `toml:"max_attempts"`
	InitialInterval string  `toml:"initial_interval"`
	BackoffFactor   float64 `toml:"backoff_factor"`
	MaxInterval     string  `toml:"max_interval"`
	Jitter          *bool   `toml:"jitter"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxAttempts     string
	InitialInterval string
	BackoffFactor   string
	MaxInterval     string
}

// Policy converts the finalized config to an executable Policy.
func (c *Config) Policy() Policy {
	initial, _ := time.ParseDuration(c.InitialInterval)
	maxInterval, _ := time.ParseDuration(c.MaxInterval)
	jitter := c.Jitter == nil || *c.Jitter

	return Policy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: initial,
		BackoffFactor:   c.BackoffFactor,
		MaxInterval:     maxInterval,
		Jitter:          jitter,
	}
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
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.InitialInterval != "" {
		c.InitialInterval = overlay.InitialInterval
	}
	if overlay.BackoffFactor != 0 {
		c.BackoffFactor = overlay.BackoffFactor
	}
	if overlay.MaxInterval != "" {
		c.MaxInterval = overlay.MaxInterval
	}
	if overlay.Jitter != nil {
		c.Jitter = overlay.Jitter
	}
}

func (c *Config) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval == "" {
		c.InitialInterval = "1s"
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2.0
	}
	if c.MaxInterval == "" {
		c.MaxInterval = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
	if env.InitialInterval != "" {
		if v := os.Getenv(env.InitialInterval); v != "" {
			c.InitialInterval = v
		}
	}
	if env.BackoffFactor != "" {
		if v := os.Getenv(env.BackoffFactor); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.BackoffFactor = f
			}
		}
	}
	if env.MaxInterval != "" {
		if v := os.Getenv(env.MaxInterval); v != "" {
			c.MaxInterval = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.InitialInterval); err != nil {
		return fmt.Errorf("invalid initial_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxInterval); err != nil {
		return fmt.Errorf("invalid max_interval: %w", err)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be at least 1")
	}
	return nil
}
