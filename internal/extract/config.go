package extract

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/dossier/pkg/formatting"
)

// Config holds extraction parameters.
type Config struct {
	// MaxChars caps the text sent to the model for summarization.
	MaxChars int `toml:"max_chars"`
	// MaxFileSize caps the size of source files, e.g. "50MB". Empty
	// disables the limit.
	MaxFileSize string `toml:"max_file_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxChars    string
	MaxFileSize string
}

// MaxFileSizeBytes returns MaxFileSize as a byte count, or 0 when unset.
func (c *Config) MaxFileSizeBytes() int64 {
	if c.MaxFileSize == "" {
		return 0
	}
	n, _ := formatting.ParseBytes(c.MaxFileSize)
	return n
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
	if overlay.MaxChars != 0 {
		c.MaxChars = overlay.MaxChars
	}
	if overlay.MaxFileSize != "" {
		c.MaxFileSize = overlay.MaxFileSize
	}
}

func (c *Config) loadDefaults() {
	if c.MaxChars == 0 {
		c.MaxChars = 8000
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "50MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxChars != "" {
		if v := os.Getenv(env.MaxChars); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxChars = n
			}
		}
	}
	if env.MaxFileSize != "" {
		if v := os.Getenv(env.MaxFileSize); v != "" {
			c.MaxFileSize = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxChars < 1 {
		return fmt.Errorf("max_chars must be positive")
	}
	if c.MaxFileSize != "" {
		if _, err := formatting.ParseBytes(c.MaxFileSize); err != nil {
			return fmt.Errorf("invalid max_file_size: %w", err)
		}
	}
	return nil
}
