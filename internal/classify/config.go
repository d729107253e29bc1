package classify

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/dossier/workflow"
)

// DefaultCategories is the mortgage loan document vocabulary. The unknown
// category is always last and is the human review trigger.
var DefaultCategories = []string{
	"Loan Application",
	"Pre-Approval Letter",
	"Income Verification",
	"Employment Verification",
	"Bank Statement",
	"Credit Report",
	"Property Appraisal",
	"Title Report",
	"Homeowners Insurance",
	"Closing Disclosure",
	"Loan Estimate",
	"Deed/Mortgage Note",
	"HOA Documentation",
	"Gift Letter",
	"Identity Verification",
	"Property Tax Statement",
	"Divorce Decree/Legal Judgment",
	"Bankruptcy Documentation",
	workflow.CategoryUnknown,
}

// Config holds classification parameters.
type Config struct {
	// Categories is the valid category vocabulary, including the unknown
	// category.
	Categories []string `toml:"categories"`
	// SampleChars caps the document text sent to the model.
	SampleChars int `toml:"sample_chars"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Categories  string
	SampleChars string
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
	if len(overlay.Categories) > 0 {
		c.Categories = overlay.Categories
	}
	if overlay.SampleChars != 0 {
		c.SampleChars = overlay.SampleChars
	}
}

func (c *Config) loadDefaults() {
	if len(c.Categories) == 0 {
		c.Categories = slices.Clone(DefaultCategories)
	}
	if c.SampleChars == 0 {
		c.SampleChars = 2000
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Categories != "" {
		if v := os.Getenv(env.Categories); v != "" {
			categories := strings.Split(v, ",")
			for i := range categories {
				categories[i] = strings.TrimSpace(categories[i])
			}
			c.Categories = categories
		}
	}
	if env.SampleChars != "" {
		if v := os.Getenv(env.SampleChars); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SampleChars = n
			}
		}
	}
}

func (c *Config) validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("categories required")
	}
	if !slices.Contains(c.Categories, workflow.CategoryUnknown) {
		c.Categories = append(c.Categories, workflow.CategoryUnknown)
	}
	if c.SampleChars < 1 {
		return fmt.Errorf("sample_chars must be positive")
	}
	return nil
}
