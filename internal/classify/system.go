// Package classify implements the classification collaborator: it assigns a
// category, confidence, and rationale to an extracted document against a
// configured category vocabulary.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/dossier/internal/prompts"
	"github.com/JaimeStill/dossier/pkg/formatting"
	"github.com/JaimeStill/dossier/workflow"
)

// System classifies a single extracted document.
type System interface {
	Classify(ctx context.Context, doc workflow.ExtractedDocument) (*workflow.ClassifiedDocument, error)
}

type classificationResponse struct {
	Category      string   `json:"category"`
	Confidence    float64  `json:"confidence"`
	SubCategories []string `json:"sub_categories"`
	Reasoning     string   `json:"reasoning"`
}

type classifier struct {
	cfg    *Config
	agent  *gaconfig.AgentConfig
	logger *slog.Logger
}

// New creates the default classifier. agentCfg may be nil, in which case
// every document is categorized CategoryUnknown at zero confidence so the
// run routes through human review.
func New(cfg *Config, agentCfg *gaconfig.AgentConfig, logger *slog.Logger) System {
	return &classifier{
		cfg:    cfg,
		agent:  agentCfg,
		logger: logger.With("system", "classify"),
	}
}

func (c *classifier) Classify(ctx context.Context, doc workflow.ExtractedDocument) (*workflow.ClassifiedDocument, error) {
	if c.agent == nil {
		return &workflow.ClassifiedDocument{
			Document:  doc,
			Category:  workflow.CategoryUnknown,
			Rationale: "no classifier model configured",
		}, nil
	}

	sample := doc.RawText
	if len(sample) > c.cfg.SampleChars {
		sample = sample[:c.cfg.SampleChars]
	}

	a, err := agent.New(c.agent)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompts.Classification(c.cfg.Categories, doc, sample))
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", doc.FileName, err)
	}

	parsed, err := formatting.Parse[classificationResponse](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", doc.FileName, err)
	}

	// out-of-vocabulary responses fall back to the unknown category,
	// which routes the document into human review
	category := parsed.Category
	if !slices.Contains(c.cfg.Categories, category) {
		c.logger.Warn(
			"classifier returned out-of-vocabulary category",
			"document", doc.FileName,
			"category", category,
		)
		category = workflow.CategoryUnknown
	}

	return &workflow.ClassifiedDocument{
		Document:      doc,
		Category:      category,
		Confidence:    min(max(parsed.Confidence, 0), 1),
		SubCategories: parsed.SubCategories,
		Rationale:     parsed.Reasoning,
	}, nil
}
