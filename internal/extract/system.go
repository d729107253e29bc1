package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/dossier/internal/prompts"
	"github.com/JaimeStill/dossier/pkg/formatting"
	"github.com/JaimeStill/dossier/workflow"
)

// System extracts content from a single source file. Implementations return
// a document without cache metadata; the extract stage stamps the content
// hash and cache flags.
type System interface {
	Extract(ctx context.Context, path string) (*workflow.ExtractedDocument, error)
}

type extractionResponse struct {
	Summary  string   `json:"summary"`
	Entities []string `json:"entities"`
}

type extractor struct {
	cfg    *Config
	agent  *gaconfig.AgentConfig
	logger *slog.Logger
}

// New creates the default extractor. agentCfg may be nil, in which case the
// document summary falls back to a leading-text excerpt instead of a model
// inference.
func New(cfg *Config, agentCfg *gaconfig.AgentConfig, logger *slog.Logger) System {
	return &extractor{
		cfg:    cfg,
		agent:  agentCfg,
		logger: logger.With("system", "extract"),
	}
}

func (e *extractor) Extract(ctx context.Context, path string) (*workflow.ExtractedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if limit := e.cfg.MaxFileSizeBytes(); limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %s", ErrFileTooLarge, filepath.Base(path), formatting.FormatBytes(info.Size(), 1))
	}

	text, pageCount, err := readContent(path)
	if err != nil {
		return nil, err
	}

	doc := &workflow.ExtractedDocument{
		FilePath:  path,
		FileName:  filepath.Base(path),
		PageCount: pageCount,
		RawText:   text,
		Metadata: map[string]any{
			workflow.MetaSizeBytes: info.Size(),
		},
	}

	if strings.TrimSpace(text) == "" {
		return doc, nil
	}

	summary, entities, err := e.analyze(ctx, doc.FileName, text)
	if err != nil {
		return nil, err
	}
	doc.Summary = summary
	doc.KeyEntities = entities

	return doc, nil
}

// analyze derives the summary and key entities, via model inference when an
// agent is configured and a plain excerpt otherwise.
func (e *extractor) analyze(ctx context.Context, fileName, text string) (string, []string, error) {
	truncated := text
	if len(truncated) > e.cfg.MaxChars {
		truncated = truncated[:e.cfg.MaxChars] + "..."
	}

	if e.agent == nil {
		return excerpt(truncated), nil, nil
	}

	a, err := agent.New(e.agent)
	if err != nil {
		return "", nil, fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompts.Extraction(fileName, truncated))
	if err != nil {
		return "", nil, fmt.Errorf("analyze %s: %w", fileName, err)
	}

	parsed, err := formatting.Parse[extractionResponse](resp.Content())
	if err != nil {
		return "", nil, fmt.Errorf("analyze %s: %w", fileName, err)
	}

	return parsed.Summary, parsed.Entities, nil
}

const excerptLimit = 280

// excerpt returns the leading text of the document, cut at a word boundary.
func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= excerptLimit {
		return text
	}

	cut := text[:excerptLimit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
