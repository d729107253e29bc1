// Package report renders a completed run's classification results into a
// Markdown report file, records the artifact in a registry, and optionally
// publishes it to blob storage.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaimeStill/dossier/pkg/storage"
	"github.com/JaimeStill/dossier/workflow"
)

// System generates report artifacts from workflow state.
type System interface {
	// Generate renders and writes the report for a run's final state,
	// returning the path of the written file.
	Generate(ctx context.Context, threadID string, state *workflow.State) (string, error)
}

type generator struct {
	cfg      *Config
	registry *Registry
	store    storage.System
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a report generator. registry and store may be nil, which
// disables registration and blob publication respectively.
func New(cfg *Config, registry *Registry, store storage.System, logger *slog.Logger) System {
	return &generator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		logger:   logger.With("system", "report"),
		now:      time.Now,
	}
}

func (g *generator) Generate(ctx context.Context, threadID string, state *workflow.State) (string, error) {
	generatedAt := g.now()

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", g.cfg.OutputDir, err)
	}

	fileName := fmt.Sprintf("report_%s.md", generatedAt.Format("20060102_150405"))
	path := filepath.Join(g.cfg.OutputDir, fileName)

	content := renderMarkdown(state, generatedAt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	g.logger.Info("report generated",
		"path", path,
		"thread_id", threadID,
		"documents", len(state.ClassifiedDocuments),
	)

	if g.registry != nil {
		rec := Record{
			FileName:      fileName,
			OwnerID:       state.OwnerID,
			ThreadID:      threadID,
			DocumentCount: len(state.ClassifiedDocuments),
			Summary:       state.ClassificationSummary,
		}
		if _, err := g.registry.Register(ctx, rec); err != nil {
			// The report exists on disk either way; registry drift is
			// reconciled on the next listing.
			g.logger.Warn("report registration failed", "filename", fileName, "error", err)
		}
	}

	if g.store != nil {
		key := fmt.Sprintf("%s/%s", threadID, fileName)
		if err := g.store.Publish(ctx, key, strings.NewReader(content), "text/markdown"); err != nil {
			g.logger.Warn("report publication failed", "key", key, "error", err)
		}
	}

	return path, nil
}
