package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/dossier/pkg/retry"
	"github.com/JaimeStill/dossier/workflow"
)

// classify runs the classification stage over every extracted document,
// serving cached classifications where available and recording per-document
// failures without aborting the stage. Transient failures propagate so the
// retry policy re-invokes the whole stage.
func (e *Engine) classify(ctx context.Context, state *workflow.State) (workflow.StageResult, error) {
	var out workflow.StageOutput
	classified := make([]workflow.ClassifiedDocument, 0, len(state.ExtractedDocuments))
	cacheHits := 0

	for _, doc := range state.ExtractedDocuments {
		cd, hit, err := e.classifyOne(ctx, state, doc)
		if err != nil {
			if retry.IsTransient(err) {
				return workflow.StageResult{}, err
			}
			out.Errors = append(out.Errors,
				workflow.NewError(workflow.CodeClassificationFailed, err.Error(), workflow.SeverityError, string(workflow.StageClassify)).
					WithDocument(doc.FileName),
			)
			e.logger.Error("classification failed", "document", doc.FileName, "error", err)
			continue
		}

		if hit {
			cacheHits++
		}
		classified = append(classified, *cd)
	}

	unknown := 0
	for _, cd := range classified {
		if cd.Category == workflow.CategoryUnknown {
			unknown++
		}
	}

	e.logger.Info("classification complete",
		"classified", len(classified),
		"cache_hits", cacheHits,
		"unknown", unknown,
		"errors", len(out.Errors),
	)

	out.Classified = &workflow.Classification{
		Documents: classified,
		Summary:   workflow.Summarize(classified),
	}
	out.Messages = append(out.Messages, fmt.Sprintf(
		"Classified %d documents into %d categories", len(classified), len(out.Classified.Summary),
	))

	return workflow.Completed(out), nil
}

// classifyOne classifies a single document, consulting the cache by content
// hash first. Cache hits reattach the current extraction so file identity
// stays fresh even when the cached payload came from a different path.
func (e *Engine) classifyOne(ctx context.Context, state *workflow.State, doc workflow.ExtractedDocument) (*workflow.ClassifiedDocument, bool, error) {
	hash := doc.ContentHash()

	if state.UseCache && e.rt.Cache != nil && hash != "" {
		if raw, err := e.rt.Cache.GetClassification(ctx, hash); err == nil {
			var cd workflow.ClassifiedDocument
			if err := json.Unmarshal(raw, &cd); err == nil {
				cd.Document = doc
				e.logger.Info("cache hit", "document", doc.FileName, "category", cd.Category)
				return &cd, true, nil
			}
			e.logger.Warn("discarding undecodable cache entry", "hash", hash, "error", err)
		}
	}

	cd, err := e.rt.Classifier.Classify(ctx, doc)
	if err != nil {
		return nil, false, err
	}

	if state.UseCache && e.rt.Cache != nil && hash != "" {
		raw, err := json.Marshal(cd)
		if err == nil {
			err = e.rt.Cache.PutClassification(ctx, hash, raw)
		}
		if err != nil {
			e.logger.Warn("cache write failed", "document", doc.FileName, "error", err)
		}
	}

	return cd, false, nil
}
