package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JaimeStill/dossier/pkg/cache"
	"github.com/JaimeStill/dossier/pkg/retry"
	"github.com/JaimeStill/dossier/workflow"
)

// inputExtensions are the source file types picked up from the input
// directory, matched case-insensitively.
var inputExtensions = []string{".pdf", ".txt", ".md"}

// extract runs the extraction stage: enumerate input files, serve fully
// cached documents from the cache, extract the rest, and record per-document
// failures without aborting the stage. Transient failures propagate so the
// retry policy re-invokes the whole stage.
func (e *Engine) extract(ctx context.Context, state *workflow.State) (workflow.StageResult, error) {
	files, err := listInputFiles(state.InputDir)
	if err != nil {
		return workflow.StageResult{}, err
	}

	if len(files) == 0 {
		msg := fmt.Sprintf("no input files found in %s", state.InputDir)
		e.logger.Warn(msg)
		return workflow.Completed(workflow.StageOutput{
			ExtractionErrors: []workflow.Error{
				workflow.NewError(workflow.CodeNoInputFiles, msg, workflow.SeverityWarning, string(workflow.StageExtract)),
			},
			Messages: []string{msg},
		}), nil
	}

	if state.DocumentLimit > 0 && len(files) > state.DocumentLimit {
		e.logger.Info("applying document limit", "found", len(files), "limit", state.DocumentLimit)
		files = files[:state.DocumentLimit]
	}

	var out workflow.StageOutput
	cacheHits := 0

	for _, path := range files {
		name := filepath.Base(path)

		doc, hit, err := e.extractOne(ctx, state, path)
		if err != nil {
			if retry.IsTransient(err) {
				return workflow.StageResult{}, err
			}
			out.ExtractionErrors = append(out.ExtractionErrors,
				workflow.NewError(workflow.CodeExtractionFailed, err.Error(), workflow.SeverityError, string(workflow.StageExtract)).
					WithDocument(name),
			)
			e.logger.Error("extraction failed", "document", name, "error", err)
			continue
		}
		if doc == nil {
			out.ExtractionErrors = append(out.ExtractionErrors,
				workflow.NewError(workflow.CodeEmptyDocument, "no text content extracted", workflow.SeverityWarning, string(workflow.StageExtract)).
					WithDocument(name),
			)
			e.logger.Warn("empty document", "document", name)
			continue
		}

		if hit {
			cacheHits++
		}
		out.ExtractedDocuments = append(out.ExtractedDocuments, *doc)
	}

	e.logger.Info("extraction complete",
		"extracted", len(out.ExtractedDocuments),
		"cache_hits", cacheHits,
		"errors", len(out.ExtractionErrors),
	)
	out.Messages = append(out.Messages, fmt.Sprintf(
		"Extracted %d documents with %d errors", len(out.ExtractedDocuments), len(out.ExtractionErrors),
	))

	return workflow.Completed(out), nil
}

// extractOne produces the extracted document for one input file, serving it
// from the cache when the file's content has a complete cached entry. A nil
// document with a nil error means the file held no extractable text.
func (e *Engine) extractOne(ctx context.Context, state *workflow.State, path string) (*workflow.ExtractedDocument, bool, error) {
	hash, err := cache.HashFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}

	if state.UseCache && e.rt.Cache != nil {
		if raw, err := e.rt.Cache.GetExtraction(ctx, hash); err == nil {
			var doc workflow.ExtractedDocument
			if err := json.Unmarshal(raw, &doc); err == nil {
				// Cached content matched by hash; only identity fields
				// reflect the current file.
				doc.FilePath = path
				doc.FileName = filepath.Base(path)
				if doc.Metadata == nil {
					doc.Metadata = map[string]any{}
				}
				doc.Metadata[workflow.MetaContentHash] = hash
				doc.Metadata[workflow.MetaFromCache] = true
				e.logger.Info("cache hit", "document", doc.FileName)
				return &doc, true, nil
			}
			e.logger.Warn("discarding undecodable cache entry", "hash", hash, "error", err)
		}
	}

	doc, err := e.rt.Extractor.Extract(ctx, path)
	if err != nil {
		return nil, false, err
	}

	if strings.TrimSpace(doc.RawText) == "" {
		return nil, false, nil
	}

	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata[workflow.MetaContentHash] = hash
	doc.Metadata[workflow.MetaFromCache] = false

	if state.UseCache && e.rt.Cache != nil {
		raw, err := json.Marshal(doc)
		if err == nil {
			err = e.rt.Cache.PutExtraction(ctx, hash, doc.FileName, raw)
		}
		if err != nil {
			e.logger.Warn("cache write failed", "document", doc.FileName, "error", err)
		}
	}

	return doc, false, nil
}

// listInputFiles returns the processable files in dir, sorted by name for
// deterministic processing order.
func listInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(inputExtensions, ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	slices.Sort(files)
	return files, nil
}
