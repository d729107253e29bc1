package workflow

import "slices"

// CategoryUnknown is the distinguished category for documents the classifier
// could not place. Its presence after classification routes the run through
// human review.
const CategoryUnknown = "Unknown Relevance"

// Metadata keys stamped onto ExtractedDocument.Metadata by the extract stage.
const (
	MetaContentHash = "content_hash"
	MetaFromCache   = "from_cache"
	MetaSizeBytes   = "size_bytes"
)

// ExtractedDocument holds the content pulled from a single source file.
// Created once by the extract stage and never mutated afterward, except
// for FilePath and FileName patched in when served from cache.
type ExtractedDocument struct {
	FilePath    string         `json:"file_path"`
	FileName    string         `json:"file_name"`
	PageCount   int            `json:"page_count"`
	RawText     string         `json:"raw_text"`
	Summary     string         `json:"summary"`
	KeyEntities []string       `json:"key_entities"`
	Metadata    map[string]any `json:"metadata"`
}

// ContentHash returns the content hash recorded in Metadata, if any.
func (d *ExtractedDocument) ContentHash() string {
	if h, ok := d.Metadata[MetaContentHash].(string); ok {
		return h
	}
	return ""
}

// ClassifiedDocument wraps an ExtractedDocument with its category assignment.
// HumanReviewed and OriginalCategory are audit fields set by the review stage
// when a human revises the automatic classification.
type ClassifiedDocument struct {
	Document         ExtractedDocument `json:"document"`
	Category         string            `json:"category"`
	Confidence       float64           `json:"confidence"`
	SubCategories    []string          `json:"sub_categories,omitempty"`
	Rationale        string            `json:"rationale"`
	HumanReviewed    bool              `json:"human_reviewed"`
	OriginalCategory string            `json:"original_category,omitempty"`
}

// CategorySummary aggregates classification results for one category.
type CategorySummary struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// State is the single mutable record threaded through all stages of a run.
// Field merge rules are defined by ApplyStageOutput: document and error
// lists are append-only; classification and report fields replace on write.
type State struct {
	InputDir      string `json:"input_dir"`
	DocumentLimit int    `json:"document_limit,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
	UseCache      bool   `json:"use_cache"`

	ExtractedDocuments []ExtractedDocument `json:"extracted_documents"`
	ExtractionErrors   []Error             `json:"extraction_errors"`

	ClassifiedDocuments   []ClassifiedDocument       `json:"classified_documents"`
	ClassificationSummary map[string]CategorySummary `json:"classification_summary"`

	ReportPath      string `json:"report_path"`
	ReportGenerated bool   `json:"report_generated"`

	Errors   []Error  `json:"workflow_errors"`
	Messages []string `json:"messages"`
}

// NewState creates the initial state for a fresh run.
func NewState(inputDir string, ownerID string, useCache bool, documentLimit int) *State {
	return &State{
		InputDir:              inputDir,
		DocumentLimit:         documentLimit,
		OwnerID:               ownerID,
		UseCache:              useCache,
		ExtractedDocuments:    []ExtractedDocument{},
		ExtractionErrors:      []Error{},
		ClassifiedDocuments:   []ClassifiedDocument{},
		ClassificationSummary: map[string]CategorySummary{},
		Errors:                []Error{},
		Messages:              []string{},
	}
}

// AllErrors returns workflow and extraction errors combined.
func (s *State) AllErrors() []Error {
	all := make([]Error, 0, len(s.Errors)+len(s.ExtractionErrors))
	all = append(all, s.Errors...)
	all = append(all, s.ExtractionErrors...)
	return all
}

// HasCriticalErrors reports whether any accumulated error is critical.
func (s *State) HasCriticalErrors() bool {
	return slices.ContainsFunc(s.AllErrors(), func(e Error) bool {
		return e.Severity == SeverityCritical
	})
}

// UnknownDocuments returns the classified documents still categorized as
// CategoryUnknown, in their stable classification order.
func (s *State) UnknownDocuments() []ClassifiedDocument {
	var unknown []ClassifiedDocument
	for _, doc := range s.ClassifiedDocuments {
		if doc.Category == CategoryUnknown {
			unknown = append(unknown, doc)
		}
	}
	return unknown
}

// Summarize recomputes the per-category summary (count and mean confidence)
// from a classified document list.
func Summarize(docs []ClassifiedDocument) map[string]CategorySummary {
	totals := make(map[string]float64)
	counts := make(map[string]int)

	for _, doc := range docs {
		counts[doc.Category]++
		totals[doc.Category] += doc.Confidence
	}

	summary := make(map[string]CategorySummary, len(counts))
	for category, count := range counts {
		summary[category] = CategorySummary{
			Count:         count,
			AvgConfidence: totals[category] / float64(count),
		}
	}
	return summary
}
