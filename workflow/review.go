package workflow

import (
	"fmt"
	"slices"
)

// Review decision values accepted alongside concrete category names.
const (
	DecisionSkip           = "skip"
	DecisionConfirmUnknown = "confirm_unknown"
)

// Rationale text recorded on documents revised during human review.
const (
	RationaleConfirmed    = "confirmed by human reviewer"
	RationaleReclassified = "manually reclassified"
)

const (
	reviewSummaryLimit  = 300
	reviewEntitiesLimit = 8
)

// ReviewRequest describes one document awaiting human categorization.
type ReviewRequest struct {
	FileName    string   `json:"file_name"`
	PageCount   int      `json:"page_count"`
	Summary     string   `json:"summary,omitempty"`
	KeyEntities []string `json:"key_entities,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
}

// ReviewPrompt is the payload published when the review stage suspends.
// It carries everything a presentation layer needs to collect decisions:
// the documents in question and the valid category set.
type ReviewPrompt struct {
	Message    string          `json:"message"`
	ThreadID   string          `json:"thread_id"`
	Categories []string        `json:"categories"`
	Documents  []ReviewRequest `json:"documents"`
}

// NewReviewPrompt builds the suspension payload for the given unknown
// documents. Summaries are truncated and entity lists capped to keep the
// payload presentable.
func NewReviewPrompt(threadID string, categories []string, unknown []ClassifiedDocument) *ReviewPrompt {
	valid := make([]string, 0, len(categories))
	for _, c := range categories {
		if c != CategoryUnknown {
			valid = append(valid, c)
		}
	}

	requests := make([]ReviewRequest, 0, len(unknown))
	for _, doc := range unknown {
		summary := doc.Document.Summary
		if len(summary) > reviewSummaryLimit {
			summary = summary[:reviewSummaryLimit] + "..."
		}

		entities := doc.Document.KeyEntities
		if len(entities) > reviewEntitiesLimit {
			entities = entities[:reviewEntitiesLimit]
		}

		requests = append(requests, ReviewRequest{
			FileName:    doc.Document.FileName,
			PageCount:   doc.Document.PageCount,
			Summary:     summary,
			KeyEntities: entities,
			Rationale:   doc.Rationale,
		})
	}

	return &ReviewPrompt{
		Message:    fmt.Sprintf("%d document(s) require manual classification", len(unknown)),
		ThreadID:   threadID,
		Categories: valid,
		Documents:  requests,
	}
}

// ApplyDecisions applies human review decisions to the classified document
// list and returns the revised list plus the number of reclassifications.
// For each document still categorized CategoryUnknown:
//
//   - DecisionSkip leaves the original classification untouched.
//   - DecisionConfirmUnknown replaces it with CategoryUnknown at confidence
//     1.0, marked human reviewed.
//   - A category name from categories replaces the category at confidence
//     1.0, marked human reviewed, preserving the pre-review category in
//     OriginalCategory.
//   - Any other value, including a missing entry, is treated as skip.
//
// Documents not categorized CategoryUnknown pass through unchanged.
func ApplyDecisions(docs []ClassifiedDocument, decisions map[string]string, categories []string) ([]ClassifiedDocument, int) {
	updated := make([]ClassifiedDocument, 0, len(docs))
	reclassified := 0

	for _, doc := range docs {
		if doc.Category != CategoryUnknown {
			updated = append(updated, doc)
			continue
		}

		decision := decisions[doc.Document.FileName]
		switch {
		case decision == DecisionConfirmUnknown:
			doc.Category = CategoryUnknown
			doc.Confidence = 1.0
			doc.Rationale = RationaleConfirmed
			doc.HumanReviewed = true
			doc.OriginalCategory = CategoryUnknown
		case decision != DecisionSkip && decision != CategoryUnknown && slices.Contains(categories, decision):
			doc.OriginalCategory = doc.Category
			doc.Category = decision
			doc.Confidence = 1.0
			doc.Rationale = RationaleReclassified
			doc.HumanReviewed = true
			reclassified++
		}
		// anything else, including an unrecognized decision, keeps the
		// original classification
		updated = append(updated, doc)
	}

	return updated, reclassified
}
