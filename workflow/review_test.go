package workflow_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/dossier/workflow"
)

var reviewCategories = []string{"Tax Return", "Bank Statement", workflow.CategoryUnknown}

func unknownDoc(name string) workflow.ClassifiedDocument {
	return workflow.ClassifiedDocument{
		Document:   workflow.ExtractedDocument{FileName: name, PageCount: 3},
		Category:   workflow.CategoryUnknown,
		Confidence: 0.2,
		Rationale:  "no confident match",
	}
}

func TestNewReviewPrompt(t *testing.T) {
	unknown := []workflow.ClassifiedDocument{unknownDoc("a.pdf"), unknownDoc("b.pdf")}

	prompt := workflow.NewReviewPrompt("thread-1", reviewCategories, unknown)

	if prompt.ThreadID != "thread-1" {
		t.Errorf("ThreadID = %q, want thread-1", prompt.ThreadID)
	}
	if len(prompt.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(prompt.Documents))
	}
	if slices.Contains(prompt.Categories, workflow.CategoryUnknown) {
		t.Error("prompt categories include the unknown category")
	}
	if !slices.Contains(prompt.Categories, "Tax Return") {
		t.Error("prompt categories missing a valid category")
	}
	if !strings.Contains(prompt.Message, "2 document(s)") {
		t.Errorf("message = %q, want document count", prompt.Message)
	}
}

func TestNewReviewPromptTruncation(t *testing.T) {
	doc := unknownDoc("long.pdf")
	doc.Document.Summary = strings.Repeat("x", 500)
	doc.Document.KeyEntities = make([]string, 20)

	prompt := workflow.NewReviewPrompt("t", reviewCategories, []workflow.ClassifiedDocument{doc})

	if len(prompt.Documents[0].Summary) > 310 {
		t.Errorf("summary not truncated: %d chars", len(prompt.Documents[0].Summary))
	}
	if !strings.HasSuffix(prompt.Documents[0].Summary, "...") {
		t.Error("truncated summary missing ellipsis")
	}
	if len(prompt.Documents[0].KeyEntities) != 8 {
		t.Errorf("entities = %d, want 8", len(prompt.Documents[0].KeyEntities))
	}
}

func TestApplyDecisions(t *testing.T) {
	docs := []workflow.ClassifiedDocument{
		unknownDoc("a.pdf"),
		unknownDoc("b.pdf"),
		unknownDoc("c.pdf"),
		{
			Document:   workflow.ExtractedDocument{FileName: "d.pdf"},
			Category:   "Bank Statement",
			Confidence: 0.9,
		},
	}
	decisions := map[string]string{
		"a.pdf": "Tax Return",
		"b.pdf": workflow.DecisionConfirmUnknown,
		"c.pdf": workflow.DecisionSkip,
	}

	updated, reclassified := workflow.ApplyDecisions(docs, decisions, reviewCategories)

	if reclassified != 1 {
		t.Errorf("reclassified = %d, want 1", reclassified)
	}
	if len(updated) != 4 {
		t.Fatalf("documents = %d, want 4", len(updated))
	}

	a := updated[0]
	if a.Category != "Tax Return" || !a.HumanReviewed || a.Confidence != 1.0 {
		t.Errorf("a.pdf = (%q, %v, %v), want reclassified to Tax Return", a.Category, a.HumanReviewed, a.Confidence)
	}
	if a.OriginalCategory != workflow.CategoryUnknown {
		t.Errorf("a.pdf original category = %q, want %q", a.OriginalCategory, workflow.CategoryUnknown)
	}

	b := updated[1]
	if b.Category != workflow.CategoryUnknown || !b.HumanReviewed || b.Confidence != 1.0 {
		t.Errorf("b.pdf = (%q, %v, %v), want confirmed unknown", b.Category, b.HumanReviewed, b.Confidence)
	}

	c := updated[2]
	if c.Category != workflow.CategoryUnknown || c.HumanReviewed || c.Confidence != 0.2 {
		t.Errorf("c.pdf = (%q, %v, %v), want untouched", c.Category, c.HumanReviewed, c.Confidence)
	}

	d := updated[3]
	if d.Category != "Bank Statement" || d.HumanReviewed {
		t.Errorf("d.pdf modified by review: (%q, %v)", d.Category, d.HumanReviewed)
	}
}

func TestApplyDecisionsUnrecognized(t *testing.T) {
	tests := []struct {
		name     string
		decision map[string]string
	}{
		{"missing entry", map[string]string{}},
		{"invalid category", map[string]string{"a.pdf": "Not A Category"}},
		{"unknown category name", map[string]string{"a.pdf": workflow.CategoryUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, reclassified := workflow.ApplyDecisions(
				[]workflow.ClassifiedDocument{unknownDoc("a.pdf")}, tt.decision, reviewCategories,
			)
			if reclassified != 0 {
				t.Errorf("reclassified = %d, want 0", reclassified)
			}
			if updated[0].HumanReviewed || updated[0].Category != workflow.CategoryUnknown {
				t.Errorf("document modified: (%q, %v)", updated[0].Category, updated[0].HumanReviewed)
			}
		})
	}
}
