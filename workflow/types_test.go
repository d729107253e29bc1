package workflow_test

import (
	"testing"

	"github.com/JaimeStill/dossier/workflow"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		docs []workflow.ClassifiedDocument
		want map[string]workflow.CategorySummary
	}{
		{
			"no documents",
			nil,
			map[string]workflow.CategorySummary{},
		},
		{
			"single category",
			[]workflow.ClassifiedDocument{
				{Category: "Bank Statement", Confidence: 0.8},
				{Category: "Bank Statement", Confidence: 0.6},
			},
			map[string]workflow.CategorySummary{
				"Bank Statement": {Count: 2, AvgConfidence: 0.7},
			},
		},
		{
			"mixed categories",
			[]workflow.ClassifiedDocument{
				{Category: "Credit Report", Confidence: 0.9},
				{Category: workflow.CategoryUnknown, Confidence: 0.2},
				{Category: "Credit Report", Confidence: 0.7},
			},
			map[string]workflow.CategorySummary{
				"Credit Report":          {Count: 2, AvgConfidence: 0.8},
				workflow.CategoryUnknown: {Count: 1, AvgConfidence: 0.2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workflow.Summarize(tt.docs)
			if len(got) != len(tt.want) {
				t.Fatalf("Summarize() returned %d categories, want %d", len(got), len(tt.want))
			}
			for category, want := range tt.want {
				info, ok := got[category]
				if !ok {
					t.Fatalf("Summarize() missing category %q", category)
				}
				if info.Count != want.Count {
					t.Errorf("%s count = %d, want %d", category, info.Count, want.Count)
				}
				if diff := info.AvgConfidence - want.AvgConfidence; diff > 1e-9 || diff < -1e-9 {
					t.Errorf("%s avg confidence = %v, want %v", category, info.AvgConfidence, want.AvgConfidence)
				}
			}
		})
	}
}

func TestUnknownDocuments(t *testing.T) {
	state := &workflow.State{
		ClassifiedDocuments: []workflow.ClassifiedDocument{
			{Document: workflow.ExtractedDocument{FileName: "a.pdf"}, Category: "Gift Letter"},
			{Document: workflow.ExtractedDocument{FileName: "b.pdf"}, Category: workflow.CategoryUnknown},
			{Document: workflow.ExtractedDocument{FileName: "c.pdf"}, Category: workflow.CategoryUnknown},
		},
	}

	unknown := state.UnknownDocuments()
	if len(unknown) != 2 {
		t.Fatalf("UnknownDocuments() returned %d documents, want 2", len(unknown))
	}
	if unknown[0].Document.FileName != "b.pdf" || unknown[1].Document.FileName != "c.pdf" {
		t.Errorf("UnknownDocuments() order = [%s, %s], want [b.pdf, c.pdf]",
			unknown[0].Document.FileName, unknown[1].Document.FileName)
	}
}

func TestHasCriticalErrors(t *testing.T) {
	tests := []struct {
		name             string
		errors           []workflow.Error
		extractionErrors []workflow.Error
		want             bool
	}{
		{
			"no errors",
			nil,
			nil,
			false,
		},
		{
			"warnings only",
			[]workflow.Error{{Severity: workflow.SeverityWarning}},
			[]workflow.Error{{Severity: workflow.SeverityError}},
			false,
		},
		{
			"critical workflow error",
			[]workflow.Error{{Severity: workflow.SeverityCritical}},
			nil,
			true,
		},
		{
			"critical extraction error",
			nil,
			[]workflow.Error{{Severity: workflow.SeverityCritical}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &workflow.State{
				Errors:           tt.errors,
				ExtractionErrors: tt.extractionErrors,
			}
			if got := state.HasCriticalErrors(); got != tt.want {
				t.Errorf("HasCriticalErrors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentHash(t *testing.T) {
	doc := &workflow.ExtractedDocument{
		Metadata: map[string]any{workflow.MetaContentHash: "abc123"},
	}
	if got := doc.ContentHash(); got != "abc123" {
		t.Errorf("ContentHash() = %q, want %q", got, "abc123")
	}

	empty := &workflow.ExtractedDocument{}
	if got := empty.ContentHash(); got != "" {
		t.Errorf("ContentHash() on empty metadata = %q, want empty", got)
	}
}
