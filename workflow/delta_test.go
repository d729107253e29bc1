package workflow_test

import (
	"testing"

	"github.com/JaimeStill/dossier/workflow"
)

func TestApplyStageOutputAppendsLists(t *testing.T) {
	state := workflow.State{
		ExtractedDocuments: []workflow.ExtractedDocument{{FileName: "a.pdf"}},
		ExtractionErrors:   []workflow.Error{{Code: workflow.CodeEmptyDocument}},
		Messages:           []string{"first"},
	}

	state = workflow.ApplyStageOutput(state, workflow.StageOutput{
		ExtractedDocuments: []workflow.ExtractedDocument{{FileName: "b.pdf"}},
		ExtractionErrors:   []workflow.Error{{Code: workflow.CodeExtractionFailed}},
		Errors:             []workflow.Error{{Code: workflow.CodeReportFailed}},
		Messages:           []string{"second"},
	})

	if len(state.ExtractedDocuments) != 2 {
		t.Errorf("extracted documents = %d, want 2", len(state.ExtractedDocuments))
	}
	if state.ExtractedDocuments[0].FileName != "a.pdf" || state.ExtractedDocuments[1].FileName != "b.pdf" {
		t.Error("extracted documents lost original entries or order")
	}
	if len(state.ExtractionErrors) != 2 {
		t.Errorf("extraction errors = %d, want 2", len(state.ExtractionErrors))
	}
	if len(state.Errors) != 1 {
		t.Errorf("workflow errors = %d, want 1", len(state.Errors))
	}
	if len(state.Messages) != 2 || state.Messages[1] != "second" {
		t.Errorf("messages = %v, want [first second]", state.Messages)
	}
}

func TestApplyStageOutputReplacesClassification(t *testing.T) {
	state := workflow.State{
		ClassifiedDocuments: []workflow.ClassifiedDocument{
			{Document: workflow.ExtractedDocument{FileName: "a.pdf"}, Category: workflow.CategoryUnknown},
		},
		ClassificationSummary: map[string]workflow.CategorySummary{
			workflow.CategoryUnknown: {Count: 1, AvgConfidence: 0.2},
		},
	}

	revised := []workflow.ClassifiedDocument{
		{Document: workflow.ExtractedDocument{FileName: "a.pdf"}, Category: "Tax Return"},
	}
	state = workflow.ApplyStageOutput(state, workflow.StageOutput{
		Classified: &workflow.Classification{
			Documents: revised,
			Summary:   workflow.Summarize(revised),
		},
	})

	if len(state.ClassifiedDocuments) != 1 {
		t.Fatalf("classified documents = %d, want 1", len(state.ClassifiedDocuments))
	}
	if state.ClassifiedDocuments[0].Category != "Tax Return" {
		t.Errorf("category = %q, want Tax Return", state.ClassifiedDocuments[0].Category)
	}
	if _, ok := state.ClassificationSummary[workflow.CategoryUnknown]; ok {
		t.Error("summary retained replaced category")
	}
}

func TestApplyStageOutputNilMeansNoWrite(t *testing.T) {
	state := workflow.State{
		ClassifiedDocuments: []workflow.ClassifiedDocument{{Category: "Gift Letter"}},
		ReportPath:          "output/reports/report.md",
		ReportGenerated:     true,
	}

	state = workflow.ApplyStageOutput(state, workflow.StageOutput{
		Messages: []string{"noop"},
	})

	if len(state.ClassifiedDocuments) != 1 {
		t.Error("nil Classified overwrote classification")
	}
	if !state.ReportGenerated || state.ReportPath != "output/reports/report.md" {
		t.Error("nil Report overwrote report fields")
	}
}

func TestApplyStageOutputReportReplace(t *testing.T) {
	state := workflow.State{}

	state = workflow.ApplyStageOutput(state, workflow.StageOutput{
		Report: &workflow.ReportOutput{Path: "output/reports/report.md", Generated: true},
	})

	if !state.ReportGenerated || state.ReportPath != "output/reports/report.md" {
		t.Errorf("report = (%q, %v), want (output/reports/report.md, true)", state.ReportPath, state.ReportGenerated)
	}

	state = workflow.ApplyStageOutput(state, workflow.StageOutput{
		Report: &workflow.ReportOutput{},
	})

	if state.ReportGenerated || state.ReportPath != "" {
		t.Error("report fields not replaced by later write")
	}
}
