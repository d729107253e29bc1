package workflow

// Classification is the replace-on-write portion of a stage output. The
// classify and review stages write the full document list and summary
// wholesale so that human review can revise earlier automatic results.
type Classification struct {
	Documents []ClassifiedDocument
	Summary   map[string]CategorySummary
}

// ReportOutput is the replace-on-write report portion of a stage output.
type ReportOutput struct {
	Path      string
	Generated bool
}

// StageOutput is the delta a completed stage contributes to the state.
// Nil slices and nil pointers mean "no write" for their fields.
type StageOutput struct {
	ExtractedDocuments []ExtractedDocument
	ExtractionErrors   []Error
	Classified         *Classification
	Report             *ReportOutput
	Errors             []Error
	Messages           []string
}

// ApplyStageOutput merges a stage's output delta into the state and returns
// the updated state. Merge rules per field:
//
//   - ExtractedDocuments, ExtractionErrors, Errors, Messages: concatenate,
//     so partial progress across retries and resumes is never lost.
//   - Classified (documents + summary) and Report: replace on write.
func ApplyStageOutput(s State, out StageOutput) State {
	s.ExtractedDocuments = append(s.ExtractedDocuments, out.ExtractedDocuments...)
	s.ExtractionErrors = append(s.ExtractionErrors, out.ExtractionErrors...)
	s.Errors = append(s.Errors, out.Errors...)
	s.Messages = append(s.Messages, out.Messages...)

	if out.Classified != nil {
		s.ClassifiedDocuments = out.Classified.Documents
		s.ClassificationSummary = out.Classified.Summary
	}

	if out.Report != nil {
		s.ReportPath = out.Report.Path
		s.ReportGenerated = out.Report.Generated
	}

	return s
}
