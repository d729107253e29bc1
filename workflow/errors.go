// Package workflow defines the foundational types for the Dossier document
// processing pipeline: the workflow state record, the stage graph, stage
// results, structured errors, and the human review protocol. The execution
// engine lives in internal/engine; this package holds the pure data model
// so that persistence and presentation layers can share it.
package workflow

import (
	"errors"
	"time"
)

// Severity categorizes a workflow error's impact on the run.
type Severity string

// Severity levels. A critical error halts the run after the current stage;
// warning and error never do.
const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Error codes produced by the built-in stages.
const (
	CodeNoInputFiles         = "NO_INPUT_FILES"
	CodeEmptyDocument        = "EMPTY_DOCUMENT"
	CodeExtractionFailed     = "EXTRACTION_FAILED"
	CodeClassificationFailed = "CLASSIFICATION_UNEXPECTED_ERROR"
	CodeReportPermission     = "REPORT_PERMISSION_DENIED"
	CodeReportFailed         = "REPORT_GENERATION_FAILED"
	CodeStageFailed          = "STAGE_FAILED"
	CodeRetriesExhausted     = "RETRIES_EXHAUSTED"
)

// Sentinel errors for workflow operations.
var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrNotSuspended   = errors.New("thread is not awaiting review")
	ErrThreadBusy     = errors.New("thread has an active run")
	ErrInvalidGraph   = errors.New("invalid stage graph")
)

// Error is a structured, non-fatal record of a failure during a run.
// Errors accumulate on the state; only Severity influences routing.
type Error struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Severity    Severity       `json:"severity"`
	Recoverable bool           `json:"recoverable"`
	Stage       string         `json:"stage"`
	Document    string         `json:"document,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewError builds an Error stamped with the current time.
func NewError(code, message string, severity Severity, stage string) Error {
	return Error{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Stage:     stage,
		Timestamp: time.Now(),
	}
}

// WithDocument attributes the error to a specific document.
func (e Error) WithDocument(name string) Error {
	e.Document = name
	return e
}

// WithDetails attaches free-form context to the error.
func (e Error) WithDetails(details map[string]any) Error {
	e.Details = details
	return e
}
