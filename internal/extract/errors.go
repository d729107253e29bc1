// Package extract implements the content extraction collaborator: it reads
// a source file, pulls text and page structure, and derives a summary and
// key entities for downstream classification.
package extract

import "errors"

// Sentinel errors for extraction operations.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrFileTooLarge      = errors.New("document exceeds size limit")
)
