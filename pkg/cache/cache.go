// Package cache provides content-addressed memoization of per-document
// extraction and classification results. Entries are keyed by the SHA-256
// digest of the source file's bytes, so identical content is never
// reprocessed regardless of filename or path. Extraction and classification
// payloads are stored independently under the same key.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one cached document keyed by content hash. Either payload may be
// absent: classification depends on extraction but the two are fetched and
// stored separately.
type Entry struct {
	ContentHash    string          `json:"content_hash"`
	FileName       string          `json:"file_name"`
	Extraction     json.RawMessage `json:"extraction,omitempty"`
	Classification json.RawMessage `json:"classification,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessed   time.Time       `json:"last_accessed"`
}

// Stats summarizes cache contents.
type Stats struct {
	Entries         int   `json:"entries"`
	Extractions     int   `json:"extractions"`
	Classifications int   `json:"classifications"`
	SizeBytes       int64 `json:"size_bytes"`
}

// Store memoizes per-document results keyed by content hash. Implementations
// must be safe for concurrent use across runs. No eviction policy is
// required; retention is unbounded.
type Store interface {
	// GetExtraction returns the cached extraction payload for hash, but only
	// when the classification payload is also present; a document is treated
	// as fully served from cache only when both exist. Returns ErrNotFound
	// otherwise. A hit refreshes the entry's last-accessed timestamp.
	GetExtraction(ctx context.Context, hash string) (json.RawMessage, error)
	// GetClassification returns the cached classification payload for hash,
	// or ErrNotFound. A hit refreshes the entry's last-accessed timestamp.
	GetClassification(ctx context.Context, hash string) (json.RawMessage, error)
	// PutExtraction upserts the extraction payload for hash.
	PutExtraction(ctx context.Context, hash, fileName string, payload json.RawMessage) error
	// PutClassification upserts the classification payload for hash.
	PutClassification(ctx context.Context, hash string, payload json.RawMessage) error
	// Stats reports entry and payload counts.
	Stats(ctx context.Context) (*Stats, error)
	// Clear removes all entries.
	Clear(ctx context.Context) error
}
