package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/dossier/pkg/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS document_cache (
	content_hash        TEXT PRIMARY KEY,
	file_name           TEXT,
	extraction_blob     TEXT,
	classification_blob TEXT,
	created_at          TEXT NOT NULL,
	last_accessed       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_cache_file_name ON document_cache(file_name);`

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSqlite creates a sqlite-backed cache store over db, initializing the
// schema when needed.
func NewSqlite(db *sql.DB, logger *slog.Logger) (Store, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &sqliteStore{
		db:     db,
		logger: logger.With("system", "cache"),
	}, nil
}

func (s *sqliteStore) GetExtraction(ctx context.Context, hash string) (json.RawMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT extraction_blob, classification_blob FROM document_cache WHERE content_hash = ?`,
		hash,
	)

	var extraction, classification sql.NullString
	if err := row.Scan(&extraction, &classification); err != nil {
		return nil, repository.MapError(err, ErrNotFound, nil)
	}

	// only fully cached documents are served: without a classification
	// payload the consumer must classify fresh anyway
	if !extraction.Valid || !classification.Valid {
		return nil, ErrNotFound
	}

	s.touch(ctx, hash)
	return json.RawMessage(extraction.String), nil
}

func (s *sqliteStore) GetClassification(ctx context.Context, hash string) (json.RawMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT classification_blob FROM document_cache WHERE content_hash = ?`,
		hash,
	)

	var classification sql.NullString
	if err := row.Scan(&classification); err != nil {
		return nil, repository.MapError(err, ErrNotFound, nil)
	}
	if !classification.Valid {
		return nil, ErrNotFound
	}

	s.touch(ctx, hash)
	return json.RawMessage(classification.String), nil
}

func (s *sqliteStore) PutExtraction(ctx context.Context, hash, fileName string, payload json.RawMessage) error {
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_cache (content_hash, file_name, extraction_blob, created_at, last_accessed)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
			file_name = excluded.file_name,
			extraction_blob = excluded.extraction_blob,
			last_accessed = excluded.last_accessed`,
		hash, fileName, string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("store extraction %s: %w", hash, err)
	}
	return nil
}

func (s *sqliteStore) PutClassification(ctx context.Context, hash string, payload json.RawMessage) error {
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_cache (content_hash, classification_blob, created_at, last_accessed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET
			classification_blob = excluded.classification_blob,
			last_accessed = excluded.last_accessed`,
		hash, string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("store classification %s: %w", hash, err)
	}
	return nil
}

func (s *sqliteStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(extraction_blob),
			COUNT(classification_blob),
			COALESCE(SUM(LENGTH(COALESCE(extraction_blob, '')) + LENGTH(COALESCE(classification_blob, ''))), 0)
		FROM document_cache`)

	var stats Stats
	if err := row.Scan(&stats.Entries, &stats.Extractions, &stats.Classifications, &stats.SizeBytes); err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	return &stats, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("cache cleared")
	return nil
}

// touch refreshes the last-accessed timestamp. Failures are logged, not
// surfaced: access tracking must never break a cache read.
func (s *sqliteStore) touch(ctx context.Context, hash string) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE document_cache SET last_accessed = ? WHERE content_hash = ?`,
		timestamp(), hash,
	)
	if err != nil {
		s.logger.Warn("cache access timestamp update failed", "hash", hash, "error", err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
