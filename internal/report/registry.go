package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/dossier/pkg/repository"
	"github.com/JaimeStill/dossier/workflow"
)

// Registry sentinel errors.
var (
	ErrReportNotFound  = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already registered")
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS reports (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	filename       TEXT    NOT NULL UNIQUE,
	owner_id       TEXT,
	thread_id      TEXT,
	document_count INTEGER NOT NULL,
	summary_blob   TEXT,
	created_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports(owner_id);`

// Record is the registry metadata for one generated report file. Ownership
// lives here rather than in the filename so files can be renamed freely.
type Record struct {
	ID            int64                               `json:"id"`
	FileName      string                              `json:"filename"`
	OwnerID       string                              `json:"owner_id,omitempty"`
	ThreadID      string                              `json:"thread_id,omitempty"`
	DocumentCount int                                 `json:"document_count"`
	Summary       map[string]workflow.CategorySummary `json:"summary,omitempty"`
	CreatedAt     time.Time                           `json:"created_at"`
}

// Registry tracks generated reports in a sqlite table, recording ownership
// and classification metadata for each file.
type Registry struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRegistry initializes the report registry schema on db.
func NewRegistry(db *sql.DB, logger *slog.Logger) (*Registry, error) {
	if _, err := db.Exec(registrySchema); err != nil {
		return nil, fmt.Errorf("initialize report registry schema: %w", err)
	}
	return &Registry{
		db:     db,
		logger: logger.With("system", "reports"),
	}, nil
}

// Register records a generated report and returns its assigned ID.
func (r *Registry) Register(ctx context.Context, rec Record) (int64, error) {
	var summaryBlob any
	if len(rec.Summary) > 0 {
		data, err := json.Marshal(rec.Summary)
		if err != nil {
			return 0, fmt.Errorf("encode report summary: %w", err)
		}
		summaryBlob = string(data)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (filename, owner_id, thread_id, document_count, summary_blob, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.FileName, nullableText(rec.OwnerID), nullableText(rec.ThreadID),
		rec.DocumentCount, summaryBlob,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, repository.MapError(err, ErrReportNotFound, ErrDuplicateReport)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	r.logger.Info("report registered", "id", id, "filename", rec.FileName, "thread_id", rec.ThreadID)
	return id, nil
}

// List returns registered reports, newest first. A non-empty ownerID limits
// the result to that owner's reports plus unowned ones.
func (r *Registry) List(ctx context.Context, ownerID string) ([]Record, error) {
	q := `
		SELECT id, filename, owner_id, thread_id, document_count, summary_blob, created_at
		FROM reports
		ORDER BY created_at DESC`
	args := []any{}

	if ownerID != "" {
		q = `
		SELECT id, filename, owner_id, thread_id, document_count, summary_blob, created_at
		FROM reports
		WHERE owner_id = ? OR owner_id IS NULL
		ORDER BY created_at DESC`
		args = []any{ownerID}
	}

	return repository.QueryMany(ctx, r.db, q, args, scanRecord)
}

// Get returns the report with the given ID. A non-empty ownerID additionally
// requires that the report belongs to that owner.
func (r *Registry) Get(ctx context.Context, id int64, ownerID string) (*Record, error) {
	q := `
		SELECT id, filename, owner_id, thread_id, document_count, summary_blob, created_at
		FROM reports
		WHERE id = ?`

	rec, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrReportNotFound, ErrDuplicateReport)
	}
	if ownerID != "" && rec.OwnerID != "" && rec.OwnerID != ownerID {
		return nil, ErrReportNotFound
	}
	return &rec, nil
}

// Delete removes registry metadata by filename. The report file itself is
// left in place.
func (r *Registry) Delete(ctx context.Context, fileName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE filename = ?`, fileName)
	return err
}

func scanRecord(s repository.Scanner) (Record, error) {
	var (
		rec         Record
		owner       sql.NullString
		thread      sql.NullString
		summaryBlob sql.NullString
		createdAt   string
	)

	if err := s.Scan(&rec.ID, &rec.FileName, &owner, &thread, &rec.DocumentCount, &summaryBlob, &createdAt); err != nil {
		return rec, err
	}

	rec.OwnerID = owner.String
	rec.ThreadID = thread.String

	if summaryBlob.Valid && summaryBlob.String != "" {
		if err := json.Unmarshal([]byte(summaryBlob.String), &rec.Summary); err != nil {
			return rec, fmt.Errorf("decode report summary: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return rec, fmt.Errorf("parse report timestamp: %w", err)
	}
	rec.CreatedAt = ts

	return rec, nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
