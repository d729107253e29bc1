package checkpoint

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
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT    NOT NULL,
	revision   INTEGER NOT NULL,
	state_blob TEXT    NOT NULL,
	next_stage TEXT    NOT NULL,
	interrupt_blob TEXT,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (thread_id, revision)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_next_stage ON checkpoints(next_stage);`

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func newSqliteStore(db *sql.DB, logger *slog.Logger) (*sqliteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("initialize checkpoint schema: %w", err)
	}
	return &sqliteStore{
		db:     db,
		logger: logger.With("system", "checkpoint"),
	}, nil
}

func (s *sqliteStore) Save(ctx context.Context, threadID string, state json.RawMessage, nextStage string, interrupt json.RawMessage) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int64, error) {
		var revision int64
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(revision), 0) + 1 FROM checkpoints WHERE thread_id = ?`,
			threadID,
		)
		if err := row.Scan(&revision); err != nil {
			return 0, err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (thread_id, revision, state_blob, next_stage, interrupt_blob, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			threadID, revision, string(state), nextStage, nullableBlob(interrupt),
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		return revision, err
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", threadID, err)
	}

	s.logger.Debug("checkpoint saved", "thread_id", threadID, "next_stage", nextStage)
	return nil
}

func (s *sqliteStore) Load(ctx context.Context, threadID string) (*Record, error) {
	q := `
		SELECT thread_id, revision, state_blob, next_stage, interrupt_blob, updated_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY revision DESC
		LIMIT 1`

	rec, err := repository.QueryOne(ctx, s.db, q, []any{threadID}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (s *sqliteStore) ListPending(ctx context.Context, nextStage string) ([]Record, error) {
	q := `
		SELECT c.thread_id, c.revision, c.state_blob, c.next_stage, c.interrupt_blob, c.updated_at
		FROM checkpoints c
		JOIN (
			SELECT thread_id, MAX(revision) AS revision
			FROM checkpoints
			GROUP BY thread_id
		) latest ON c.thread_id = latest.thread_id AND c.revision = latest.revision
		WHERE c.next_stage = ?
		ORDER BY c.thread_id`

	return repository.QueryMany(ctx, s.db, q, []any{nextStage}, scanRecord)
}

func nullableBlob(blob json.RawMessage) any {
	if len(blob) == 0 {
		return nil
	}
	return string(blob)
}

func scanRecord(s repository.Scanner) (Record, error) {
	var (
		rec       Record
		state     string
		interrupt sql.NullString
		updatedAt string
	)
	if err := s.Scan(&rec.ThreadID, &rec.Revision, &state, &rec.NextStage, &interrupt, &updatedAt); err != nil {
		return rec, err
	}

	rec.State = json.RawMessage(state)
	if interrupt.Valid {
		rec.Interrupt = json.RawMessage(interrupt.String)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
