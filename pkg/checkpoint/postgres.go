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

type postgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func newPostgresStore(db *sql.DB, logger *slog.Logger) *postgresStore {
	return &postgresStore{
		db:     db,
		logger: logger.With("system", "checkpoint"),
	}
}

func (s *postgresStore) Save(ctx context.Context, threadID string, state json.RawMessage, nextStage string, interrupt json.RawMessage) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int64, error) {
		var revision int64
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(revision), 0) + 1 FROM checkpoints WHERE thread_id = $1`,
			threadID,
		)
		if err := row.Scan(&revision); err != nil {
			return 0, err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (thread_id, revision, state_blob, next_stage, interrupt_blob, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			threadID, revision, string(state), nextStage, nullableBlob(interrupt), time.Now().UTC(),
		)
		return revision, err
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", threadID, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	s.logger.Debug("checkpoint saved", "thread_id", threadID, "next_stage", nextStage)
	return nil
}

func (s *postgresStore) Load(ctx context.Context, threadID string) (*Record, error) {
	q := `
		SELECT thread_id, revision, state_blob, next_stage, interrupt_blob, updated_at
		FROM checkpoints
		WHERE thread_id = $1
		ORDER BY revision DESC
		LIMIT 1`

	rec, err := repository.QueryOne(ctx, s.db, q, []any{threadID}, scanPgRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (s *postgresStore) ListPending(ctx context.Context, nextStage string) ([]Record, error) {
	q := `
		SELECT DISTINCT ON (thread_id)
			thread_id, revision, state_blob, next_stage, interrupt_blob, updated_at
		FROM checkpoints
		ORDER BY thread_id, revision DESC`

	records, err := repository.QueryMany(ctx, s.db, q, nil, scanPgRecord)
	if err != nil {
		return nil, err
	}

	pending := records[:0]
	for _, rec := range records {
		if rec.NextStage == nextStage {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

func scanPgRecord(s repository.Scanner) (Record, error) {
	var (
		rec       Record
		state     string
		interrupt sql.NullString
	)
	if err := s.Scan(&rec.ThreadID, &rec.Revision, &state, &rec.NextStage, &interrupt, &rec.UpdatedAt); err != nil {
		return rec, err
	}

	rec.State = json.RawMessage(state)
	if interrupt.Valid {
		rec.Interrupt = json.RawMessage(interrupt.String)
	}
	return rec, nil
}
