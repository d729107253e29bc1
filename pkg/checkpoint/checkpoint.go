// Package checkpoint provides durable persistence of workflow state keyed by
// thread id. Saves are append-style: each write records a new monotonically
// increasing revision and nothing is physically deleted, so a thread's full
// history remains available for audit. Reads always return the latest
// revision. Backends exist for embedded sqlite, PostgreSQL, and in-memory
// use in tests.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/dossier/pkg/database"
)

// Record is one persisted checkpoint: the serialized workflow state, the
// graph cursor (next stage to run), and, when the thread is suspended, the
// raw interrupt payload published by the suspending stage.
type Record struct {
	ThreadID  string          `json:"thread_id"`
	Revision  int64           `json:"revision"`
	State     json.RawMessage `json:"state"`
	NextStage string          `json:"next_stage"`
	Interrupt json.RawMessage `json:"interrupt,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists workflow checkpoints. Implementations must be safe for
// concurrent use by independent threads; writes to the same thread id are
// serialized by the caller (only one run per thread is ever active).
type Store interface {
	// Save appends a new revision for the thread. interrupt may be nil.
	Save(ctx context.Context, threadID string, state json.RawMessage, nextStage string, interrupt json.RawMessage) error
	// Load returns the latest revision for the thread, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*Record, error)
	// ListPending returns the latest revision of every thread whose cursor
	// currently sits at nextStage, ordered by thread id.
	ListPending(ctx context.Context, nextStage string) ([]Record, error)
}

// New creates a checkpoint store over db for the given driver, initializing
// the sqlite schema when needed. The postgres schema is managed by
// cmd/migrate.
func New(db *sql.DB, driver string, logger *slog.Logger) (Store, error) {
	switch driver {
	case database.DriverSqlite:
		return newSqliteStore(db, logger)
	case database.DriverPostgres:
		return newPostgresStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint driver: %q", driver)
	}
}
