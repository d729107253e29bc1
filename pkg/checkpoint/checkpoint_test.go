package checkpoint_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/dossier/pkg/checkpoint"
	"github.com/JaimeStill/dossier/pkg/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := database.Config{
		Driver: database.DriverSqlite,
		Path:   filepath.Join(t.TempDir(), "checkpoints.db"),
	}
	if err := cfg.Finalize(nil, cfg.Path); err != nil {
		t.Fatalf("finalize database config: %v", err)
	}

	db, err := database.Open(context.Background(), &cfg, testLogger())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func stores(t *testing.T) map[string]checkpoint.Store {
	t.Helper()

	sqlite, err := checkpoint.New(openTestDB(t), database.DriverSqlite, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return map[string]checkpoint.Store{
		"sqlite": sqlite,
		"memory": checkpoint.NewMemoryStore(),
	}
}

func TestLoadNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, checkpoint.ErrNotFound) {
				t.Errorf("Load() = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSaveAppendsRevisions(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saves := []struct {
				state     string
				nextStage string
			}{
				{`{"input_dir":"docs"}`, "extract"},
				{`{"input_dir":"docs","messages":["extracted"]}`, "classify"},
				{`{"input_dir":"docs","messages":["extracted","classified"]}`, "report"},
			}
			for _, save := range saves {
				if err := store.Save(ctx, "t1", json.RawMessage(save.state), save.nextStage, nil); err != nil {
					t.Fatalf("Save() error: %v", err)
				}
			}

			rec, err := store.Load(ctx, "t1")
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if rec.Revision != 3 {
				t.Errorf("revision = %d, want 3", rec.Revision)
			}
			if rec.NextStage != "report" {
				t.Errorf("next stage = %q, want report", rec.NextStage)
			}
			if string(rec.State) != saves[2].state {
				t.Errorf("state = %s, want latest revision", rec.State)
			}
			if rec.Interrupt != nil {
				t.Errorf("interrupt = %s, want nil", rec.Interrupt)
			}
		})
	}
}

func TestSavePersistsInterrupt(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			interrupt := json.RawMessage(`{"message":"2 document(s) require manual classification"}`)

			if err := store.Save(ctx, "t2", json.RawMessage(`{}`), "review", interrupt); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			rec, err := store.Load(ctx, "t2")
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if string(rec.Interrupt) != string(interrupt) {
				t.Errorf("interrupt = %s, want %s", rec.Interrupt, interrupt)
			}
		})
	}
}

func TestListPending(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// b advanced past review, only a and c still pend
			if err := store.Save(ctx, "a", json.RawMessage(`{}`), "review", json.RawMessage(`{"thread_id":"a"}`)); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if err := store.Save(ctx, "b", json.RawMessage(`{}`), "review", json.RawMessage(`{"thread_id":"b"}`)); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if err := store.Save(ctx, "b", json.RawMessage(`{}`), "report", nil); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if err := store.Save(ctx, "c", json.RawMessage(`{}`), "review", json.RawMessage(`{"thread_id":"c"}`)); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			pending, err := store.ListPending(ctx, "review")
			if err != nil {
				t.Fatalf("ListPending() error: %v", err)
			}
			if len(pending) != 2 {
				t.Fatalf("pending = %d, want 2", len(pending))
			}
			if pending[0].ThreadID != "a" || pending[1].ThreadID != "c" {
				t.Errorf("pending threads = [%s, %s], want [a, c]", pending[0].ThreadID, pending[1].ThreadID)
			}
		})
	}
}
