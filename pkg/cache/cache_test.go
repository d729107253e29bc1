package cache_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/dossier/pkg/cache"
	"github.com/JaimeStill/dossier/pkg/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := database.Config{
		Driver: database.DriverSqlite,
		Path:   filepath.Join(t.TempDir(), "cache.db"),
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

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	data := bytes.Repeat([]byte("dossier"), 20000) // spans multiple read chunks

	a := writeTempFile(t, "a.pdf", data)
	b := writeTempFile(t, "b.pdf", data)
	c := writeTempFile(t, "c.pdf", append(data, 'x'))

	hashA, err := cache.HashFile(a)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	hashB, err := cache.HashFile(b)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}
	hashC, err := cache.HashFile(c)
	if err != nil {
		t.Fatalf("HashFile() error: %v", err)
	}

	if hashA != hashB {
		t.Error("identical content under different names produced different hashes")
	}
	if hashA == hashC {
		t.Error("different content produced identical hashes")
	}
	if len(hashA) != 64 {
		t.Errorf("hash length = %d, want 64 hex characters", len(hashA))
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := cache.HashFile(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("HashFile() on missing file should error")
	}
}

func stores(t *testing.T) map[string]cache.Store {
	t.Helper()

	sqlite, err := cache.NewSqlite(openTestDB(t), testLogger())
	if err != nil {
		t.Fatalf("NewSqlite() error: %v", err)
	}

	return map[string]cache.Store{
		"sqlite": sqlite,
		"memory": cache.NewMemoryStore(),
	}
}

func TestStoreBothPayloadsRule(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			extraction := json.RawMessage(`{"file_name":"a.pdf","raw_text":"hello"}`)
			classification := json.RawMessage(`{"category":"Bank Statement"}`)

			if _, err := store.GetExtraction(ctx, "h1"); !errors.Is(err, cache.ErrNotFound) {
				t.Errorf("GetExtraction on empty cache = %v, want ErrNotFound", err)
			}

			if err := store.PutExtraction(ctx, "h1", "a.pdf", extraction); err != nil {
				t.Fatalf("PutExtraction() error: %v", err)
			}

			// extraction alone is not a complete entry
			if _, err := store.GetExtraction(ctx, "h1"); !errors.Is(err, cache.ErrNotFound) {
				t.Errorf("GetExtraction without classification = %v, want ErrNotFound", err)
			}

			if err := store.PutClassification(ctx, "h1", classification); err != nil {
				t.Fatalf("PutClassification() error: %v", err)
			}

			got, err := store.GetExtraction(ctx, "h1")
			if err != nil {
				t.Fatalf("GetExtraction() error: %v", err)
			}
			if !bytes.Equal(got, extraction) {
				t.Errorf("GetExtraction() = %s, want %s", got, extraction)
			}

			gotCls, err := store.GetClassification(ctx, "h1")
			if err != nil {
				t.Fatalf("GetClassification() error: %v", err)
			}
			if !bytes.Equal(gotCls, classification) {
				t.Errorf("GetClassification() = %s, want %s", gotCls, classification)
			}
		})
	}
}

func TestStoreClassificationIndependent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.PutClassification(ctx, "h2", json.RawMessage(`{"category":"Credit Report"}`)); err != nil {
				t.Fatalf("PutClassification() error: %v", err)
			}

			if _, err := store.GetClassification(ctx, "h2"); err != nil {
				t.Errorf("GetClassification() error: %v", err)
			}
			if _, err := store.GetExtraction(ctx, "h2"); !errors.Is(err, cache.ErrNotFound) {
				t.Errorf("GetExtraction without extraction payload = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreUpsert(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.PutExtraction(ctx, "h3", "a.pdf", json.RawMessage(`{"v":1}`)); err != nil {
				t.Fatalf("PutExtraction() error: %v", err)
			}
			if err := store.PutExtraction(ctx, "h3", "a.pdf", json.RawMessage(`{"v":2}`)); err != nil {
				t.Fatalf("PutExtraction() upsert error: %v", err)
			}
			if err := store.PutClassification(ctx, "h3", json.RawMessage(`{"c":1}`)); err != nil {
				t.Fatalf("PutClassification() error: %v", err)
			}

			got, err := store.GetExtraction(ctx, "h3")
			if err != nil {
				t.Fatalf("GetExtraction() error: %v", err)
			}
			if !bytes.Equal(got, json.RawMessage(`{"v":2}`)) {
				t.Errorf("GetExtraction() = %s, want latest payload", got)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error: %v", err)
			}
			if stats.Entries != 1 {
				t.Errorf("entries = %d, want 1 after upserts", stats.Entries)
			}
		})
	}
}

func TestStoreStatsAndClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.PutExtraction(ctx, "h4", "a.pdf", json.RawMessage(`{"a":1}`)); err != nil {
				t.Fatalf("PutExtraction() error: %v", err)
			}
			if err := store.PutClassification(ctx, "h4", json.RawMessage(`{"b":2}`)); err != nil {
				t.Fatalf("PutClassification() error: %v", err)
			}
			if err := store.PutExtraction(ctx, "h5", "b.pdf", json.RawMessage(`{"c":3}`)); err != nil {
				t.Fatalf("PutExtraction() error: %v", err)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error: %v", err)
			}
			if stats.Entries != 2 || stats.Extractions != 2 || stats.Classifications != 1 {
				t.Errorf("stats = %+v, want 2 entries, 2 extractions, 1 classification", stats)
			}
			if stats.SizeBytes <= 0 {
				t.Errorf("size = %d, want positive", stats.SizeBytes)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() error: %v", err)
			}

			stats, err = store.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() after clear error: %v", err)
			}
			if stats.Entries != 0 {
				t.Errorf("entries after clear = %d, want 0", stats.Entries)
			}
		})
	}
}
