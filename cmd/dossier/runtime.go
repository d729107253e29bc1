package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/dossier/internal/classify"
	"github.com/JaimeStill/dossier/internal/config"
	"github.com/JaimeStill/dossier/internal/engine"
	"github.com/JaimeStill/dossier/internal/extract"
	"github.com/JaimeStill/dossier/internal/orchestrator"
	"github.com/JaimeStill/dossier/internal/report"
	"github.com/JaimeStill/dossier/pkg/cache"
	"github.com/JaimeStill/dossier/pkg/checkpoint"
	"github.com/JaimeStill/dossier/pkg/database"
	"github.com/JaimeStill/dossier/pkg/storage"
)

// runtime holds the composed systems a command executes against.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	db           *sql.DB
	appDB        *sql.DB
	checkpoints  checkpoint.Store
	cache        cache.Store
	registry     *report.Registry
	orchestrator *orchestrator.Orchestrator
}

// compose loads configuration and wires every system the CLI uses. The
// checkpoint store follows the configured database driver; the cache and
// report registry always live in the local sqlite application database.
func compose(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger()

	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	appDB := db
	if cfg.Database.Driver != database.DriverSqlite {
		appCfg := database.Config{Driver: database.DriverSqlite}
		if err := appCfg.Finalize(nil, config.DefaultDatabasePath); err != nil {
			return nil, fmt.Errorf("finalize app database config: %w", err)
		}
		appDB, err = database.Open(ctx, &appCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open app database: %w", err)
		}
	}

	checkpoints, err := checkpoint.New(db, cfg.Database.Driver, logger)
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.NewSqlite(appDB, logger)
	if err != nil {
		return nil, err
	}

	registry, err := report.NewRegistry(appDB, logger)
	if err != nil {
		return nil, err
	}

	var store storage.System
	if cfg.Storage.Enabled() {
		store, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Ensure(ctx); err != nil {
			return nil, err
		}
	}

	agentCfg := cfg.Agent.AgentConfig()

	eng, err := engine.New(&engine.Runtime{
		Extractor:   extract.New(&cfg.Extract, agentCfg, logger),
		Classifier:  classify.New(&cfg.Classify, agentCfg, logger),
		Reporter:    report.New(&cfg.Report, registry, store, logger),
		Checkpoints: checkpoints,
		Cache:       cacheStore,
		Retry:       cfg.Retry.Policy(),
		Categories:  cfg.Classify.Categories,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		appDB:        appDB,
		checkpoints:  checkpoints,
		cache:        cacheStore,
		registry:     registry,
		orchestrator: orchestrator.New(eng, checkpoints, logger),
	}, nil
}

func (rt *runtime) close() {
	if rt.appDB != nil && rt.appDB != rt.db {
		rt.appDB.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
