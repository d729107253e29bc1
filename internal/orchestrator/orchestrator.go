// Package orchestrator is the run-level facade over the stage engine: it
// assigns thread identities, guards against concurrent runs of the same
// thread, drives interactive review loops, and exposes the pending review
// worklist persisted in the checkpoint store.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/dossier/internal/engine"
	"github.com/JaimeStill/dossier/pkg/checkpoint"
	"github.com/JaimeStill/dossier/workflow"
)

// ReviewHandler collects decisions for a suspended run. Returning an error
// leaves the run suspended for a later Resume.
type ReviewHandler func(prompt *workflow.ReviewPrompt) (map[string]string, error)

// RunOptions parameterizes one workflow run.
type RunOptions struct {
	// ThreadID resumes an existing thread when it matches a checkpoint;
	// empty assigns a fresh identity.
	ThreadID string
	// InputDir is the directory of source documents.
	InputDir string
	// OwnerID attributes the run and its report, empty for unowned.
	OwnerID string
	// UseCache enables the content-addressed document cache.
	UseCache bool
	// DocumentLimit caps the number of files processed, zero for all.
	DocumentLimit int
	// ReviewHandler, when set, is invoked inline whenever the run suspends
	// for review. When nil a suspended run returns immediately and must be
	// resumed separately.
	ReviewHandler ReviewHandler
}

// PendingReview is one suspended thread awaiting decisions.
type PendingReview struct {
	ThreadID string                 `json:"thread_id"`
	Prompt   *workflow.ReviewPrompt `json:"prompt"`
}

// Orchestrator coordinates workflow runs over a shared engine.
type Orchestrator struct {
	engine      *engine.Engine
	checkpoints checkpoint.Store
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an orchestrator over the given engine and checkpoint store.
func New(eng *engine.Engine, checkpoints checkpoint.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:      eng,
		checkpoints: checkpoints,
		logger:      logger.With("system", "orchestrator"),
		inflight:    make(map[string]struct{}),
	}
}

// Run executes a workflow run, resuming from any existing checkpoint for
// the thread. When the run suspends and a ReviewHandler is configured, the
// handler is invoked in a loop until the run completes or the handler
// fails. Returns ErrThreadBusy when the thread already has an active run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*engine.Result, error) {
	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	if err := o.acquire(threadID); err != nil {
		return nil, err
	}
	defer o.release(threadID)

	state := workflow.NewState(opts.InputDir, opts.OwnerID, opts.UseCache, opts.DocumentLimit)

	result, err := o.engine.Run(ctx, threadID, state)
	if err != nil {
		return nil, err
	}

	for result.Suspended() {
		if opts.ReviewHandler == nil {
			o.logger.Info("run awaiting review", "thread_id", threadID)
			return result, nil
		}

		decisions, err := opts.ReviewHandler(result.Prompt)
		if err != nil {
			return result, fmt.Errorf("review handler: %w", err)
		}
		if decisions == nil {
			decisions = map[string]string{}
		}

		result, err = o.engine.Resume(ctx, threadID, decisions)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Resume applies review decisions to a suspended thread and drives the run
// to completion. Returns ErrThreadBusy when the thread has an active run,
// ErrThreadNotFound when no checkpoint exists, and ErrNotSuspended when the
// thread is not awaiting review.
func (o *Orchestrator) Resume(ctx context.Context, threadID string, decisions map[string]string) (*engine.Result, error) {
	if err := o.acquire(threadID); err != nil {
		return nil, err
	}
	defer o.release(threadID)

	return o.engine.Resume(ctx, threadID, decisions)
}

// ListPendingReviews returns every thread suspended for human review,
// including runs suspended before a process restart.
func (o *Orchestrator) ListPendingReviews(ctx context.Context) ([]PendingReview, error) {
	records, err := o.checkpoints.ListPending(ctx, string(workflow.StageReview))
	if err != nil {
		return nil, err
	}

	pending := make([]PendingReview, 0, len(records))
	for _, rec := range records {
		if len(rec.Interrupt) == 0 {
			continue
		}

		prompt := &workflow.ReviewPrompt{}
		if err := json.Unmarshal(rec.Interrupt, prompt); err != nil {
			o.logger.Warn("skipping undecodable interrupt", "thread_id", rec.ThreadID, "error", err)
			continue
		}

		pending = append(pending, PendingReview{
			ThreadID: rec.ThreadID,
			Prompt:   prompt,
		})
	}

	return pending, nil
}

// State returns the latest checkpointed state for a thread, or
// ErrThreadNotFound.
func (o *Orchestrator) State(ctx context.Context, threadID string) (*workflow.State, error) {
	rec, err := o.checkpoints.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrThreadNotFound, threadID)
		}
		return nil, err
	}

	var state workflow.State
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", threadID, err)
	}

	return &state, nil
}

func (o *Orchestrator) acquire(threadID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, active := o.inflight[threadID]; active {
		return fmt.Errorf("%w: %s", workflow.ErrThreadBusy, threadID)
	}
	o.inflight[threadID] = struct{}{}
	return nil
}

func (o *Orchestrator) release(threadID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, threadID)
}
