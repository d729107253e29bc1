// Package engine executes the document processing stage graph: it drives
// each run from extraction through report generation, checkpoints state
// after every stage, retries transient stage failures, and suspends runs
// that require human review.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/dossier/internal/classify"
	"github.com/JaimeStill/dossier/internal/extract"
	"github.com/JaimeStill/dossier/internal/report"
	"github.com/JaimeStill/dossier/pkg/cache"
	"github.com/JaimeStill/dossier/pkg/checkpoint"
	"github.com/JaimeStill/dossier/pkg/retry"
	"github.com/JaimeStill/dossier/workflow"
)

// Runtime carries the collaborators a run executes against. Extractor,
// Classifier, Reporter, and Checkpoints are required; Cache is optional
// and disables memoization when nil.
type Runtime struct {
	Extractor   extract.System
	Classifier  classify.System
	Reporter    report.System
	Checkpoints checkpoint.Store
	Cache       cache.Store
	Retry       retry.Policy
	Categories  []string
	Logger      *slog.Logger
}

// Result is the outcome of driving a run as far as it will go: either a
// terminal state, or a suspension awaiting review decisions.
type Result struct {
	ThreadID string
	State    *workflow.State
	Prompt   *workflow.ReviewPrompt
}

// Suspended reports whether the run paused for human review.
func (r *Result) Suspended() bool {
	return r.Prompt != nil
}

// Engine drives workflow runs through the stage graph.
type Engine struct {
	rt     *Runtime
	logger *slog.Logger
}

// New validates the stage graph and runtime and constructs an engine.
func New(rt *Runtime) (*Engine, error) {
	if err := workflow.ValidateGraph(); err != nil {
		return nil, err
	}

	switch {
	case rt.Extractor == nil:
		return nil, fmt.Errorf("engine requires an extractor")
	case rt.Classifier == nil:
		return nil, fmt.Errorf("engine requires a classifier")
	case rt.Reporter == nil:
		return nil, fmt.Errorf("engine requires a reporter")
	case rt.Checkpoints == nil:
		return nil, fmt.Errorf("engine requires a checkpoint store")
	case len(rt.Categories) == 0:
		return nil, fmt.Errorf("engine requires a category vocabulary")
	}

	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		rt:     rt,
		logger: logger.With("system", "engine"),
	}, nil
}

// Run executes the workflow for threadID. When a checkpoint already exists
// for the thread, its state is loaded and the run continues from the
// recorded stage, ignoring initial; a thread suspended for review returns
// its stored prompt without executing anything. Otherwise the run starts
// fresh from initial at the extract stage.
func (e *Engine) Run(ctx context.Context, threadID string, initial *workflow.State) (*Result, error) {
	rec, err := e.rt.Checkpoints.Load(ctx, threadID)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		state := *initial
		if err := e.save(ctx, threadID, &state, workflow.StageExtract, nil); err != nil {
			return nil, err
		}
		e.logger.Info("run started", "thread_id", threadID, "input_dir", state.InputDir)
		return e.run(ctx, threadID, state, workflow.StageExtract, nil)

	case err != nil:
		return nil, err
	}

	state, stage, prompt, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}

	if stage == workflow.StageReview && prompt != nil {
		return &Result{ThreadID: threadID, State: state, Prompt: prompt}, nil
	}
	if stage == workflow.StageEnd {
		return &Result{ThreadID: threadID, State: state}, nil
	}

	e.logger.Info("run resumed from checkpoint", "thread_id", threadID, "stage", stage)
	return e.run(ctx, threadID, *state, stage, nil)
}

// Resume continues a thread suspended for human review, applying decisions
// and driving the run to completion. Returns ErrThreadNotFound when no
// checkpoint exists and ErrNotSuspended when the thread's cursor is not
// parked at the review stage. Each suspension accepts exactly one resume.
func (e *Engine) Resume(ctx context.Context, threadID string, decisions map[string]string) (*Result, error) {
	rec, err := e.rt.Checkpoints.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrThreadNotFound, threadID)
		}
		return nil, err
	}

	state, stage, prompt, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}
	if stage != workflow.StageReview || prompt == nil {
		return nil, fmt.Errorf("%w: %s is at stage %q", workflow.ErrNotSuspended, threadID, stage)
	}

	if decisions == nil {
		decisions = map[string]string{}
	}

	e.logger.Info("run resumed with decisions", "thread_id", threadID, "decisions", len(decisions))
	return e.run(ctx, threadID, *state, workflow.StageReview, decisions)
}

// run drives the stage loop from stage until the graph reaches its terminal
// marker or the run suspends. decisions feed the review stage once and are
// discarded afterward.
func (e *Engine) run(ctx context.Context, threadID string, state workflow.State, stage workflow.Stage, decisions map[string]string) (*Result, error) {
	for stage != workflow.StageEnd {
		e.logger.Info("stage starting", "thread_id", threadID, "stage", stage)

		var result workflow.StageResult
		err := e.rt.Retry.Do(ctx, func(ctx context.Context) error {
			var stageErr error
			result, stageErr = e.execute(ctx, threadID, &state, stage, decisions)
			return stageErr
		})
		decisions = nil

		if err != nil {
			return e.fail(ctx, threadID, state, stage, err)
		}

		if result.Suspended() {
			if err := e.save(ctx, threadID, &state, workflow.StageReview, result.Interrupt); err != nil {
				return nil, err
			}
			e.logger.Info("run suspended for review",
				"thread_id", threadID,
				"documents", len(result.Interrupt.Documents),
			)
			return &Result{ThreadID: threadID, State: &state, Prompt: result.Interrupt}, nil
		}

		state = workflow.ApplyStageOutput(state, result.Output)

		next, err := workflow.Next(stage, e.predicate(stage, &state))
		if err != nil {
			return nil, err
		}
		if err := e.save(ctx, threadID, &state, next, nil); err != nil {
			return nil, err
		}

		e.logger.Info("stage complete", "thread_id", threadID, "stage", stage, "next", next)
		stage = next
	}

	return &Result{ThreadID: threadID, State: &state}, nil
}

// fail records a stage failure on the state, checkpoints the run at the
// failed stage so a later Run call retries it, and surfaces the error.
// Exhausted transient failures are coded RETRIES_EXHAUSTED; failures that
// never retried carry STAGE_FAILED.
func (e *Engine) fail(ctx context.Context, threadID string, state workflow.State, stage workflow.Stage, stageErr error) (*Result, error) {
	code := workflow.CodeRetriesExhausted
	msg := fmt.Sprintf("stage %s failed after %d attempts: %v", stage, max(e.rt.Retry.MaxAttempts, 1), stageErr)
	if !retry.IsTransient(stageErr) {
		code = workflow.CodeStageFailed
		msg = fmt.Sprintf("stage %s failed: %v", stage, stageErr)
	}

	state.Errors = append(state.Errors, workflow.NewError(code, msg, workflow.SeverityError, string(stage)))

	if err := e.save(ctx, threadID, &state, stage, nil); err != nil {
		e.logger.Error("checkpoint save failed after stage failure", "thread_id", threadID, "error", err)
	}

	e.logger.Error("stage failed", "thread_id", threadID, "stage", stage, "error", stageErr)
	return nil, fmt.Errorf("stage %s: %w", stage, stageErr)
}

func (e *Engine) execute(ctx context.Context, threadID string, state *workflow.State, stage workflow.Stage, decisions map[string]string) (workflow.StageResult, error) {
	switch stage {
	case workflow.StageExtract:
		return e.extract(ctx, state)
	case workflow.StageClassify:
		return e.classify(ctx, state)
	case workflow.StageReview:
		return e.review(threadID, state, decisions)
	case workflow.StageReport:
		return e.report(ctx, threadID, state)
	default:
		return workflow.StageResult{}, fmt.Errorf("%w: unknown stage %q", workflow.ErrInvalidGraph, stage)
	}
}

// predicate evaluates the routing decision after stage completes. The run
// ends early after extraction when nothing was extracted or a critical
// error accumulated; classification routes through review when any document
// remains unknown.
func (e *Engine) predicate(stage workflow.Stage, state *workflow.State) workflow.Predicate {
	switch stage {
	case workflow.StageExtract:
		if state.HasCriticalErrors() {
			e.logger.Warn("critical error detected, halting run")
			return workflow.PredicateEnd
		}
		if len(state.ExtractedDocuments) == 0 {
			e.logger.Warn("no documents extracted, halting run")
			return workflow.PredicateEnd
		}
	case workflow.StageClassify:
		if len(state.UnknownDocuments()) > 0 {
			return workflow.PredicateReview
		}
	}
	return workflow.PredicateDefault
}

func (e *Engine) save(ctx context.Context, threadID string, state *workflow.State, next workflow.Stage, prompt *workflow.ReviewPrompt) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	var interrupt json.RawMessage
	if prompt != nil {
		interrupt, err = json.Marshal(prompt)
		if err != nil {
			return fmt.Errorf("encode interrupt: %w", err)
		}
	}

	return e.rt.Checkpoints.Save(ctx, threadID, raw, string(next), interrupt)
}

func decodeRecord(rec *checkpoint.Record) (*workflow.State, workflow.Stage, *workflow.ReviewPrompt, error) {
	var state workflow.State
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, "", nil, fmt.Errorf("decode checkpoint state: %w", err)
	}

	var prompt *workflow.ReviewPrompt
	if len(rec.Interrupt) > 0 {
		prompt = &workflow.ReviewPrompt{}
		if err := json.Unmarshal(rec.Interrupt, prompt); err != nil {
			return nil, "", nil, fmt.Errorf("decode checkpoint interrupt: %w", err)
		}
	}

	return &state, workflow.Stage(rec.NextStage), prompt, nil
}
