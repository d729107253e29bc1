package workflow

import "fmt"

// Stage identifies one node of the fixed processing graph.
type Stage string

// Stages of the document processing graph, plus the terminal marker.
const (
	StageExtract  Stage = "extract"
	StageClassify Stage = "classify"
	StageReview   Stage = "review"
	StageReport   Stage = "report"
	StageEnd      Stage = "end"
)

// Predicate is the result of a routing decision evaluated after a stage
// completes. Every stage defines a default edge; conditional edges are
// keyed by the non-default predicates below.
type Predicate string

const (
	PredicateDefault Predicate = "default"
	PredicateEnd     Predicate = "end"
	PredicateReview  Predicate = "review"
)

// transitions is the static edge table for the stage graph:
// extract -> classify (or end), classify -> report (or review),
// review -> report, report -> end.
var transitions = map[Stage]map[Predicate]Stage{
	StageExtract: {
		PredicateDefault: StageClassify,
		PredicateEnd:     StageEnd,
	},
	StageClassify: {
		PredicateDefault: StageReport,
		PredicateReview:  StageReview,
	},
	StageReview: {
		PredicateDefault: StageReport,
	},
	StageReport: {
		PredicateDefault: StageEnd,
	},
}

// Next resolves the stage that follows stage for the given predicate result.
// Unknown predicates fall back to the stage's default edge.
func Next(stage Stage, p Predicate) (Stage, error) {
	edges, ok := transitions[stage]
	if !ok {
		return StageEnd, fmt.Errorf("%w: no edges defined for stage %q", ErrInvalidGraph, stage)
	}
	if next, ok := edges[p]; ok {
		return next, nil
	}
	return edges[PredicateDefault], nil
}

// ValidateGraph asserts that every non-terminal stage has a default edge and
// that every edge targets a known stage. Called once at engine construction.
func ValidateGraph() error {
	for _, stage := range []Stage{StageExtract, StageClassify, StageReview, StageReport} {
		edges, ok := transitions[stage]
		if !ok {
			return fmt.Errorf("%w: stage %q has no edges", ErrInvalidGraph, stage)
		}
		if _, ok := edges[PredicateDefault]; !ok {
			return fmt.Errorf("%w: stage %q has no default edge", ErrInvalidGraph, stage)
		}
		for p, target := range edges {
			if target != StageEnd {
				if _, ok := transitions[target]; !ok {
					return fmt.Errorf("%w: stage %q edge %q targets unknown stage %q", ErrInvalidGraph, stage, p, target)
				}
			}
		}
	}
	return nil
}

// StageResult is the tagged outcome of a stage invocation: either a completed
// output delta, or a suspension carrying a payload for a human reviewer.
type StageResult struct {
	Output    StageOutput
	Interrupt *ReviewPrompt
}

// Completed wraps a stage output delta in a StageResult.
func Completed(out StageOutput) StageResult {
	return StageResult{Output: out}
}

// Suspended wraps a review payload in a StageResult, signaling that the stage
// paused before completing and must be resumed with decision data.
func Suspended(prompt *ReviewPrompt) StageResult {
	return StageResult{Interrupt: prompt}
}

// Suspended reports whether this result carries an interrupt payload.
func (r StageResult) Suspended() bool {
	return r.Interrupt != nil
}
