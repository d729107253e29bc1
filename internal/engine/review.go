package engine

import (
	"fmt"

	"github.com/JaimeStill/dossier/workflow"
)

// review runs the human review stage. With no decisions the stage suspends,
// publishing a prompt describing the unknown documents; with decisions it
// applies them and recomputes the classification summary.
func (e *Engine) review(threadID string, state *workflow.State, decisions map[string]string) (workflow.StageResult, error) {
	unknown := state.UnknownDocuments()

	if decisions == nil {
		e.logger.Info("suspending for human review", "thread_id", threadID, "unknown", len(unknown))
		return workflow.Suspended(workflow.NewReviewPrompt(threadID, e.rt.Categories, unknown)), nil
	}

	docs, reclassified := workflow.ApplyDecisions(state.ClassifiedDocuments, decisions, e.rt.Categories)

	e.logger.Info("human review applied",
		"thread_id", threadID,
		"reviewed", len(unknown),
		"reclassified", reclassified,
	)

	return workflow.Completed(workflow.StageOutput{
		Classified: &workflow.Classification{
			Documents: docs,
			Summary:   workflow.Summarize(docs),
		},
		Messages: []string{fmt.Sprintf(
			"Human review complete: %d document(s) reclassified", reclassified,
		)},
	}), nil
}
