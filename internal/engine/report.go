package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JaimeStill/dossier/pkg/retry"
	"github.com/JaimeStill/dossier/workflow"
)

// report runs the report generation stage. Generation failures never abort
// the run: a permission failure is recorded as critical and everything else
// as a recoverable error, with the report marked not generated either way.
// Transient failures propagate so the retry policy re-invokes the stage.
func (e *Engine) report(ctx context.Context, threadID string, state *workflow.State) (workflow.StageResult, error) {
	if len(state.ClassifiedDocuments) == 0 {
		e.logger.Warn("no classified documents, skipping report", "thread_id", threadID)
		return workflow.Completed(workflow.StageOutput{
			Report:   &workflow.ReportOutput{},
			Messages: []string{"No documents to include in report"},
		}), nil
	}

	path, err := e.rt.Reporter.Generate(ctx, threadID, state)
	if err != nil {
		if retry.IsTransient(err) {
			return workflow.StageResult{}, err
		}

		if errors.Is(err, os.ErrPermission) {
			wfErr := workflow.NewError(
				workflow.CodeReportPermission,
				fmt.Sprintf("permission denied writing report: %v", err),
				workflow.SeverityCritical,
				string(workflow.StageReport),
			)
			e.logger.Error("report permission denied", "thread_id", threadID, "error", err)
			return workflow.Completed(workflow.StageOutput{
				Report:   &workflow.ReportOutput{},
				Errors:   []workflow.Error{wfErr},
				Messages: []string{wfErr.Message},
			}), nil
		}

		wfErr := workflow.NewError(
			workflow.CodeReportFailed,
			fmt.Sprintf("failed to generate report: %v", err),
			workflow.SeverityError,
			string(workflow.StageReport),
		)
		wfErr.Recoverable = true
		e.logger.Error("report generation failed", "thread_id", threadID, "error", err)
		return workflow.Completed(workflow.StageOutput{
			Report:   &workflow.ReportOutput{},
			Errors:   []workflow.Error{wfErr},
			Messages: []string{wfErr.Message},
		}), nil
	}

	return workflow.Completed(workflow.StageOutput{
		Report:   &workflow.ReportOutput{Path: path, Generated: true},
		Messages: []string{fmt.Sprintf("Report generated successfully: %s", path)},
	}), nil
}
