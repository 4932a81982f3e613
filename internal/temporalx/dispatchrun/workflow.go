package dispatchrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow replays one dead-lettered dispatch task with a bounded retry budget.
func Workflow(ctx workflow.Context, in ReplayInput) (ReplayResult, error) {
	if strings.TrimSpace(in.TaskID) == "" {
		return ReplayResult{}, fmt.Errorf("dispatchrun: missing task_id")
	}
	attempts := in.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        int32(attempts),
			NonRetryableErrorTypes: []string{ErrTypeNotFound, ErrTypeConflict, ErrTypeInvalid},
		},
	})

	var out ReplayResult
	if err := workflow.ExecuteActivity(ctx, ActivityReplay, in).Get(ctx, &out); err != nil {
		workflow.GetLogger(ctx).Warn("dispatch replay failed", "task_id", in.TaskID, "error", err)
		return out, err
	}
	return out, nil
}
