package dispatchrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

// Scheduler replays dead dispatch tasks. With a Temporal client it starts a
// durable workflow keyed by the task id; without one it replays inline.
type Scheduler interface {
	Replay(ctx context.Context, taskID uuid.UUID) (durable bool, err error)
}

type scheduler struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	taskQueue   string
	maxAttempts int
	outbox      services.DispatchOutbox
}

func NewScheduler(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string, maxAttempts int, outbox services.DispatchOutbox) Scheduler {
	return &scheduler{
		log:         log.With("component", "DispatchReplayScheduler"),
		tc:          tc,
		taskQueue:   taskQueue,
		maxAttempts: maxAttempts,
		outbox:      outbox,
	}
}

func (s *scheduler) Replay(ctx context.Context, taskID uuid.UUID) (bool, error) {
	if s.tc == nil {
		return false, s.outbox.Replay(dbctx.Context{Ctx: ctx}, taskID)
	}
	// Validate up front so callers get 404/409 synchronously.
	task, err := s.outbox.Get(dbctx.Context{Ctx: ctx}, taskID)
	if err != nil {
		return false, err
	}
	if task.Status != opsdomain.DispatchDead {
		return false, apierr.Conflict("dispatch_task_not_dead", "dispatch task %s is %s", taskID, task.Status)
	}
	run, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    "dispatch-replay-" + taskID.String(),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, WorkflowName, ReplayInput{TaskID: taskID.String(), MaxAttempts: s.maxAttempts})
	if err != nil {
		return false, fmt.Errorf("start dispatch replay workflow: %w", err)
	}
	s.log.Info("dispatch replay scheduled", "task_id", taskID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return true, nil
}
