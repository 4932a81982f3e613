package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/eduvideo-backend/internal/platform/envutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/httpx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/services"
	"github.com/yungbote/eduvideo-backend/internal/temporalx"
	"github.com/yungbote/eduvideo-backend/internal/temporalx/dispatchrun"
)

// Runner polls the dispatch task queue and executes replay workflows.
type Runner struct {
	log    *logger.Logger
	cfg    temporalx.Config
	tc     temporalsdkclient.Client
	outbox services.DispatchOutbox
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, outbox services.DispatchOutbox) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if outbox == nil {
		return nil, fmt.Errorf("temporal worker missing dispatch outbox")
	}
	return &Runner{log: log.With("component", "TemporalWorker"), cfg: cfg, tc: tc, outbox: outbox}, nil
}

// Start launches the worker and returns once it is polling. The worker stops when ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)
	deadline := time.Now().Add(maxWait)
	r.log.Info("starting temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		notFound := errors.As(startErr, &nfe)
		if notFound && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if notFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		if err := httpx.Sleep(ctx, httpx.ClampBackoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt)); err != nil {
			return err
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &dispatchrun.Activities{Log: r.log, Outbox: r.outbox}
	w.RegisterWorkflowWithOptions(dispatchrun.Workflow, workflow.RegisterOptions{Name: dispatchrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Replay, activity.RegisterOptions{Name: dispatchrun.ActivityReplay})
	return w
}
