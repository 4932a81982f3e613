package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// Replayer re-issues the work behind a dead dispatch task through its owning service.
type Replayer func(ctx context.Context, task *types.DispatchTask) error

// DispatchOutbox records every outbound request to the AI service so a
// failed dispatch is observable and can be replayed later.
type DispatchOutbox interface {
	// Send runs send once and records the outcome. A failed send leaves a dead
	// task and returns the send error.
	Send(ctx context.Context, kind string, entityID, requestID uuid.UUID, payload any, send func(ctx context.Context) error) (*types.DispatchTask, error)
	RegisterReplayer(kind string, fn Replayer)
	Replay(dbc dbctx.Context, taskID uuid.UUID) error
	Get(dbc dbctx.Context, taskID uuid.UUID) (*types.DispatchTask, error)
	ListDead(dbc dbctx.Context, limit int) ([]*types.DispatchTask, error)
	ListByEntity(dbc dbctx.Context, entityID uuid.UUID) ([]*types.DispatchTask, error)
}

type dispatchOutbox struct {
	log   *logger.Logger
	tasks repos.DispatchTaskRepo

	mu        sync.RWMutex
	replayers map[string]Replayer
}

func NewDispatchOutbox(baseLog *logger.Logger, tasks repos.DispatchTaskRepo) DispatchOutbox {
	return &dispatchOutbox{
		log:       baseLog.With("service", "DispatchOutbox"),
		tasks:     tasks,
		replayers: map[string]Replayer{},
	}
}

func (o *dispatchOutbox) Send(ctx context.Context, kind string, entityID, requestID uuid.UUID, payload any, send func(ctx context.Context) error) (*types.DispatchTask, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode dispatch payload: %w", err)
	}
	task := &types.DispatchTask{
		ID:        uuid.New(),
		Kind:      kind,
		EntityID:  entityID,
		RequestID: requestID,
		Payload:   datatypes.JSON(raw),
		Status:    opsdomain.DispatchPending,
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := o.tasks.Create(dbc, task); err != nil {
		return nil, fmt.Errorf("record dispatch task: %w", err)
	}

	sendErr := send(ctx)
	task.Attempts++
	updates := map[string]interface{}{"attempts": task.Attempts}
	if sendErr != nil {
		task.Status = opsdomain.DispatchDead
		task.LastError = truncate(sendErr.Error(), 1000)
		updates["status"] = task.Status
		updates["last_error"] = task.LastError
		o.log.WithContext(ctx).Warn("dispatch dead-lettered",
			"task_id", task.ID,
			"kind", kind,
			"entity_id", entityID,
			"request_id", requestID,
			"error", sendErr,
		)
	} else {
		task.Status = opsdomain.DispatchSent
		updates["status"] = task.Status
		o.log.WithContext(ctx).Info("dispatch sent", "task_id", task.ID, "kind", kind, "entity_id", entityID, "request_id", requestID)
	}
	// Recording the outcome must survive a caller whose context was just cancelled.
	if err := o.tasks.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, task.ID, updates); err != nil {
		o.log.Error("record dispatch outcome failed", "task_id", task.ID, "error", err)
	}
	observability.Current().IncDispatch(kind, task.Status)
	return task, sendErr
}

func (o *dispatchOutbox) RegisterReplayer(kind string, fn Replayer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replayers[kind] = fn
}

func (o *dispatchOutbox) Replay(dbc dbctx.Context, taskID uuid.UUID) error {
	task, err := o.tasks.GetByID(dbc, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return apierr.NotFound("dispatch_task_not_found", "dispatch task %s not found", taskID)
	}
	if task.Status != opsdomain.DispatchDead {
		return apierr.Conflict("dispatch_task_not_dead", "dispatch task %s is %s", taskID, task.Status)
	}
	o.mu.RLock()
	fn := o.replayers[task.Kind]
	o.mu.RUnlock()
	if fn == nil {
		return fmt.Errorf("no replayer registered for %q", task.Kind)
	}

	if err := fn(dbc.Ctx, task); err != nil {
		return err
	}
	ok, err := o.tasks.UpdateFieldsIfStatus(dbc, task.ID, opsdomain.DispatchDead, map[string]interface{}{
		"status": opsdomain.DispatchReplayed,
	})
	if err != nil {
		return err
	}
	if !ok {
		o.log.Warn("dispatch task changed during replay", "task_id", task.ID)
	}
	return nil
}

func (o *dispatchOutbox) Get(dbc dbctx.Context, taskID uuid.UUID) (*types.DispatchTask, error) {
	task, err := o.tasks.GetByID(dbc, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apierr.NotFound("dispatch_task_not_found", "dispatch task %s not found", taskID)
	}
	return task, nil
}

func (o *dispatchOutbox) ListDead(dbc dbctx.Context, limit int) ([]*types.DispatchTask, error) {
	return o.tasks.ListByStatus(dbc, opsdomain.DispatchDead, limit)
}

func (o *dispatchOutbox) ListByEntity(dbc dbctx.Context, entityID uuid.UUID) ([]*types.DispatchTask, error) {
	return o.tasks.ListByEntity(dbc, entityID)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
