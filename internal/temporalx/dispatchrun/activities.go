package dispatchrun

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type Activities struct {
	Log    *logger.Logger
	Outbox services.DispatchOutbox
}

func (a *Activities) Replay(ctx context.Context, in ReplayInput) (ReplayResult, error) {
	res := ReplayResult{TaskID: strings.TrimSpace(in.TaskID)}
	if a == nil || a.Outbox == nil {
		return res, fmt.Errorf("dispatchrun: activity not configured")
	}
	id, err := uuid.Parse(res.TaskID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid task_id", ErrTypeInvalid, err)
	}
	if err := a.Outbox.Replay(dbctx.Context{Ctx: ctx}, id); err != nil {
		return res, classify(err)
	}
	res.Status = opsdomain.DispatchReplayed
	if a.Log != nil {
		a.Log.Info("dispatch task replayed", "task_id", id)
	}
	return res, nil
}

func classify(err error) error {
	switch apierr.StatusOf(err) {
	case http.StatusNotFound:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	case http.StatusConflict:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConflict, err)
	case http.StatusBadRequest:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalid, err)
	}
	return err
}
