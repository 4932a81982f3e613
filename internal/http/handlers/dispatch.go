package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/services"
	"github.com/yungbote/eduvideo-backend/internal/temporalx/dispatchrun"
)

type DispatchHandler struct {
	outbox    services.DispatchOutbox
	scheduler dispatchrun.Scheduler
}

func NewDispatchHandler(outbox services.DispatchOutbox, scheduler dispatchrun.Scheduler) *DispatchHandler {
	return &DispatchHandler{outbox: outbox, scheduler: scheduler}
}

// GET /api/admin/dispatch-tasks
func (h *DispatchHandler) ListDead(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	tasks, err := h.outbox.ListDead(dbc(c), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tasks": tasks})
}

// POST /api/admin/dispatch-tasks/:id/replay. 202 when a durable workflow
// took over, 200 when the replay already ran inline.
func (h *DispatchHandler) Replay(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	durable, err := h.scheduler.Replay(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if durable {
		c.JSON(http.StatusAccepted, gin.H{"taskId": id, "status": "scheduled"})
		return
	}
	task, err := h.outbox.Get(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"task": task})
}
