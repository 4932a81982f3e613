package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type RealtimeHandler struct {
	log    *logger.Logger
	hub    *realtime.SSEHub
	review services.VideoReviewService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, review services.VideoReviewService) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, review: review}
}

// GET /api/videos/:id/events streams pipeline events for one video until the client leaves.
func (h *RealtimeHandler) VideoEvents(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	videoID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.review.GetVideo(dbc(c), videoID); err != nil {
		response.RespondErr(c, err)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID)
	h.hub.AddChannel(client, realtime.VideoChannel(videoID))
	h.log.Debug("video event stream open", "video_id", videoID, "client_id", client.ID, "user_uuid", rd.UserID)
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
