package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type VideoHandler struct {
	review services.VideoReviewService
}

func NewVideoHandler(review services.VideoReviewService) *VideoHandler {
	return &VideoHandler{review: review}
}

type createVideoRequest struct {
	EducationID     string   `json:"educationId" binding:"required"`
	Title           string   `json:"title" binding:"required"`
	OrderIndex      int      `json:"orderIndex"`
	DepartmentScope []string `json:"departmentScope"`
}

// POST /api/videos
func (h *VideoHandler) CreateVideo(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req createVideoRequest
	if !bindJSON(c, &req) {
		return
	}
	educationID, ok := uuidField(c, "educationId", req.EducationID)
	if !ok {
		return
	}
	video, err := h.review.CreateVideo(dbc(c), services.CreateVideoInput{
		EducationID:     educationID,
		Title:           req.Title,
		OrderIndex:      req.OrderIndex,
		CreatorUUID:     rd.UserID,
		DepartmentScope: req.DepartmentScope,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"video": video})
}

// GET /api/videos/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	video, err := h.review.GetVideo(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"video": video})
}

// GET /api/educations/:id/videos
func (h *VideoHandler) ListVideos(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	videos, err := h.review.ListVideos(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"videos": videos})
}

// POST /api/videos/:id/review/request
func (h *VideoHandler) RequestReview(c *gin.Context) {
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.RequestReview(dbc(c), id)
	})
}

// POST /api/videos/:id/review/approve
func (h *VideoHandler) Approve(c *gin.Context) {
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.Approve(dbc(c), id, userID)
	})
}

// POST /api/videos/:id/review/publish
func (h *VideoHandler) Publish(c *gin.Context) {
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.Publish(dbc(c), id, userID)
	})
}

// POST /api/videos/:id/review/disable
func (h *VideoHandler) Disable(c *gin.Context) {
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.Disable(dbc(c), id)
	})
}

// POST /api/videos/:id/review/enable
func (h *VideoHandler) Enable(c *gin.Context) {
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.Enable(dbc(c), id)
	})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// POST /api/videos/:id/review/reject
func (h *VideoHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.Reject(dbc(c), id, userID, req.Reason)
	})
}

type forceStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// POST /api/admin/unsafe/videos/:id/force-status
func (h *VideoHandler) ForceStatus(c *gin.Context) {
	var req forceStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	h.transition(c, func(userID, id uuid.UUID) (*services.StatusChange, error) {
		return h.review.UnsafeForceStatus(dbc(c), id, types.VideoStatus(req.Status), userID, req.Reason)
	})
}

// GET /api/videos/:id/reviews
func (h *VideoHandler) ReviewHistory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	events, err := h.review.GetReviewHistory(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

func (h *VideoHandler) transition(c *gin.Context, fn func(userID, id uuid.UUID) (*services.StatusChange, error)) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	change, err := fn(rd.UserID, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change": change})
}
