package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type VideoJobHandler struct {
	jobs services.VideoJobService
}

func NewVideoJobHandler(jobs services.VideoJobService) *VideoJobHandler {
	return &VideoJobHandler{jobs: jobs}
}

type createJobRequest struct {
	EducationID string `json:"educationId" binding:"required"`
	ScriptID    string `json:"scriptId" binding:"required"`
	VideoID     string `json:"videoId" binding:"required"`
}

// POST /api/video-jobs
func (h *VideoJobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if !bindJSON(c, &req) {
		return
	}
	educationID, ok := uuidField(c, "educationId", req.EducationID)
	if !ok {
		return
	}
	scriptID, ok := uuidField(c, "scriptId", req.ScriptID)
	if !ok {
		return
	}
	videoID, ok := uuidField(c, "videoId", req.VideoID)
	if !ok {
		return
	}
	job, change, err := h.jobs.CreateJob(dbc(c), services.CreateJobInput{EducationID: educationID, ScriptID: scriptID, VideoID: videoID})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job, "change": change})
}

// GET /api/video-jobs/:id
func (h *VideoJobHandler) GetJob(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.GetJob(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/videos/:id/jobs
func (h *VideoJobHandler) ListVideoJobs(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	jobs, err := h.jobs.ListJobs(dbc(c), services.JobFilter{VideoID: id})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// PATCH /api/video-jobs/:id
func (h *VideoJobHandler) UpdateJob(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var patch services.JobPatch
	if !bindJSON(c, &patch) {
		return
	}
	if patch.GeneratedVideoURL == nil && patch.Duration == nil && patch.FailReason == nil {
		response.RespondError(c, http.StatusBadRequest, "empty_patch", errors.New("nothing to update"))
		return
	}
	job, err := h.jobs.UpdateJob(dbc(c), id, patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// DELETE /api/video-jobs/:id
func (h *VideoJobHandler) DeleteJob(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.DeleteJob(dbc(c), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/video-jobs/:id/retry
func (h *VideoJobHandler) RetryJob(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	job, change, err := h.jobs.RetryJob(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job, "change": change})
}

// POST /internal/video/job/:jobId/complete
func (h *VideoJobHandler) CompleteCallback(c *gin.Context) {
	id, ok := uuidParam(c, "jobId")
	if !ok {
		return
	}
	var payload services.RenderCallback
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.jobs.HandleRenderCallback(dbc(c), id, &payload)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
