package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type SourceSetHandler struct {
	sets    services.SourceSetService
	scripts services.ScriptService
}

func NewSourceSetHandler(sets services.SourceSetService, scripts services.ScriptService) *SourceSetHandler {
	return &SourceSetHandler{sets: sets, scripts: scripts}
}

type createSourceSetRequest struct {
	Title       string      `json:"title" binding:"required"`
	Domain      string      `json:"domain"`
	EducationID string      `json:"educationId" binding:"required"`
	VideoID     string      `json:"videoId" binding:"required"`
	DocumentIDs []uuid.UUID `json:"documentIds"`
}

// POST /api/source-sets
func (h *SourceSetHandler) CreateSourceSet(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	var req createSourceSetRequest
	if !bindJSON(c, &req) {
		return
	}
	educationID, ok := uuidField(c, "educationId", req.EducationID)
	if !ok {
		return
	}
	videoID, ok := uuidField(c, "videoId", req.VideoID)
	if !ok {
		return
	}
	set, err := h.sets.CreateSourceSet(dbc(c), services.CreateSourceSetInput{
		Title:       req.Title,
		Domain:      req.Domain,
		RequestedBy: rd.UserID,
		EducationID: educationID,
		VideoID:     videoID,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"sourceSet": set})
}

// GET /api/source-sets/:id
func (h *SourceSetHandler) GetSourceSet(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	set, err := h.sets.Get(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sourceSet": set})
}

type updateDocumentsRequest struct {
	Add    []uuid.UUID `json:"add"`
	Remove []uuid.UUID `json:"remove"`
}

// PATCH /api/source-sets/:id/documents
func (h *SourceSetHandler) UpdateDocuments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateDocumentsRequest
	if !bindJSON(c, &req) {
		return
	}
	set, err := h.sets.UpdateDocuments(dbc(c), id, req.Add, req.Remove)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sourceSet": set})
}

// GET /api/source-sets/:id/documents and GET /internal/source-sets/:id/documents
func (h *SourceSetHandler) GetDocuments(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.sets.GetDocuments(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// POST /api/source-sets/:id/dispatch
func (h *SourceSetHandler) RetryDispatch(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	set, err := h.sets.RetryDispatch(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sourceSet": set})
}

// DELETE /api/source-sets/:id
func (h *SourceSetHandler) DeleteSourceSet(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.sets.DeleteSourceSet(dbc(c), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/source-sets/:id/scripts
func (h *SourceSetHandler) ListScripts(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	scripts, err := h.scripts.ListScriptVersions(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scripts": scripts})
}

// GET /api/scripts/:id
func (h *SourceSetHandler) GetScript(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	script, err := h.scripts.GetScript(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"script": script})
}

// GET /internal/scripts/:id/render-spec
func (h *SourceSetHandler) GetRenderSpec(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	spec, err := h.scripts.GetRenderSpec(dbc(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, spec)
}

// POST /internal/source-sets/:id/complete
func (h *SourceSetHandler) CompleteCallback(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var payload services.SourceSetCallback
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.sets.HandleCompletionCallback(dbc(c), id, &payload)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
