package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/services"
)

type QuizHandler struct {
	quiz services.QuizService
}

func NewQuizHandler(quiz services.QuizService) *QuizHandler {
	return &QuizHandler{quiz: quiz}
}

type answersRequest struct {
	Answers map[uuid.UUID]int `json:"answers"`
}

type leaveRequest struct {
	Seconds int `json:"seconds"`
}

// POST /api/educations/:id/quiz/attempts
func (h *QuizHandler) StartAttempt(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	educationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	view, err := h.quiz.StartAttempt(dbc(c), educationID, rd.UserID, rd.Department)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	status := http.StatusCreated
	if view.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, view)
}

// GET /api/educations/:id/quiz/attempts
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	educationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	attempts, err := h.quiz.ListAttempts(dbc(c), educationID, rd.UserID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempts": attempts})
}

// PUT /api/quiz/attempts/:id/answers
func (h *QuizHandler) SaveAnswers(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		var req answersRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := h.quiz.SaveAnswers(dbc(c), attemptID, userID, req.Answers); err != nil {
			response.RespondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// POST /api/quiz/attempts/:id/submit; the body is optional.
func (h *QuizHandler) Submit(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		var req answersRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		res, err := h.quiz.Submit(dbc(c), attemptID, userID, req.Answers)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, res)
	})
}

// GET /api/quiz/attempts/:id/result
func (h *QuizHandler) GetResult(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		res, err := h.quiz.GetResult(dbc(c), attemptID, userID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, res)
	})
}

// GET /api/quiz/attempts/:id/wrong-notes
func (h *QuizHandler) GetWrongNotes(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		notes, err := h.quiz.GetWrongNotes(dbc(c), attemptID, userID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"wrongNotes": notes})
	})
}

// POST /api/quiz/attempts/:id/leave
func (h *QuizHandler) RecordLeave(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		var req leaveRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.Seconds < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("seconds must be >= 0"))
			return
		}
		tracking, err := h.quiz.RecordLeave(dbc(c), attemptID, userID, req.Seconds)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"leaveTracking": tracking})
	})
}

// GET /api/quiz/attempts/:id/timer
func (h *QuizHandler) GetTimer(c *gin.Context) {
	h.withAttempt(c, func(attemptID, userID uuid.UUID) {
		timer, err := h.quiz.GetTimer(dbc(c), attemptID, userID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, timer)
	})
}

func (h *QuizHandler) withAttempt(c *gin.Context, fn func(attemptID, userID uuid.UUID)) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	fn(attemptID, rd.UserID)
}
