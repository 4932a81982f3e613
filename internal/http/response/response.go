package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError aborts with the error envelope. The trace id lets a caller quote
// the failing request back to an operator.
func RespondError(c *gin.Context, status int, code string, err error) {
	body := APIError{Message: "unknown error", Code: code}
	if err != nil {
		body.Message = err.Error()
	}
	if c.Request != nil {
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			body.TraceID = td.TraceID
		}
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// RespondErr maps a service error to its HTTP status. Anything that is not
// an *apierr.Error is a 500 and its message is not echoed.
func RespondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
