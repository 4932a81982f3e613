package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
)

func dbc(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// uuidParam parses a path parameter; on failure it writes a 400 and returns false.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func uuidField(c *gin.Context, field, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid "+field))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func caller(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return nil, false
	}
	return rd, true
}
