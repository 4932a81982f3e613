package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextEchoesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/ping", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-42")
	req.Header.Set(headerTraceID, "trace-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-42" || seen.TraceID != "trace-7" {
		t.Fatalf("trace data: got=%+v", seen)
	}
	if got := rec.Header().Get(headerRequestID); got != "req-42" {
		t.Fatalf("request id header: want=req-42 got=%q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Header().Get(headerTraceID) == "" || rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected minted ids when none are sent")
	}
}
