package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
)

func init() { gin.SetMode(gin.TestMode) }

func run(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{TraceID: "trace-1"}))
	RespondErr(c, err)
	var env ErrorEnvelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("decode: %v", jerr)
	}
	return rec.Code, env
}

func TestRespondErrMapsAPIErrors(t *testing.T) {
	code, env := run(t, apierr.Conflict("quiz_submitted", "quiz already submitted"))
	if code != http.StatusConflict {
		t.Fatalf("status: want=%d got=%d", http.StatusConflict, code)
	}
	if env.Error.Code != "quiz_submitted" || env.Error.TraceID != "trace-1" {
		t.Fatalf("unexpected envelope: %+v", env.Error)
	}
}

func TestRespondErrHidesInternalErrors(t *testing.T) {
	code, env := run(t, errors.New("pq: connection refused"))
	if code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", code)
	}
	if env.Error.Message != "internal server error" {
		t.Fatalf("internal message leaked: %q", env.Error.Message)
	}
}
