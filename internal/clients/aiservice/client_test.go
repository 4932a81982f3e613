package aiservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/platform/httpx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

func TestStartSourceSetRetriesTransientFailures(t *testing.T) {
	var calls int32
	setID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/source-sets/"+setID.String()+"/process" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Internal-Token") != "secret" {
			t.Errorf("missing token header")
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body StartSourceSetRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoID != "v1" {
			t.Errorf("bad body %+v %v", body, err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Token: "secret", Timeout: time.Second, MaxRetries: 2}, logger.Nop())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := c.StartSourceSet(context.Background(), setID, StartSourceSetRequest{RequestID: "r", TraceID: "t", VideoID: "v1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestStartRenderJobDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 3}, logger.Nop())
	err := c.StartRenderJob(context.Background(), RenderJobRequest{JobID: "j"})
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestGenerateQuizDecodesQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QuizRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Count != 5 || len(req.ExcludeQuestions) != 1 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"questions":[{"question":"Q","options":["a","b"],"correctOptionIdx":1,"explanation":"e","blockIndex":0}]}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, logger.Nop())
	resp, err := c.GenerateQuiz(context.Background(), QuizRequest{Count: 5, ExcludeQuestions: []string{"old"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(resp.Questions) != 1 || resp.Questions[0].CorrectOptionIdx != 1 || resp.Questions[0].BlockIndex == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}
