// Package aiservice talks to the external script/render/quiz generation service.
package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/httpx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type Client interface {
	StartSourceSet(ctx context.Context, sourceSetID uuid.UUID, req StartSourceSetRequest) error
	StartRenderJob(ctx context.Context, req RenderJobRequest) error
	GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResponse, error)
}

type StartSourceSetRequest struct {
	RequestID   string `json:"requestId"`
	TraceID     string `json:"traceId"`
	VideoID     string `json:"videoId"`
	EducationID string `json:"educationId,omitempty"`
}

type RenderJobRequest struct {
	JobID         string `json:"jobId"`
	VideoID       string `json:"videoId"`
	ScriptID      string `json:"scriptId"`
	ScriptVersion int    `json:"scriptVersion"`
	RequestID     string `json:"requestId"`
}

type QuizBlock struct {
	Index   int    `json:"index"`
	SceneID string `json:"sceneId"`
	Text    string `json:"text"`
}

type QuizRequest struct {
	EducationID      string      `json:"educationId"`
	Count            int         `json:"count"`
	Blocks           []QuizBlock `json:"blocks"`
	ExcludeQuestions []string    `json:"excludeQuestions"`
}

type GeneratedQuestion struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	CorrectOptionIdx int      `json:"correctOptionIdx"`
	Explanation      string   `json:"explanation"`
	BlockIndex       *int     `json:"blockIndex,omitempty"`
}

type QuizResponse struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log        *logger.Logger
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing AI_SERVICE_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("service", "AIServiceClient"),
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) StartSourceSet(ctx context.Context, sourceSetID uuid.UUID, req StartSourceSetRequest) error {
	return c.do(ctx, "start_source_set", http.MethodPost, "/v1/source-sets/"+sourceSetID.String()+"/process", req, nil)
}

func (c *client) StartRenderJob(ctx context.Context, req RenderJobRequest) error {
	return c.do(ctx, "start_render_job", http.MethodPost, "/v1/video-jobs", req, nil)
}

func (c *client) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResponse, error) {
	var out QuizResponse
	if err := c.do(ctx, "generate_quiz", http.MethodPost, "/v1/quizzes/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Internal-Token", c.token)
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		req.Header.Set("X-Trace-Id", td.TraceID)
		req.Header.Set("X-Request-Id", td.RequestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, op, method, path string, body any, out any) (err error) {
	ctx, span := otel.Tracer("aiservice").Start(ctx, "aiservice "+op)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("aiservice.path", path))
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.Current().ObserveAIRequest(op, status, time.Since(start))
		span.End()
	}()

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		span.SetAttributes(attribute.Int("aiservice.attempt", attempt+1))

		resp, raw, reqErr := c.doOnce(ctx, method, path, body)
		if reqErr == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("aiservice decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(reqErr) || attempt == c.maxRetries {
			return reqErr
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("AI service request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", reqErr.Error(),
		)
		if sErr := httpx.Sleep(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}
