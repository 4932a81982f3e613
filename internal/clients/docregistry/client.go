// Package docregistry reads metadata of documents owned by the external registry.
package docregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/eduvideo-backend/internal/platform/httpx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	MimeType  string `json:"mimeType"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
	PageCount int    `json:"pageCount"`
}

type Client interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing DOC_REGISTRY_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &client{
		log:        log.With("service", "DocRegistryClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *client) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents/"+id.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docregistry decode: %w", err)
	}
	if doc.ID == "" {
		doc.ID = id.String()
	}
	return &doc, nil
}
