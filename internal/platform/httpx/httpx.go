// Package httpx holds the retry plumbing shared by the outbound HTTP clients
// and the Temporal connection loop.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxErrBody     = 512
	defaultBackoff = 250 * time.Millisecond
	jitterFraction = 0.2
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError is returned for non-2xx responses. Body is truncated in Error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrBody {
		body = body[:maxErrBody]
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, strings.TrimSpace(body))
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// IsRetryableHTTPStatus is true for timeouts, throttling and server errors.
func IsRetryableHTTPStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return code >= 500 && code < 600
	}
}

// IsRetryableError classifies a client call failure. Cancellation is final;
// deadlines, network faults and retryable statuses are not.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var op *net.OpError
	return errors.As(err, &op)
}

// RetryAfterDuration honours a Retry-After header in either delta-seconds or
// HTTP-date form, falling back when absent or unparseable. max > 0 caps the result.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	d := fallback
	if resp != nil {
		if parsed, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			d = parsed
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

func parseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(raw)
	if err != nil {
		return 0, false
	}
	if wait := at.Sub(now); wait > 0 {
		return wait, true
	}
	return 0, false
}

// JitterSleep spreads base uniformly over +/-20%.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := float64(base) * jitterFraction
	return time.Duration(float64(base) - spread + rand.Float64()*2*spread)
}

// ClampBackoff returns base*2^(attempt-1), capped at max when max > 0.
func ClampBackoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = defaultBackoff
	}
	d := base
	for n := 1; n < attempt; n++ {
		if max > 0 && d >= max {
			break
		}
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
