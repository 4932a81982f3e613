package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), true},
		{"503", &StatusError{StatusCode: 503}, true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"400", &StatusError{StatusCode: 400}, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestClampBackoff(t *testing.T) {
	if got := ClampBackoff(100*time.Millisecond, time.Second, 1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: %v", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 3); got != 400*time.Millisecond {
		t.Fatalf("attempt 3: %v", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 10); got != time.Second {
		t.Fatalf("attempt 10 should clamp: %v", got)
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected clamp to 10s, got %v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 10*time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestRetryAfterHTTPDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, ok := parseRetryAfter(now.Add(5*time.Second).Format(http.TimeFormat), now)
	if !ok || got != 5*time.Second {
		t.Fatalf("http-date: want=5s got=%v ok=%v", got, ok)
	}
	if _, ok := parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now); ok {
		t.Fatalf("past date should fall back")
	}
	if _, ok := parseRetryAfter("soon", now); ok {
		t.Fatalf("garbage should fall back")
	}
}

func TestJitterSleepStaysInBand(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of band: %v", got)
		}
	}
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); err != context.Canceled {
		t.Fatalf("want context.Canceled got %v", err)
	}
}
