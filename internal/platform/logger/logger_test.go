package logger

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
)

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"internal_token", "abc",
		"reviewer_uuid", "5f1c0d2e-0000-4000-8000-000000000001",
		"video_id", "v-1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("token not redacted: %v", out[1])
	}
	if s, ok := out[3].(string); !ok || !strings.HasPrefix(s, "hash:") {
		t.Fatalf("reviewer uuid not hashed: %v", out[3])
	}
	if out[5] != "v-1" {
		t.Fatalf("plain value changed: %v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key dropped: %v", out[6])
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !looksLikeJWT("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig") {
		t.Fatalf("expected jwt detection")
	}
	if looksLikeJWT("a.b.c") {
		t.Fatalf("short segments are not a jwt")
	}
}

func TestWithContextWithoutTraceReturnsSameLogger(t *testing.T) {
	l := Nop()
	if got := l.WithContext(context.Background()); got != l {
		t.Fatalf("expected the same logger when ctx carries no trace data")
	}
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1"})
	if got := l.WithContext(ctx); got == l {
		t.Fatalf("expected a derived logger when ctx carries a trace id")
	}
}
