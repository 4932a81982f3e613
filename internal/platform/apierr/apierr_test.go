package apierr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOfUnwrapsWrappedErrors(t *testing.T) {
	base := Conflict("attempt_submitted", "attempt %s already submitted", "a1")
	wrapped := fmt.Errorf("submit: %w", base)
	if got := StatusOf(wrapped); got != http.StatusConflict {
		t.Fatalf("expected 409, got %d", got)
	}
	if got := StatusOf(fmt.Errorf("plain")); got != 0 {
		t.Fatalf("expected 0 for plain error, got %d", got)
	}
	if base.Error() != "attempt a1 already submitted" {
		t.Fatalf("unexpected message %q", base.Error())
	}
}
