package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("EV_TEST_INT", "abc")
	if got := Int("EV_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	t.Setenv("EV_TEST_INT", " 12 ")
	if got := Int("EV_TEST_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestBoolAndSeconds(t *testing.T) {
	t.Setenv("EV_TEST_BOOL", "on")
	if !Bool("EV_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("EV_TEST_SECS", "-4")
	if got := Seconds("EV_TEST_SECS", 3); got != 0 {
		t.Fatalf("negative seconds should clamp to 0, got %v", got)
	}
	if got := Seconds("EV_TEST_UNSET_SECS", 3); got != 3*time.Second {
		t.Fatalf("expected 3s default, got %v", got)
	}
}
