package quiz

import (
	"testing"
	"time"
)

func TestRemainingNeverNegative(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &QuizAttempt{TimeLimit: 900, CreatedAt: created}
	if got := a.Remaining(created.Add(100 * time.Second)); got != 800*time.Second {
		t.Fatalf("got %v", got)
	}
	if got := a.Remaining(created.Add(time.Hour)); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestQuestionCorrect(t *testing.T) {
	one := 1
	q := &QuizQuestion{CorrectOptionIdx: 1}
	if q.Correct() {
		t.Fatalf("unanswered must count as wrong")
	}
	q.UserSelectedOptionIdx = &one
	if !q.Correct() {
		t.Fatalf("expected correct")
	}
}
