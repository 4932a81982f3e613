package services

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
)

func intp(v int) *int { return &v }

func generated(n int, prefix string) []aiservice.GeneratedQuestion {
	out := make([]aiservice.GeneratedQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, aiservice.GeneratedQuestion{
			Question:         prefix + string(rune('A'+i)) + "?",
			Options:          []string{"one", "two", "three", "four"},
			CorrectOptionIdx: i % 4,
			Explanation:      "because",
			BlockIndex:       intp(0),
		})
	}
	return out
}

func answerAll(qs []*types.QuizQuestion, correct bool) map[uuid.UUID]int {
	out := map[uuid.UUID]int{}
	for _, q := range qs {
		if correct {
			out[q.ID] = q.CorrectOptionIdx
		} else {
			out[q.ID] = (q.CorrectOptionIdx + 1) % len(q.Options)
		}
	}
	return out
}

func TestGrade(t *testing.T) {
	cases := []struct {
		correct, total int
		pass           *int
		score          int
		passed         bool
	}{
		{3, 5, nil, 60, false},
		{5, 5, nil, 100, true},
		{2, 3, intp(67), 67, true},
		{1, 3, intp(50), 33, false},
		{0, 0, nil, 0, false},
	}
	for _, c := range cases {
		score, passed := grade(c.correct, c.total, c.pass)
		if score != c.score || passed != c.passed {
			t.Fatalf("grade(%d,%d): want=(%d,%v) got=(%d,%v)", c.correct, c.total, c.score, c.passed, score, passed)
		}
	}
}

func TestStartAttemptFallsBackToPlaceholders(t *testing.T) {
	h := newHarness(t)
	edu := h.education(nil)
	user := uuid.New()

	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "warehouse")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if len(view.Questions) != 5 || view.Attempt.AttemptNo != 1 || view.Attempt.TimeLimit != 900 {
		t.Fatalf("attempt: questions=%d no=%d limit=%d", len(view.Questions), view.Attempt.AttemptNo, view.Attempt.TimeLimit)
	}
	if len(h.ai.quizCalls) != 0 {
		t.Fatalf("generator called without approved script")
	}

	again, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "warehouse")
	if err != nil {
		t.Fatalf("StartAttempt resume: %v", err)
	}
	if !again.Resumed || again.Attempt.ID != view.Attempt.ID {
		t.Fatalf("resume: resumed=%v id=%s want=%s", again.Resumed, again.Attempt.ID, view.Attempt.ID)
	}

	_, err = h.quiz.StartAttempt(h.dbc(), uuid.New(), user, "")
	wantStatus(t, err, http.StatusNotFound)
}

func TestStartAttemptUsesGeneratorAndDropsBadQuestions(t *testing.T) {
	h := newHarness(t)
	edu, _, _ := h.scriptApproved()
	good := generated(3, "Q")
	h.ai.quizResp = &aiservice.QuizResponse{Questions: append(good,
		aiservice.GeneratedQuestion{Question: "", Options: []string{"a", "b"}},
		aiservice.GeneratedQuestion{Question: "One option?", Options: []string{"a"}},
		aiservice.GeneratedQuestion{Question: "Out of range?", Options: []string{"a", "b"}, CorrectOptionIdx: 2},
		aiservice.GeneratedQuestion{Question: " qa? ", Options: []string{"a", "b"}},
	)}

	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, uuid.New(), "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if len(view.Questions) != 3 {
		t.Fatalf("usable questions: want=3 got=%d", len(view.Questions))
	}
	if len(h.ai.quizCalls) != 1 {
		t.Fatalf("generator calls: want=1 got=%d", len(h.ai.quizCalls))
	}
	req := h.ai.quizCalls[0]
	if req.Count != 5 || len(req.Blocks) != 3 {
		t.Fatalf("quiz request: count=%d blocks=%d", req.Count, len(req.Blocks))
	}
	if req.Blocks[0].Text != "Walk around the forklift and check the forks for cracks." {
		t.Fatalf("first block text: %q", req.Blocks[0].Text)
	}
	if req.Blocks[1].Text != "Seatbelt on before the engine starts." {
		t.Fatalf("caption fallback block text: %q", req.Blocks[1].Text)
	}
	if view.Questions[0].SourceText != req.Blocks[0].Text {
		t.Fatalf("source text: %q", view.Questions[0].SourceText)
	}
}

func TestGeneratorErrorFallsBack(t *testing.T) {
	h := newHarness(t)
	edu, _, _ := h.scriptApproved()
	h.ai.quizErr = errors.New("timeout")

	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, uuid.New(), "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("placeholder questions: want=5 got=%d", len(view.Questions))
	}
}

func TestSubmitScoresOnceAndExcludesOnNextAttempt(t *testing.T) {
	h := newHarness(t)
	edu, _, _ := h.scriptApproved()
	h.ai.quizResp = &aiservice.QuizResponse{Questions: generated(5, "First ")}
	user := uuid.New()

	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	attemptID := view.Attempt.ID

	_, err = h.quiz.GetResult(h.dbc(), attemptID, user)
	wantStatus(t, err, http.StatusConflict)
	wantStatus(t, h.quiz.SaveAnswers(h.dbc(), attemptID, uuid.New(), nil), http.StatusForbidden)
	wantStatus(t, h.quiz.SaveAnswers(h.dbc(), attemptID, user, map[uuid.UUID]int{view.Questions[0].ID: 9}), http.StatusBadRequest)

	stored, err := h.quiz.(*quizService).questions.ListByAttempt(h.dbc(), attemptID)
	if err != nil {
		t.Fatalf("ListByAttempt: %v", err)
	}
	answers := answerAll(stored, true)
	answers[stored[4].ID] = (stored[4].CorrectOptionIdx + 1) % 4
	delete(answers, stored[3].ID)
	if err := h.quiz.SaveAnswers(h.dbc(), attemptID, user, answers); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}

	res, err := h.quiz.Submit(h.dbc(), attemptID, user, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 60 || res.Passed || res.CorrectCount != 3 || res.TotalCount != 5 {
		t.Fatalf("result: %+v", res)
	}
	_, err = h.quiz.Submit(h.dbc(), attemptID, user, nil)
	wantStatus(t, err, http.StatusConflict)
	_, err = h.quiz.RecordLeave(h.dbc(), attemptID, user, 5)
	wantStatus(t, err, http.StatusConflict)

	notes, err := h.quiz.GetWrongNotes(h.dbc(), attemptID, user)
	if err != nil {
		t.Fatalf("GetWrongNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("wrong notes: want=2 got=%d", len(notes))
	}
	if notes[0].SelectedOptionIdx != nil {
		t.Fatalf("unanswered note has selection %d", *notes[0].SelectedOptionIdx)
	}
	if notes[0].SourceText == "" || notes[0].Explanation == "" {
		t.Fatalf("note missing source or explanation: %+v", notes[0])
	}

	h.ai.quizResp = &aiservice.QuizResponse{Questions: append(generated(2, "First "), generated(2, "Second ")...)}
	next, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "")
	if err != nil {
		t.Fatalf("StartAttempt next: %v", err)
	}
	if next.Attempt.AttemptNo != 2 {
		t.Fatalf("attempt no: want=2 got=%d", next.Attempt.AttemptNo)
	}
	if got := len(h.ai.quizCalls[1].ExcludeQuestions); got != 5 {
		t.Fatalf("exclude list: want=5 got=%d", got)
	}
	if len(next.Questions) != 2 {
		t.Fatalf("questions after exclusion: want=2 got=%d", len(next.Questions))
	}
	for _, q := range next.Questions {
		if q.Question == "First A?" || q.Question == "First B?" {
			t.Fatalf("excluded question %q served again", q.Question)
		}
	}

	attempts, err := h.quiz.ListAttempts(h.dbc(), edu.ID, user)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts: want=2 got=%d", len(attempts))
	}
}

func TestPassScoreAndPerfectDefault(t *testing.T) {
	h := newHarness(t)
	edu := h.education(intp(80))
	user := uuid.New()
	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	stored, _ := h.quiz.(*quizService).questions.ListByAttempt(h.dbc(), view.Attempt.ID)
	answers := answerAll(stored, true)
	answers[stored[0].ID] = (stored[0].CorrectOptionIdx + 1) % len(stored[0].Options)

	res, err := h.quiz.Submit(h.dbc(), view.Attempt.ID, user, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 80 || !res.Passed {
		t.Fatalf("result: %+v", res)
	}
	stored2, err := h.quiz.GetResult(h.dbc(), view.Attempt.ID, user)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored2.Score != 80 || !stored2.Passed {
		t.Fatalf("stored result: %+v", stored2)
	}
}

func TestLeaveTrackingAndTimer(t *testing.T) {
	h := newHarness(t)
	edu := h.education(nil)
	user := uuid.New()
	view, err := h.quiz.StartAttempt(h.dbc(), edu.ID, user, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	for _, secs := range []int{4, 6} {
		if _, err := h.quiz.RecordLeave(h.dbc(), view.Attempt.ID, user, secs); err != nil {
			t.Fatalf("RecordLeave: %v", err)
		}
	}
	row, err := h.quiz.RecordLeave(h.dbc(), view.Attempt.ID, user, 0)
	if err != nil {
		t.Fatalf("RecordLeave: %v", err)
	}
	if row.LeaveCount != 3 || row.TotalLeaveSeconds != 10 || row.LastLeaveAt == nil {
		t.Fatalf("leave row: %+v", row)
	}
	_, err = h.quiz.RecordLeave(h.dbc(), view.Attempt.ID, user, -1)
	wantStatus(t, err, http.StatusBadRequest)

	svc := h.quiz.(*quizService)
	stored, err := svc.attempts.GetByID(h.dbc(), view.Attempt.ID)
	if err != nil || stored == nil {
		t.Fatalf("load attempt: %v", err)
	}
	created := stored.CreatedAt
	svc.now = func() time.Time { return created.Add(100 * time.Second) }
	timer, err := h.quiz.GetTimer(h.dbc(), view.Attempt.ID, user)
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if timer.RemainingSeconds != 800 || timer.IsExpired {
		t.Fatalf("timer: %+v", timer)
	}
	svc.now = func() time.Time { return created.Add(time.Hour) }
	timer, _ = h.quiz.GetTimer(h.dbc(), view.Attempt.ID, user)
	if timer.RemainingSeconds != 0 || !timer.IsExpired {
		t.Fatalf("expired timer: %+v", timer)
	}
}
