package services

import (
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	dbpkg "github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	quizdomain "github.com/yungbote/eduvideo-backend/internal/domain/quiz"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

//go:embed quiz_placeholders.yaml
var placeholderYAML []byte

type placeholderQuestion struct {
	Question    string   `yaml:"question"`
	Options     []string `yaml:"options"`
	Correct     int      `yaml:"correct"`
	Explanation string   `yaml:"explanation"`
}

var (
	placeholderOnce sync.Once
	placeholderBank []placeholderQuestion
	placeholderErr  error
)

func placeholders() ([]placeholderQuestion, error) {
	placeholderOnce.Do(func() {
		var doc struct {
			Questions []placeholderQuestion `yaml:"questions"`
		}
		if err := yaml.Unmarshal(placeholderYAML, &doc); err != nil {
			placeholderErr = fmt.Errorf("parse placeholder questions: %w", err)
			return
		}
		if len(doc.Questions) == 0 {
			placeholderErr = fmt.Errorf("placeholder question bank is empty")
			return
		}
		placeholderBank = doc.Questions
	})
	return placeholderBank, placeholderErr
}

type AttemptView struct {
	Attempt          *types.QuizAttempt    `json:"attempt"`
	Questions        []*types.QuizQuestion `json:"questions"`
	RemainingSeconds int                   `json:"remainingSeconds"`
	Resumed          bool                  `json:"resumed"`
}

type QuizResult struct {
	AttemptID    uuid.UUID `json:"attemptId"`
	AttemptNo    int       `json:"attemptNo"`
	Score        int       `json:"score"`
	Passed       bool      `json:"passed"`
	CorrectCount int       `json:"correctCount"`
	TotalCount   int       `json:"totalCount"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// WrongNote never carries the correct option.
type WrongNote struct {
	QuestionID        uuid.UUID `json:"questionId"`
	QuestionOrder     int       `json:"questionOrder"`
	Question          string    `json:"question"`
	Options           []string  `json:"options"`
	SelectedOptionIdx *int      `json:"selectedOptionIdx"`
	SourceText        string    `json:"sourceText"`
	Explanation       string    `json:"explanation"`
}

type QuizTimer struct {
	AttemptID        uuid.UUID `json:"attemptId"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	IsExpired        bool      `json:"isExpired"`
}

type QuizService interface {
	StartAttempt(dbc dbctx.Context, educationID, userID uuid.UUID, department string) (*AttemptView, error)
	SaveAnswers(dbc dbctx.Context, attemptID, userID uuid.UUID, answers map[uuid.UUID]int) error
	Submit(dbc dbctx.Context, attemptID, userID uuid.UUID, answers map[uuid.UUID]int) (*QuizResult, error)
	GetResult(dbc dbctx.Context, attemptID, userID uuid.UUID) (*QuizResult, error)
	GetWrongNotes(dbc dbctx.Context, attemptID, userID uuid.UUID) ([]WrongNote, error)
	RecordLeave(dbc dbctx.Context, attemptID, userID uuid.UUID, seconds int) (*types.QuizLeaveTracking, error)
	GetTimer(dbc dbctx.Context, attemptID, userID uuid.UUID) (*QuizTimer, error)
	ListAttempts(dbc dbctx.Context, educationID, userID uuid.UUID) ([]*types.QuizAttempt, error)
}

type quizService struct {
	db         *gorm.DB
	log        *logger.Logger
	attempts   repos.QuizAttemptRepo
	questions  repos.QuizQuestionRepo
	leaves     repos.QuizLeaveTrackingRepo
	educations repos.EducationRepo
	scripts    ScriptService
	ai         aiservice.Client

	count     int
	timeLimit int
	now       func() time.Time
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attempts repos.QuizAttemptRepo,
	questions repos.QuizQuestionRepo,
	leaves repos.QuizLeaveTrackingRepo,
	educations repos.EducationRepo,
	scripts ScriptService,
	ai aiservice.Client,
	questionCount int,
	timeLimitSeconds int,
) QuizService {
	if questionCount <= 0 {
		questionCount = quizdomain.DefaultQuestionCount
	}
	if timeLimitSeconds <= 0 {
		timeLimitSeconds = quizdomain.DefaultTimeLimitSeconds
	}
	return &quizService{
		db:         db,
		log:        baseLog.With("service", "QuizService"),
		attempts:   attempts,
		questions:  questions,
		leaves:     leaves,
		educations: educations,
		scripts:    scripts,
		ai:         ai,
		count:      questionCount,
		timeLimit:  timeLimitSeconds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *quizService) StartAttempt(dbc dbctx.Context, educationID, userID uuid.UUID, department string) (*AttemptView, error) {
	edu, err := s.educations.GetByID(dbc, educationID)
	if err != nil {
		return nil, err
	}
	if edu == nil {
		return nil, apierr.NotFound("education_not_found", "education %s not found", educationID)
	}
	if open, err := s.attempts.GetOpen(dbc, userID, educationID); err != nil {
		return nil, err
	} else if open != nil {
		return s.view(dbc, open, true)
	}

	drafts, err := s.buildQuestions(dbc, educationID, userID)
	if err != nil {
		return nil, err
	}

	var attempt *types.QuizAttempt
	resumed := false
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		open, err := s.attempts.GetOpen(inner, userID, educationID)
		if err != nil {
			return err
		}
		if open != nil {
			attempt, resumed = open, true
			return nil
		}
		last, err := s.attempts.MaxAttemptNo(inner, userID, educationID)
		if err != nil {
			return err
		}
		attempt = &types.QuizAttempt{
			ID:          uuid.New(),
			UserUUID:    userID,
			EducationID: educationID,
			AttemptNo:   last + 1,
			Version:     1,
			TimeLimit:   s.timeLimit,
			Department:  strings.TrimSpace(department),
		}
		if err := s.attempts.Create(inner, attempt); err != nil {
			return err
		}
		for i, q := range drafts {
			q.ID = uuid.New()
			q.AttemptID = attempt.ID
			q.QuestionOrder = i + 1
		}
		if err := s.questions.Create(inner, drafts); err != nil {
			return err
		}
		return s.leaves.Create(inner, &types.QuizLeaveTracking{AttemptID: attempt.ID})
	})
	if err != nil {
		if !dbpkg.IsUniqueViolation(err) {
			return nil, err
		}
		// A concurrent start won; hand back its attempt.
		open, gerr := s.attempts.GetOpen(dbc, userID, educationID)
		if gerr != nil || open == nil {
			return nil, apierr.Conflict("quiz_attempt_conflict", "quiz attempt start raced: %v", err)
		}
		attempt, resumed = open, true
	}
	if !resumed {
		s.log.Info("quiz attempt started",
			"attempt_id", attempt.ID,
			"user_uuid", userID,
			"education_id", educationID,
			"attempt_no", attempt.AttemptNo,
			"questions", len(drafts),
		)
	}
	return s.view(dbc, attempt, resumed)
}

// buildQuestions asks the generator for questions over the latest approved
// script and falls back to the placeholder bank. It never fails on generator errors.
func (s *quizService) buildQuestions(dbc dbctx.Context, educationID, userID uuid.UUID) ([]*types.QuizQuestion, error) {
	_, scenes, err := s.scripts.LatestApprovedScenes(dbc, educationID)
	if err != nil {
		return nil, err
	}
	blocks := make([]aiservice.QuizBlock, 0, len(scenes))
	for _, sc := range scenes {
		text := sc.Text()
		if text == "" {
			continue
		}
		blocks = append(blocks, aiservice.QuizBlock{Index: len(blocks), SceneID: sc.ID.String(), Text: text})
	}

	exclude, err := s.excludedQuestions(dbc, userID, educationID)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		s.log.Warn("no approved script content; using placeholder questions", "education_id", educationID)
		return s.placeholderQuestions()
	}
	resp, err := s.ai.GenerateQuiz(dbc.Ctx, aiservice.QuizRequest{
		EducationID:      educationID.String(),
		Count:            s.count,
		Blocks:           blocks,
		ExcludeQuestions: exclude,
	})
	if err != nil {
		s.log.Warn("quiz generation failed; using placeholder questions", "education_id", educationID, "error", err)
		return s.placeholderQuestions()
	}

	out := s.usableQuestions(resp, blocks, exclude)
	if len(out) == 0 {
		s.log.Warn("quiz generator returned no usable questions; using placeholder questions", "education_id", educationID)
		return s.placeholderQuestions()
	}
	return out, nil
}

func (s *quizService) excludedQuestions(dbc dbctx.Context, userID, educationID uuid.UUID) ([]string, error) {
	ids, err := s.attempts.ListSubmittedIDs(dbc, userID, educationID)
	if err != nil {
		return nil, err
	}
	texts, err := s.questions.ListTextsByAttempts(dbc, ids)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		key := normalizeQuestion(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(t))
	}
	return out, nil
}

// usableQuestions drops malformed, repeated and excluded questions one by one.
func (s *quizService) usableQuestions(resp *aiservice.QuizResponse, blocks []aiservice.QuizBlock, exclude []string) []*types.QuizQuestion {
	if resp == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(exclude)+len(resp.Questions))
	for _, t := range exclude {
		seen[normalizeQuestion(t)] = struct{}{}
	}
	out := make([]*types.QuizQuestion, 0, s.count)
	for i, g := range resp.Questions {
		if len(out) == s.count {
			break
		}
		if reason := invalidQuestion(g); reason != "" {
			s.log.Debug("generated question dropped", "index", i, "reason", reason)
			continue
		}
		key := normalizeQuestion(g.Question)
		if _, dup := seen[key]; dup {
			s.log.Debug("generated question dropped", "index", i, "reason", "repeated or excluded")
			continue
		}
		seen[key] = struct{}{}

		source := ""
		if g.BlockIndex != nil && *g.BlockIndex >= 0 && *g.BlockIndex < len(blocks) {
			source = blocks[*g.BlockIndex].Text
		}
		options := make([]string, len(g.Options))
		for j, o := range g.Options {
			options[j] = strings.TrimSpace(o)
		}
		out = append(out, &types.QuizQuestion{
			Question:         strings.TrimSpace(g.Question),
			Options:          datatypes.JSONSlice[string](options),
			CorrectOptionIdx: g.CorrectOptionIdx,
			Explanation:      strings.TrimSpace(g.Explanation),
			SourceText:       source,
		})
	}
	return out
}

func invalidQuestion(g aiservice.GeneratedQuestion) string {
	if strings.TrimSpace(g.Question) == "" {
		return "blank question"
	}
	if len(g.Options) < 2 {
		return "fewer than two options"
	}
	for _, o := range g.Options {
		if strings.TrimSpace(o) == "" {
			return "blank option"
		}
	}
	if g.CorrectOptionIdx < 0 || g.CorrectOptionIdx >= len(g.Options) {
		return "correct option out of range"
	}
	return ""
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func (s *quizService) placeholderQuestions() ([]*types.QuizQuestion, error) {
	bank, err := placeholders()
	if err != nil {
		return nil, err
	}
	out := make([]*types.QuizQuestion, 0, s.count)
	for i := 0; i < s.count; i++ {
		p := bank[i%len(bank)]
		out = append(out, &types.QuizQuestion{
			Question:         p.Question,
			Options:          datatypes.JSONSlice[string](append([]string(nil), p.Options...)),
			CorrectOptionIdx: p.Correct,
			Explanation:      p.Explanation,
		})
	}
	return out, nil
}

func (s *quizService) view(dbc dbctx.Context, attempt *types.QuizAttempt, resumed bool) (*AttemptView, error) {
	qs, err := s.questions.ListByAttempt(dbc, attempt.ID)
	if err != nil {
		return nil, err
	}
	return &AttemptView{
		Attempt:          attempt,
		Questions:        qs,
		RemainingSeconds: int(attempt.Remaining(s.now()) / time.Second),
		Resumed:          resumed,
	}, nil
}

func (s *quizService) SaveAnswers(dbc dbctx.Context, attemptID, userID uuid.UUID, answers map[uuid.UUID]int) error {
	return inTx(s.db, dbc, func(inner dbctx.Context) error {
		attempt, err := s.ownedOpenAttempt(inner, attemptID, userID)
		if err != nil {
			return err
		}
		_, err = s.applyAnswers(inner, attempt.ID, answers)
		return err
	})
}

func (s *quizService) Submit(dbc dbctx.Context, attemptID, userID uuid.UUID, answers map[uuid.UUID]int) (*QuizResult, error) {
	var res *QuizResult
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		attempt, err := s.ownedOpenAttempt(inner, attemptID, userID)
		if err != nil {
			return err
		}
		qs, err := s.applyAnswers(inner, attempt.ID, answers)
		if err != nil {
			return err
		}
		edu, err := s.educations.GetByID(inner, attempt.EducationID)
		if err != nil {
			return err
		}
		var passScore *int
		if edu != nil {
			passScore = edu.PassScore
		}
		correct := countCorrect(qs)
		score, passed := grade(correct, len(qs), passScore)
		at := s.now()
		ok, err := s.attempts.MarkSubmitted(inner, attempt.ID, score, passed, at)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("quiz_already_submitted", "attempt %s is already submitted", attempt.ID)
		}
		res = &QuizResult{
			AttemptID:    attempt.ID,
			AttemptNo:    attempt.AttemptNo,
			Score:        score,
			Passed:       passed,
			CorrectCount: correct,
			TotalCount:   len(qs),
			SubmittedAt:  at,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncQuizSubmit(res.Passed)
	s.log.Info("quiz attempt submitted", "attempt_id", res.AttemptID, "user_uuid", userID, "score", res.Score, "passed", res.Passed)
	return res, nil
}

// applyAnswers validates and stores answers, returning the attempt's
// questions with the new selections applied.
func (s *quizService) applyAnswers(dbc dbctx.Context, attemptID uuid.UUID, answers map[uuid.UUID]int) ([]*types.QuizQuestion, error) {
	qs, err := s.questions.ListByAttempt(dbc, attemptID)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return qs, nil
	}
	byID := make(map[uuid.UUID]*types.QuizQuestion, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	for qid, idx := range answers {
		q, ok := byID[qid]
		if !ok {
			return nil, apierr.BadRequest("quiz_question_unknown", "question %s is not part of attempt %s", qid, attemptID)
		}
		if idx < 0 || idx >= len(q.Options) {
			return nil, apierr.BadRequest("quiz_option_out_of_range", "option %d is out of range for question %s", idx, qid)
		}
	}
	for qid, idx := range answers {
		if err := s.questions.SetSelected(dbc, qid, idx); err != nil {
			return nil, err
		}
		sel := idx
		byID[qid].UserSelectedOptionIdx = &sel
	}
	return qs, nil
}

func countCorrect(qs []*types.QuizQuestion) int {
	n := 0
	for _, q := range qs {
		if q.Correct() {
			n++
		}
	}
	return n
}

// grade scores correct/total as a rounded percentage. Without a pass score
// only a perfect attempt passes.
func grade(correct, total int, passScore *int) (int, bool) {
	if total == 0 {
		return 0, false
	}
	score := int(math.Round(float64(correct) * 100 / float64(total)))
	if passScore == nil {
		return score, correct == total
	}
	return score, score >= *passScore
}

func (s *quizService) GetResult(dbc dbctx.Context, attemptID, userID uuid.UUID) (*QuizResult, error) {
	attempt, qs, err := s.submittedAttempt(dbc, attemptID, userID)
	if err != nil {
		return nil, err
	}
	res := &QuizResult{
		AttemptID:    attempt.ID,
		AttemptNo:    attempt.AttemptNo,
		CorrectCount: countCorrect(qs),
		TotalCount:   len(qs),
		SubmittedAt:  *attempt.SubmittedAt,
	}
	if attempt.Score != nil {
		res.Score = *attempt.Score
	}
	if attempt.Passed != nil {
		res.Passed = *attempt.Passed
	}
	return res, nil
}

func (s *quizService) GetWrongNotes(dbc dbctx.Context, attemptID, userID uuid.UUID) ([]WrongNote, error) {
	_, qs, err := s.submittedAttempt(dbc, attemptID, userID)
	if err != nil {
		return nil, err
	}
	notes := make([]WrongNote, 0, len(qs))
	for _, q := range qs {
		if q.Correct() {
			continue
		}
		notes = append(notes, WrongNote{
			QuestionID:        q.ID,
			QuestionOrder:     q.QuestionOrder,
			Question:          q.Question,
			Options:           []string(q.Options),
			SelectedOptionIdx: q.UserSelectedOptionIdx,
			SourceText:        q.SourceText,
			Explanation:       q.Explanation,
		})
	}
	return notes, nil
}

func (s *quizService) RecordLeave(dbc dbctx.Context, attemptID, userID uuid.UUID, seconds int) (*types.QuizLeaveTracking, error) {
	if seconds < 0 {
		return nil, apierr.BadRequest("leave_seconds_invalid", "seconds must not be negative")
	}
	var row *types.QuizLeaveTracking
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		attempt, err := s.ownedOpenAttempt(inner, attemptID, userID)
		if err != nil {
			return err
		}
		if err := s.leaves.Increment(inner, attempt.ID, seconds, s.now()); err != nil {
			return err
		}
		row, err = s.leaves.Get(inner, attempt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *quizService) GetTimer(dbc dbctx.Context, attemptID, userID uuid.UUID) (*QuizTimer, error) {
	attempt, err := s.ownedAttempt(dbc, attemptID, userID)
	if err != nil {
		return nil, err
	}
	remaining := int(attempt.Remaining(s.now()) / time.Second)
	return &QuizTimer{
		AttemptID:        attempt.ID,
		TimeLimitSeconds: attempt.TimeLimit,
		RemainingSeconds: remaining,
		IsExpired:        remaining == 0,
	}, nil
}

func (s *quizService) ListAttempts(dbc dbctx.Context, educationID, userID uuid.UUID) ([]*types.QuizAttempt, error) {
	return s.attempts.ListByUserEducation(dbc, userID, educationID)
}

func (s *quizService) ownedAttempt(dbc dbctx.Context, attemptID, userID uuid.UUID) (*types.QuizAttempt, error) {
	attempt, err := s.attempts.GetByID(dbc, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apierr.NotFound("quiz_attempt_not_found", "attempt %s not found", attemptID)
	}
	if attempt.UserUUID != userID {
		return nil, apierr.Forbidden("quiz_attempt_forbidden", "attempt %s belongs to another user", attemptID)
	}
	return attempt, nil
}

func (s *quizService) ownedOpenAttempt(dbc dbctx.Context, attemptID, userID uuid.UUID) (*types.QuizAttempt, error) {
	attempt, err := s.ownedAttempt(dbc, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Submitted() {
		return nil, apierr.Conflict("quiz_already_submitted", "attempt %s is already submitted", attemptID)
	}
	return attempt, nil
}

func (s *quizService) submittedAttempt(dbc dbctx.Context, attemptID, userID uuid.UUID) (*types.QuizAttempt, []*types.QuizQuestion, error) {
	attempt, err := s.ownedAttempt(dbc, attemptID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !attempt.Submitted() {
		return nil, nil, apierr.Conflict("quiz_not_submitted", "attempt %s is not submitted yet", attemptID)
	}
	qs, err := s.questions.ListByAttempt(dbc, attempt.ID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, qs, nil
}
