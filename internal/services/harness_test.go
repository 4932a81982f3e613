package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/clients/docregistry"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

type fakeAI struct {
	mu sync.Mutex

	startSetErr error
	renderErr   error
	quizResp    *aiservice.QuizResponse
	quizErr     error

	startSetCalls []aiservice.StartSourceSetRequest
	renderCalls   []aiservice.RenderJobRequest
	quizCalls     []aiservice.QuizRequest
}

func (f *fakeAI) StartSourceSet(ctx context.Context, sourceSetID uuid.UUID, req aiservice.StartSourceSetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startSetCalls = append(f.startSetCalls, req)
	return f.startSetErr
}

func (f *fakeAI) StartRenderJob(ctx context.Context, req aiservice.RenderJobRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderCalls = append(f.renderCalls, req)
	return f.renderErr
}

func (f *fakeAI) GenerateQuiz(ctx context.Context, req aiservice.QuizRequest) (*aiservice.QuizResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quizCalls = append(f.quizCalls, req)
	return f.quizResp, f.quizErr
}

type fakeRegistry struct {
	docs map[uuid.UUID]*docregistry.Document
}

func (f *fakeRegistry) GetDocument(ctx context.Context, id uuid.UUID) (*docregistry.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, errors.New("registry: not found")
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) count(event realtime.SSEEvent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

type harness struct {
	t        *testing.T
	db       *gorm.DB
	ai       *fakeAI
	registry *fakeRegistry
	events   *recordingEmitter

	educations repos.EducationRepo
	videos     repos.VideoRepo
	sourceSets repos.SourceSetRepo
	docs       repos.SourceSetDocumentRepo
	scriptRepo repos.ScriptRepo
	content    repos.ScriptContentRepo
	jobRepo    repos.VideoJobRepo
	reviewRepo repos.VideoReviewRepo
	tasks      repos.DispatchTaskRepo

	outbox  DispatchOutbox
	scripts ScriptService
	review  VideoReviewService
	sets    SourceSetService
	jobs    VideoJobService
	quiz    QuizService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	h := &harness{
		t:        t,
		db:       db,
		ai:       &fakeAI{},
		registry: &fakeRegistry{docs: map[uuid.UUID]*docregistry.Document{}},
		events:   &recordingEmitter{},

		educations: repos.NewEducationRepo(db, log),
		videos:     repos.NewVideoRepo(db, log),
		sourceSets: repos.NewSourceSetRepo(db, log),
		docs:       repos.NewSourceSetDocumentRepo(db, log),
		scriptRepo: repos.NewScriptRepo(db, log),
		content:    repos.NewScriptContentRepo(db, log),
		jobRepo:    repos.NewVideoJobRepo(db, log),
		reviewRepo: repos.NewVideoReviewRepo(db, log),
		tasks:      repos.NewDispatchTaskRepo(db, log),
	}
	receipts := repos.NewCallbackReceiptRepo(db, log)
	locker := entitylock.NewLocal()
	notify := NewPipelineNotifier(h.events)

	h.outbox = NewDispatchOutbox(log, h.tasks)
	h.scripts = NewScriptService(db, log, nil, h.sourceSets, h.scriptRepo, h.content)
	h.review = NewVideoReviewService(db, log, h.videos, h.reviewRepo, h.educations, h.sourceSets, h.scripts, notify)
	h.sets = NewSourceSetService(db, log, h.sourceSets, h.docs, h.videos, h.educations, receipts,
		h.scripts, h.review, h.ai, h.registry, h.outbox, locker, notify, 4)
	h.jobs = NewVideoJobService(db, log, h.jobRepo, h.videos, h.scriptRepo, receipts,
		h.review, h.ai, h.outbox, locker, notify)
	h.quiz = NewQuizService(db, log,
		repos.NewQuizAttemptRepo(db, log),
		repos.NewQuizQuestionRepo(db, log),
		repos.NewQuizLeaveTrackingRepo(db, log),
		h.educations, h.scripts, h.ai, 5, 900)
	return h
}

func (h *harness) dbc() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func (h *harness) education(passScore *int) *types.Education {
	h.t.Helper()
	edu := &types.Education{ID: uuid.New(), Title: "Forklift safety", PassScore: passScore}
	if err := h.educations.Create(h.dbc(), edu); err != nil {
		h.t.Fatalf("create education: %v", err)
	}
	return edu
}

func (h *harness) video(edu *types.Education) *types.Video {
	h.t.Helper()
	v, err := h.review.CreateVideo(h.dbc(), CreateVideoInput{
		EducationID: edu.ID,
		Title:       "Lesson 1",
		CreatorUUID: uuid.New(),
	})
	if err != nil {
		h.t.Fatalf("CreateVideo: %v", err)
	}
	return v
}

func (h *harness) sourceSet(edu *types.Education, v *types.Video, docIDs ...uuid.UUID) *types.SourceSet {
	h.t.Helper()
	set, err := h.sets.CreateSourceSet(h.dbc(), CreateSourceSetInput{
		Title:       "Handbook",
		RequestedBy: uuid.New(),
		EducationID: edu.ID,
		VideoID:     v.ID,
		DocumentIDs: docIDs,
	})
	if err != nil {
		h.t.Fatalf("CreateSourceSet: %v", err)
	}
	return set
}

func (h *harness) reloadVideo(id uuid.UUID) *types.Video {
	h.t.Helper()
	v, err := h.videos.GetByID(h.dbc(), id)
	if err != nil || v == nil {
		h.t.Fatalf("reload video %s: %v", id, err)
	}
	return v
}

func (h *harness) reloadSet(id uuid.UUID) *types.SourceSet {
	h.t.Helper()
	set, err := h.sourceSets.GetByID(h.dbc(), id)
	if err != nil || set == nil {
		h.t.Fatalf("reload source set %s: %v", id, err)
	}
	return set
}

func (h *harness) reloadJob(id uuid.UUID) *types.VideoGenerationJob {
	h.t.Helper()
	job, err := h.jobRepo.GetByID(h.dbc(), id)
	if err != nil || job == nil {
		h.t.Fatalf("reload job %s: %v", id, err)
	}
	return job
}

func sampleScript() *ScriptDTO {
	return &ScriptDTO{
		Title:            "Forklift safety",
		TotalDurationSec: 120,
		LLMModel:         "gpt-test",
		Chapters: []ChapterDTO{
			{
				ChapterIndex: 0,
				Title:        "Before you drive",
				DurationSec:  60,
				Scenes: []SceneDTO{
					{SceneIndex: 0, Narration: "Walk around the forklift and check the forks for cracks.", DurationSec: 30, ConfidenceScore: 0.9},
					{SceneIndex: 1, Caption: "Seatbelt on before the engine starts.", DurationSec: 30, ConfidenceScore: 0.8},
				},
			},
			{
				ChapterIndex: 1,
				Title:        "Loading",
				DurationSec:  60,
				Scenes: []SceneDTO{
					{SceneIndex: 0, Narration: "Keep the load low and tilted back while moving.", DurationSec: 60, ConfidenceScore: 0.7},
				},
			},
		},
	}
}

// readyForReview drives a fresh video to SCRIPT_READY through a completion callback.
func (h *harness) readyForReview() (*types.Education, *types.Video, *types.SourceSet, uuid.UUID) {
	h.t.Helper()
	edu := h.education(nil)
	v := h.video(edu)
	set := h.sourceSet(edu, v, uuid.New())
	res, err := h.sets.HandleCompletionCallback(h.dbc(), set.ID, &SourceSetCallback{
		RequestID: "req-complete",
		Status:    CallbackStatusCompleted,
		Script:    sampleScript(),
	})
	if err != nil {
		h.t.Fatalf("HandleCompletionCallback: %v", err)
	}
	if res.ScriptID == nil {
		h.t.Fatalf("HandleCompletionCallback: no script id")
	}
	return edu, v, set, *res.ScriptID
}

// scriptApproved drives a fresh video through the script gate.
func (h *harness) scriptApproved() (*types.Education, *types.Video, uuid.UUID) {
	h.t.Helper()
	edu, v, _, scriptID := h.readyForReview()
	if _, err := h.review.RequestReview(h.dbc(), v.ID); err != nil {
		h.t.Fatalf("RequestReview: %v", err)
	}
	if _, err := h.review.Approve(h.dbc(), v.ID, uuid.New()); err != nil {
		h.t.Fatalf("Approve: %v", err)
	}
	return edu, v, scriptID
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apierr.StatusOf(err); got != status {
		t.Fatalf("error status: want=%d got=%d (%v)", status, got, err)
	}
}
