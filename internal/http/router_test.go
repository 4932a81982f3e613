package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/clients/docregistry"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/testutil"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	httpH "github.com/yungbote/eduvideo-backend/internal/http/handlers"
	httpMW "github.com/yungbote/eduvideo-backend/internal/http/middleware"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
	"github.com/yungbote/eduvideo-backend/internal/services"
	"github.com/yungbote/eduvideo-backend/internal/temporalx/dispatchrun"
)

const (
	testSecret   = "router-test-secret"
	testInternal = "router-internal-token"
)

type stubAI struct{}

func (stubAI) StartSourceSet(ctx context.Context, id uuid.UUID, req aiservice.StartSourceSetRequest) error {
	return nil
}

func (stubAI) StartRenderJob(ctx context.Context, req aiservice.RenderJobRequest) error { return nil }

func (stubAI) GenerateQuiz(ctx context.Context, req aiservice.QuizRequest) (*aiservice.QuizResponse, error) {
	return nil, errors.New("generator offline")
}

type stubRegistry struct{}

func (stubRegistry) GetDocument(ctx context.Context, id uuid.UUID) (*docregistry.Document, error) {
	return &docregistry.Document{ID: id.String(), Title: "doc"}, nil
}

type nopEmitter struct{}

func (nopEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {}

type fixture struct {
	t          *testing.T
	engine     *gin.Engine
	educations repos.EducationRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	educations := repos.NewEducationRepo(db, log)
	videos := repos.NewVideoRepo(db, log)
	sourceSets := repos.NewSourceSetRepo(db, log)
	scriptRepo := repos.NewScriptRepo(db, log)
	receipts := repos.NewCallbackReceiptRepo(db, log)
	locker := entitylock.NewLocal()
	notify := services.NewPipelineNotifier(nopEmitter{})
	ai := stubAI{}

	outbox := services.NewDispatchOutbox(log, repos.NewDispatchTaskRepo(db, log))
	scripts := services.NewScriptService(db, log, nil, sourceSets, scriptRepo, repos.NewScriptContentRepo(db, log))
	review := services.NewVideoReviewService(db, log, videos, repos.NewVideoReviewRepo(db, log), educations, sourceSets, scripts, notify)
	sets := services.NewSourceSetService(db, log, sourceSets, repos.NewSourceSetDocumentRepo(db, log), videos, educations, receipts,
		scripts, review, ai, stubRegistry{}, outbox, locker, notify, 4)
	jobs := services.NewVideoJobService(db, log, repos.NewVideoJobRepo(db, log), videos, scriptRepo, receipts,
		review, ai, outbox, locker, notify)
	quiz := services.NewQuizService(db, log,
		repos.NewQuizAttemptRepo(db, log),
		repos.NewQuizQuestionRepo(db, log),
		repos.NewQuizLeaveTrackingRepo(db, log),
		educations, scripts, ai, 5, 900)

	engine := NewRouter(RouterConfig{
		Log:              log,
		InternalToken:    testInternal,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, testSecret),
		HealthHandler:    httpH.NewHealthHandler(db),
		VideoHandler:     httpH.NewVideoHandler(review),
		SourceSetHandler: httpH.NewSourceSetHandler(sets, scripts),
		VideoJobHandler:  httpH.NewVideoJobHandler(jobs),
		QuizHandler:      httpH.NewQuizHandler(quiz),
		DispatchHandler:  httpH.NewDispatchHandler(outbox, dispatchrun.NewScheduler(log, nil, "", 0, outbox)),
	})
	return &fixture{t: t, engine: engine, educations: educations}
}

func (f *fixture) token(role string) string {
	f.t.Helper()
	tok, err := httpMW.SignToken(testSecret, uuid.New(), role, "ops", time.Hour)
	if err != nil {
		f.t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func (f *fixture) education() *types.Education {
	f.t.Helper()
	edu := &types.Education{ID: uuid.New(), Title: "Ladder safety"}
	if err := f.educations.Create(dbctx.Context{Ctx: context.Background()}, edu); err != nil {
		f.t.Fatalf("create education: %v", err)
	}
	return edu
}

func (f *fixture) do(method, path, token string, body any, header ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (f *fixture) createVideo(edu *types.Education) uuid.UUID {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/videos", f.token(ctxutil.RoleReviewer), map[string]any{
		"educationId": edu.ID.String(),
		"title":       "Lesson 1",
	})
	if rec.Code != http.StatusCreated {
		f.t.Fatalf("create video: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	out := decode[struct {
		Video struct {
			ID uuid.UUID `json:"id"`
		} `json:"video"`
	}](f.t, rec)
	return out.Video.ID
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodGet, "/healthcheck", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/videos/"+uuid.NewString(), "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
}

func TestCreateAndGetVideo(t *testing.T) {
	f := newFixture(t)
	id := f.createVideo(f.education())

	rec := f.do(http.MethodGet, "/api/videos/"+id.String(), f.token(ctxutil.RoleLearner), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get video: want=%d got=%d", http.StatusOK, rec.Code)
	}
	out := decode[struct {
		Video struct {
			Status string `json:"status"`
		} `json:"video"`
	}](t, rec)
	if out.Video.Status != "DRAFT" {
		t.Fatalf("status: want=DRAFT got=%s", out.Video.Status)
	}

	if rec := f.do(http.MethodGet, "/api/videos/"+uuid.NewString(), f.token(ctxutil.RoleLearner), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing video: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/videos/not-a-uuid", f.token(ctxutil.RoleLearner), nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
}

func TestReviewActionsNeedReviewerRole(t *testing.T) {
	f := newFixture(t)
	id := f.createVideo(f.education())

	rec := f.do(http.MethodPost, "/api/videos/"+id.String()+"/review/approve", f.token(ctxutil.RoleLearner), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("learner approve: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	rec = f.do(http.MethodPost, "/api/admin/unsafe/videos/"+id.String()+"/force-status", f.token(ctxutil.RoleReviewer),
		map[string]string{"status": "PUBLISHED", "reason": "demo"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("reviewer force-status: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
}

func TestRejectWithoutReason(t *testing.T) {
	f := newFixture(t)
	id := f.createVideo(f.education())

	rec := f.do(http.MethodPost, "/api/videos/"+id.String()+"/review/reject", f.token(ctxutil.RoleReviewer),
		map[string]string{"reason": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank reason: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	f := newFixture(t)
	id := f.createVideo(f.education())

	rec := f.do(http.MethodPost, "/api/videos/"+id.String()+"/review/publish", f.token(ctxutil.RoleReviewer), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("publish draft: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestOperatorForceStatus(t *testing.T) {
	f := newFixture(t)
	id := f.createVideo(f.education())

	rec := f.do(http.MethodPost, "/api/admin/unsafe/videos/"+id.String()+"/force-status", f.token(ctxutil.RoleOperator),
		map[string]string{"status": "DISABLED", "reason": "takedown"})
	if rec.Code != http.StatusOK {
		t.Fatalf("force-status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	out := decode[struct {
		Change struct {
			Status string `json:"status"`
		} `json:"change"`
	}](t, rec)
	if out.Change.Status != "DISABLED" {
		t.Fatalf("forced status: want=DISABLED got=%s", out.Change.Status)
	}
}

func TestInternalCallbacksNeedToken(t *testing.T) {
	f := newFixture(t)
	jobID := uuid.New()
	path := "/internal/video/job/" + jobID.String() + "/complete"
	body := map[string]any{"jobId": jobID.String(), "status": "COMPLETED"}

	if rec := f.do(http.MethodPost, path, "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no internal token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
	if rec := f.do(http.MethodPost, path, "", body, "X-Internal-Token", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong internal token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
	// a user JWT is not an internal token
	if rec := f.do(http.MethodPost, path, f.token(ctxutil.RoleOperator), body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("jwt on internal route: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRenderCallbackJobMismatch(t *testing.T) {
	f := newFixture(t)
	path := "/internal/video/job/" + uuid.NewString() + "/complete"
	body := map[string]any{"jobId": uuid.NewString(), "status": "COMPLETED"}

	rec := f.do(http.MethodPost, path, "", body, "X-Internal-Token", testInternal)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched job: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestQuizStartAndSubmit(t *testing.T) {
	f := newFixture(t)
	edu := f.education()
	learner := f.token(ctxutil.RoleLearner)

	rec := f.do(http.MethodPost, "/api/educations/"+edu.ID.String()+"/quiz/attempts", learner, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	view := decode[struct {
		Attempt struct {
			ID uuid.UUID `json:"id"`
		} `json:"attempt"`
		Questions []struct {
			ID uuid.UUID `json:"id"`
		} `json:"questions"`
	}](t, rec)
	if len(view.Questions) != 5 {
		t.Fatalf("placeholder questions: want=5 got=%d", len(view.Questions))
	}

	// same learner resumes the open attempt
	again := f.do(http.MethodPost, "/api/educations/"+edu.ID.String()+"/quiz/attempts", learner, nil)
	if again.Code != http.StatusOK {
		t.Fatalf("resume: want=%d got=%d", http.StatusOK, again.Code)
	}

	// another user cannot touch the attempt
	other := f.token(ctxutil.RoleLearner)
	submitPath := "/api/quiz/attempts/" + view.Attempt.ID.String() + "/submit"
	if rec := f.do(http.MethodPost, submitPath, other, nil); rec.Code != http.StatusForbidden && rec.Code != http.StatusNotFound {
		t.Fatalf("foreign submit: want 403 or 404, got=%d", rec.Code)
	}

	rec = f.do(http.MethodPost, submitPath, learner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	res := decode[services.QuizResult](t, rec)
	if res.TotalCount != 5 || res.CorrectCount != 0 || res.Passed {
		t.Fatalf("result: want total=5 correct=0 passed=false got=%+v", res)
	}

	if rec := f.do(http.MethodPost, submitPath, learner, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second submit: want=%d got=%d", http.StatusConflict, rec.Code)
	}
}

func TestDispatchAdminRoutes(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/api/admin/dispatch-tasks", f.token(ctxutil.RoleReviewer), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("reviewer list: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	rec := f.do(http.MethodGet, "/api/admin/dispatch-tasks", f.token(ctxutil.RoleOperator), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("operator list: want=%d got=%d", http.StatusOK, rec.Code)
	}
	rec = f.do(http.MethodPost, "/api/admin/dispatch-tasks/"+uuid.NewString()+"/replay", f.token(ctxutil.RoleOperator), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("replay unknown: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

// scriptApproved drives a new video through source processing and the script gate over HTTP.
func (f *fixture) scriptApproved(edu *types.Education) (videoID, scriptID uuid.UUID) {
	f.t.Helper()
	reviewer := f.token(ctxutil.RoleReviewer)
	videoID = f.createVideo(edu)

	rec := f.do(http.MethodPost, "/api/source-sets", reviewer, map[string]any{
		"title":       "Ladder handbook",
		"educationId": edu.ID.String(),
		"videoId":     videoID.String(),
		"documentIds": []string{uuid.NewString()},
	})
	if rec.Code != http.StatusCreated {
		f.t.Fatalf("create source set: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	set := decode[struct {
		SourceSet struct {
			ID uuid.UUID `json:"id"`
		} `json:"sourceSet"`
	}](f.t, rec)

	rec = f.do(http.MethodPost, "/internal/source-sets/"+set.SourceSet.ID.String()+"/complete", "", map[string]any{
		"requestId": "req-script",
		"status":    "COMPLETED",
		"script": map[string]any{
			"title":            "Ladder safety",
			"totalDurationSec": 20,
			"chapters": []map[string]any{{
				"chapterIndex": 0,
				"title":        "Setup",
				"durationSec":  20,
				"scenes": []map[string]any{{
					"sceneIndex":      0,
					"narration":       "Face the ladder and keep three points of contact.",
					"durationSec":     20,
					"confidenceScore": 0.8,
				}},
			}},
		},
	}, "X-Internal-Token", testInternal)
	if rec.Code != http.StatusOK {
		f.t.Fatalf("script callback: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	cb := decode[services.CallbackResult](f.t, rec)
	if cb.ScriptID == nil {
		f.t.Fatalf("script callback returned no script id")
	}

	for _, action := range []string{"request", "approve"} {
		rec = f.do(http.MethodPost, "/api/videos/"+videoID.String()+"/review/"+action, reviewer, nil)
		if rec.Code != http.StatusOK {
			f.t.Fatalf("review %s: want=%d got=%d body=%s", action, http.StatusOK, rec.Code, rec.Body.String())
		}
	}
	return videoID, *cb.ScriptID
}

func TestCreateJobReportsVideoTransition(t *testing.T) {
	f := newFixture(t)
	edu := f.education()
	videoID, scriptID := f.scriptApproved(edu)

	rec := f.do(http.MethodPost, "/api/video-jobs", f.token(ctxutil.RoleReviewer), map[string]string{
		"educationId": edu.ID.String(),
		"scriptId":    scriptID.String(),
		"videoId":     videoID.String(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	out := decode[struct {
		Job struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"job"`
		Change services.StatusChange `json:"change"`
	}](t, rec)
	if out.Job.ID == uuid.Nil || out.Job.Status != "PROCESSING" {
		t.Fatalf("job: %+v", out.Job)
	}
	if out.Change.VideoID != videoID || out.Change.PreviousStatus != "SCRIPT_APPROVED" || out.Change.Status != "PROCESSING" {
		t.Fatalf("change: %+v", out.Change)
	}
	if out.Change.ChangedAt.IsZero() {
		t.Fatalf("change has no timestamp")
	}
}

func TestCreateJobRejectsScriptOfAnotherVideo(t *testing.T) {
	f := newFixture(t)
	edu := f.education()
	videoA, _ := f.scriptApproved(edu)
	_, scriptB := f.scriptApproved(edu)

	rec := f.do(http.MethodPost, "/api/video-jobs", f.token(ctxutil.RoleReviewer), map[string]string{
		"educationId": edu.ID.String(),
		"scriptId":    scriptB.String(),
		"videoId":     videoA.String(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("foreign script: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}
