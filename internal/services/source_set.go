package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/clients/docregistry"
	dbpkg "github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// Values of SourceSetCallback.Status.
const (
	CallbackStatusProcessing = "PROCESSING"
	CallbackStatusCompleted  = "COMPLETED"
	CallbackStatusFailed     = "FAILED"
)

type CreateSourceSetInput struct {
	Title       string
	Domain      string
	RequestedBy uuid.UUID
	EducationID uuid.UUID
	VideoID     uuid.UUID
	DocumentIDs []uuid.UUID
}

type DocumentResultDTO struct {
	DocumentID  uuid.UUID  `json:"documentId"`
	Status      string     `json:"status"`
	FailReason  string     `json:"failReason,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SourceSetCallback is the body the AI service posts when it has progress on a source set.
type SourceSetCallback struct {
	RequestID       string              `json:"requestId"`
	VideoID         *uuid.UUID          `json:"videoId,omitempty"`
	Status          string              `json:"status"`
	SourceSetStatus string              `json:"sourceSetStatus,omitempty"`
	Script          *ScriptDTO          `json:"script,omitempty"`
	ScriptPatch     *ScenePatchDTO      `json:"scriptPatch,omitempty"`
	Documents       []DocumentResultDTO `json:"documents,omitempty"`
	ErrorCode       string              `json:"errorCode,omitempty"`
	ErrorMessage    string              `json:"errorMessage,omitempty"`
	TraceID         string              `json:"traceId,omitempty"`
	Error           string              `json:"error,omitempty"` // older form of errorMessage
}

// failReason renders the error fields as "CODE: message".
func (p *SourceSetCallback) failReason() string {
	msg := strings.TrimSpace(p.ErrorMessage)
	if msg == "" {
		msg = strings.TrimSpace(p.Error)
	}
	code := strings.TrimSpace(p.ErrorCode)
	switch {
	case code != "" && msg != "":
		return code + ": " + msg
	case code != "":
		return code
	}
	return msg
}

type CallbackResult struct {
	Saved    bool       `json:"saved"`
	ScriptID *uuid.UUID `json:"scriptId,omitempty"`
}

// DocumentInfo is a source set member joined with its registry record.
type DocumentInfo struct {
	DocumentID uuid.UUID            `json:"documentId"`
	Status     types.DocumentStatus `json:"status"`
	FailReason string               `json:"failReason,omitempty"`
	Title      string               `json:"title"`
	MimeType   string               `json:"mimeType"`
	URL        string               `json:"url"`
	SizeBytes  int64                `json:"sizeBytes"`
	PageCount  int                  `json:"pageCount"`
}

type SourceSetService interface {
	CreateSourceSet(dbc dbctx.Context, in CreateSourceSetInput) (*types.SourceSet, error)
	RetryDispatch(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.SourceSet, error)
	UpdateDocuments(dbc dbctx.Context, sourceSetID uuid.UUID, add, remove []uuid.UUID) (*types.SourceSet, error)
	GetDocuments(dbc dbctx.Context, sourceSetID uuid.UUID) ([]DocumentInfo, error)
	HandleCompletionCallback(dbc dbctx.Context, sourceSetID uuid.UUID, payload *SourceSetCallback) (*CallbackResult, error)
	DeleteSourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) error
	Get(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.SourceSet, error)
}

type sourceSetService struct {
	db          *gorm.DB
	log         *logger.Logger
	sourceSets  repos.SourceSetRepo
	docs        repos.SourceSetDocumentRepo
	videos      repos.VideoRepo
	educations  repos.EducationRepo
	scripts     ScriptService
	review      VideoReviewService
	ai          aiservice.Client
	registry    docregistry.Client
	outbox      DispatchOutbox
	guard       *callbackGuard
	notify      PipelineNotifier
	concurrency int
}

func NewSourceSetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sourceSets repos.SourceSetRepo,
	docs repos.SourceSetDocumentRepo,
	videos repos.VideoRepo,
	educations repos.EducationRepo,
	receipts repos.CallbackReceiptRepo,
	scripts ScriptService,
	review VideoReviewService,
	ai aiservice.Client,
	registry docregistry.Client,
	outbox DispatchOutbox,
	locker entitylock.Locker,
	notify PipelineNotifier,
	docConcurrency int,
) SourceSetService {
	if notify == nil {
		notify = NewPipelineNotifier(nil)
	}
	if locker == nil {
		locker = entitylock.NewLocal()
	}
	if docConcurrency <= 0 {
		docConcurrency = 8
	}
	s := &sourceSetService{
		db:          db,
		log:         baseLog.With("service", "SourceSetService"),
		sourceSets:  sourceSets,
		docs:        docs,
		videos:      videos,
		educations:  educations,
		scripts:     scripts,
		review:      review,
		ai:          ai,
		registry:    registry,
		outbox:      outbox,
		guard:       &callbackGuard{db: db, receipts: receipts, locker: locker},
		notify:      notify,
		concurrency: docConcurrency,
	}
	outbox.RegisterReplayer(opsdomain.DispatchSourceSetStart, func(ctx context.Context, task *types.DispatchTask) error {
		set, err := s.sourceSets.GetByID(dbctx.Context{Ctx: ctx}, task.EntityID)
		if err != nil {
			return err
		}
		if set == nil {
			return apierr.NotFound("source_set_not_found", "source set %s not found", task.EntityID)
		}
		if err := s.checkRedispatchable(dbctx.Context{Ctx: ctx}, set); err != nil {
			return err
		}
		return s.dispatch(ctx, set)
	})
	return s
}

func (s *sourceSetService) CreateSourceSet(dbc dbctx.Context, in CreateSourceSetInput) (*types.SourceSet, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.BadRequest("source_set_title_required", "title is required")
	}
	docIDs := distinctIDs(in.DocumentIDs)

	set := &types.SourceSet{
		ID:          uuid.New(),
		Title:       title,
		Domain:      strings.TrimSpace(in.Domain),
		RequestedBy: in.RequestedBy,
		EducationID: in.EducationID,
		VideoID:     in.VideoID,
		Status:      prod.SourceSetCreated,
	}
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		video, err := s.videos.GetByID(inner, in.VideoID)
		if err != nil {
			return err
		}
		if video == nil {
			return apierr.NotFound("video_not_found", "video %s not found", in.VideoID)
		}
		edu, err := s.educations.GetByID(inner, in.EducationID)
		if err != nil {
			return err
		}
		if edu == nil {
			return apierr.NotFound("education_not_found", "education %s not found", in.EducationID)
		}
		if video.EducationID != edu.ID {
			return apierr.BadRequest("education_mismatch", "video %s does not belong to education %s", video.ID, edu.ID)
		}
		live, err := s.sourceSets.GetLiveByVideoID(inner, video.ID)
		if err != nil {
			return err
		}
		if live != nil {
			return apierr.Conflict("source_set_exists", "video %s already has source set %s", video.ID, live.ID)
		}
		if err := s.sourceSets.Create(inner, set); err != nil {
			if dbpkg.IsUniqueViolation(err) {
				return apierr.Conflict("source_set_exists", "video %s already has a source set", video.ID)
			}
			return err
		}
		_, err = s.docs.AddMissing(inner, set.ID, docIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("source set created",
		"source_set_id", set.ID,
		"video_id", set.VideoID,
		"requested_by", set.RequestedBy,
		"documents", len(docIDs),
	)

	if err := s.dispatch(dbc.Ctx, set); err != nil {
		s.log.Warn("source set dispatch failed; left for retry", "source_set_id", set.ID, "error", err)
	}
	return s.withDocuments(dbc, set)
}

func (s *sourceSetService) RetryDispatch(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.SourceSet, error) {
	set, err := s.Get(dbc, sourceSetID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRedispatchable(dbc, set); err != nil {
		return nil, err
	}
	if err := s.dispatch(dbc.Ctx, set); err != nil {
		s.log.Warn("source set re-dispatch failed", "source_set_id", set.ID, "error", err)
	}
	return set, nil
}

// checkRedispatchable allows a new AI run for a set that never started, failed,
// or whose latest script was rejected at the script gate.
func (s *sourceSetService) checkRedispatchable(dbc dbctx.Context, set *types.SourceSet) error {
	switch set.Status {
	case prod.SourceSetCreated, prod.SourceSetFailed:
		return nil
	case prod.SourceSetScriptReady:
		versions, err := s.scripts.ListScriptVersions(dbc, set.ID)
		if err != nil {
			return err
		}
		if len(versions) == 0 || versions[len(versions)-1].Status != prod.ScriptRejected {
			break
		}
		video, err := s.videos.GetByID(dbc, set.VideoID)
		if err != nil {
			return err
		}
		if video != nil && video.Status == prod.VideoScriptReady {
			return nil
		}
	}
	return apierr.InvalidTransition("source_set_not_retryable", "source set %s is %s", set.ID, set.Status)
}

// dispatch asks the AI service to start processing set. It runs outside any
// transaction and moves the set to PROCESSING on success.
func (s *sourceSetService) dispatch(ctx context.Context, set *types.SourceSet) error {
	requestID := uuid.New()
	req := aiservice.StartSourceSetRequest{
		RequestID:   requestID.String(),
		TraceID:     ctxutil.TraceID(ctx),
		VideoID:     set.VideoID.String(),
		EducationID: set.EducationID.String(),
	}
	task, err := s.outbox.Send(ctx, opsdomain.DispatchSourceSetStart, set.ID, requestID, req, func(ctx context.Context) error {
		return s.ai.StartSourceSet(ctx, set.ID, req)
	})
	if err != nil {
		s.notify.DispatchDeadLettered(ctx, set.VideoID, task)
		return err
	}
	ok, err := s.sourceSets.UpdateStatusIf(dbctx.Context{Ctx: ctx}, set.ID,
		[]types.SourceSetStatus{prod.SourceSetCreated, prod.SourceSetFailed, prod.SourceSetScriptReady}, prod.SourceSetProcessing)
	if err != nil {
		return fmt.Errorf("mark source set processing: %w", err)
	}
	if ok {
		set.Status = prod.SourceSetProcessing
		s.notify.SourceSetUpdated(ctx, set)
	}
	return nil
}

func (s *sourceSetService) UpdateDocuments(dbc dbctx.Context, sourceSetID uuid.UUID, add, remove []uuid.UUID) (*types.SourceSet, error) {
	var set *types.SourceSet
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		var err error
		set, err = s.lockSet(inner, sourceSetID)
		if err != nil {
			return err
		}
		if set.Status == prod.SourceSetLocked {
			return apierr.Conflict("source_set_locked", "source set %s is locked", set.ID)
		}
		if ids := distinctIDs(add); len(ids) > 0 {
			if _, err := s.docs.AddMissing(inner, set.ID, ids); err != nil {
				return err
			}
		}
		if ids := distinctIDs(remove); len(ids) > 0 {
			if err := s.docs.Remove(inner, set.ID, ids); err != nil {
				return err
			}
		}
		set, err = s.withDocuments(inner, set)
		return err
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *sourceSetService) GetDocuments(dbc dbctx.Context, sourceSetID uuid.UUID) ([]DocumentInfo, error) {
	set, err := s.sourceSets.GetByID(dbc, sourceSetID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apierr.NotFound("source_set_not_found", "source set %s not found", sourceSetID)
	}
	members, err := s.docs.ListBySourceSet(dbc, set.ID)
	if err != nil {
		return nil, err
	}

	found := make([]*DocumentInfo, len(members))
	g, gctx := errgroup.WithContext(dbc.Ctx)
	g.SetLimit(s.concurrency)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			doc, err := s.registry.GetDocument(gctx, m.DocumentID)
			if err != nil {
				s.log.Warn("document lookup failed", "source_set_id", set.ID, "document_id", m.DocumentID, "error", err)
				return nil
			}
			if doc == nil {
				return nil
			}
			found[i] = &DocumentInfo{
				DocumentID: m.DocumentID,
				Status:     m.Status,
				FailReason: m.FailReason,
				Title:      doc.Title,
				MimeType:   doc.MimeType,
				URL:        doc.URL,
				SizeBytes:  doc.SizeBytes,
				PageCount:  doc.PageCount,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]DocumentInfo, 0, len(members))
	for _, info := range found {
		if info != nil {
			out = append(out, *info)
		}
	}
	return out, nil
}

func (s *sourceSetService) HandleCompletionCallback(dbc dbctx.Context, sourceSetID uuid.UUID, payload *SourceSetCallback) (*CallbackResult, error) {
	if payload == nil {
		return nil, apierr.BadRequest("callback_missing", "callback body is required")
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	switch status {
	case CallbackStatusProcessing, CallbackStatusCompleted, CallbackStatusFailed:
	default:
		return nil, apierr.BadRequest("callback_status_invalid", "unknown callback status %q", payload.Status)
	}
	if status == CallbackStatusCompleted && payload.Script == nil && payload.ScriptPatch == nil {
		return nil, apierr.BadRequest("callback_script_missing", "completed callback carries no script")
	}

	var after []func(ctx context.Context)
	out, err := runCallback(s.guard, dbc, opsdomain.ScopeSourceSetCallback, sourceSetID,
		func(*gorm.DB) (string, error) { return callbackKey(payload.RequestID, payload) },
		func(tx *gorm.DB) (CallbackResult, string, error) {
			after = after[:0]
			inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
			return s.applyCallback(inner, sourceSetID, status, payload, &after)
		},
	)
	if err != nil {
		return nil, err
	}
	if out.Replayed {
		s.log.Info("source set callback replayed", "source_set_id", sourceSetID, "request_id", payload.RequestID)
	} else {
		for _, fn := range after {
			fn(dbc.Ctx)
		}
	}
	res := out.Result
	return &res, nil
}

func (s *sourceSetService) applyCallback(dbc dbctx.Context, sourceSetID uuid.UUID, status string, p *SourceSetCallback, after *[]func(ctx context.Context)) (CallbackResult, string, error) {
	var res CallbackResult
	set, err := s.lockSet(dbc, sourceSetID)
	if err != nil {
		return res, "", err
	}
	if p.VideoID != nil && *p.VideoID != set.VideoID {
		return res, "", apierr.BadRequest("video_mismatch", "callback video %s does not match source set video %s", *p.VideoID, set.VideoID)
	}
	if set.Status == prod.SourceSetLocked {
		s.log.Warn("callback for locked source set ignored", "source_set_id", set.ID, "request_id", p.RequestID)
		return res, opsdomain.ReceiptIgnored, nil
	}

	for _, d := range p.Documents {
		ds, err := prod.ParseDocumentStatus(strings.ToUpper(d.Status))
		if err != nil {
			return res, "", apierr.BadRequest("document_status_invalid", "document %s: %v", d.DocumentID, err)
		}
		at := time.Now().UTC()
		if d.CompletedAt != nil {
			at = d.CompletedAt.UTC()
		}
		if _, err := s.docs.ApplyResult(dbc, set.ID, d.DocumentID, ds, d.FailReason, at); err != nil {
			return res, "", err
		}
	}

	newStatus := set.Status
	switch {
	case status == CallbackStatusFailed:
		newStatus = prod.SourceSetFailed
		res.Saved = true
		reason := truncate(p.failReason(), 1000)
		if err := s.sourceSets.UpdateFields(dbc, set.ID, map[string]interface{}{"fail_reason": reason}); err != nil {
			return res, "", err
		}
		set.FailReason = reason
		s.log.WithContext(dbc.Ctx).Warn("source set processing failed",
			"source_set_id", set.ID,
			"error_code", p.ErrorCode,
			"error_message", reason,
			"callback_trace_id", p.TraceID,
		)

	case status == CallbackStatusCompleted && p.Script != nil:
		script, err := s.scripts.IngestFullScript(dbc, set.ID, p.Script)
		if err != nil {
			return res, "", err
		}
		newStatus = prod.SourceSetScriptReady
		if raw := strings.TrimSpace(p.SourceSetStatus); raw != "" {
			parsed, err := prod.ParseSourceSetStatus(strings.ToUpper(raw))
			if err != nil {
				return res, "", apierr.BadRequest("source_set_status_invalid", "%v", err)
			}
			newStatus = parsed
		}
		id := script.ID
		res.Saved, res.ScriptID = true, &id
		change, _, err := s.review.TryApply(dbc, set.VideoID, prod.ActionScriptReady, map[string]interface{}{"script_id": id})
		if err != nil {
			return res, "", err
		}
		*after = append(*after, func(ctx context.Context) { s.notify.VideoStatusChanged(ctx, change) })

	case p.ScriptPatch != nil:
		script, saved, err := s.scripts.IngestScenePatch(dbc, set.ID, p.ScriptPatch)
		if err != nil {
			return res, "", err
		}
		if !saved {
			break
		}
		id := script.ID
		res.Saved, res.ScriptID = true, &id
		newStatus = prod.SourceSetScriptGenerating
		change, _, err := s.review.TryApply(dbc, set.VideoID, prod.ActionScriptPatched, map[string]interface{}{"script_id": id})
		if err != nil {
			return res, "", err
		}
		patch := *p.ScriptPatch
		videoID := set.VideoID
		*after = append(*after,
			func(ctx context.Context) { s.notify.VideoStatusChanged(ctx, change) },
			func(ctx context.Context) {
				s.notify.ScenePatched(ctx, videoID, id, patch.ChapterIndex, patch.SceneIndex)
			},
		)

	case status == CallbackStatusProcessing:
		if set.Status == prod.SourceSetCreated {
			newStatus = prod.SourceSetProcessing
		}
		res.Saved = len(p.Documents) > 0
	}

	changed := newStatus != set.Status
	if changed {
		if err := s.sourceSets.UpdateStatus(dbc, set.ID, newStatus); err != nil {
			return res, "", err
		}
		set.Status = newStatus
		updated := *set
		*after = append(*after, func(ctx context.Context) { s.notify.SourceSetUpdated(ctx, &updated) })
	}

	outcome := opsdomain.ReceiptApplied
	if !res.Saved && !changed && len(p.Documents) == 0 {
		outcome = opsdomain.ReceiptIgnored
	}
	s.log.Info("source set callback applied",
		"source_set_id", set.ID,
		"request_id", p.RequestID,
		"status", set.Status,
		"saved", res.Saved,
	)
	return res, outcome, nil
}

func (s *sourceSetService) DeleteSourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) error {
	return inTx(s.db, dbc, func(inner dbctx.Context) error {
		set, err := s.lockSet(inner, sourceSetID)
		if err != nil {
			return err
		}
		if set.Status == prod.SourceSetLocked {
			return apierr.Conflict("source_set_locked", "source set %s is locked", set.ID)
		}
		if err := s.docs.RemoveAll(inner, set.ID); err != nil {
			return err
		}
		if err := s.sourceSets.SoftDelete(inner, set.ID); err != nil {
			return err
		}
		s.log.Info("source set deleted", "source_set_id", set.ID, "video_id", set.VideoID)
		return nil
	})
}

func (s *sourceSetService) Get(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.SourceSet, error) {
	set, err := s.sourceSets.GetByID(dbc, sourceSetID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apierr.NotFound("source_set_not_found", "source set %s not found", sourceSetID)
	}
	return s.withDocuments(dbc, set)
}

func (s *sourceSetService) lockSet(dbc dbctx.Context, id uuid.UUID) (*types.SourceSet, error) {
	set, err := s.sourceSets.GetByIDForUpdate(dbc, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apierr.NotFound("source_set_not_found", "source set %s not found", id)
	}
	return set, nil
}

func (s *sourceSetService) withDocuments(dbc dbctx.Context, set *types.SourceSet) (*types.SourceSet, error) {
	docs, err := s.docs.ListBySourceSet(dbc, set.ID)
	if err != nil {
		return nil, err
	}
	set.Documents = docs
	return set, nil
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
