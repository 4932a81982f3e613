package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type CreateJobInput struct {
	EducationID uuid.UUID
	ScriptID    uuid.UUID
	VideoID     uuid.UUID
}

// RenderCallback is the body the AI service posts when a render finishes or progresses.
type RenderCallback struct {
	JobID    uuid.UUID `json:"jobId"`
	VideoURL string    `json:"videoUrl,omitempty"`
	Duration int       `json:"duration,omitempty"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// JobPatch carries operator corrections; nil fields are left alone.
type JobPatch struct {
	GeneratedVideoURL *string `json:"generatedVideoUrl,omitempty"`
	Duration          *int    `json:"duration,omitempty"`
	FailReason        *string `json:"failReason,omitempty"`
}

type JobFilter struct {
	VideoID     uuid.UUID
	EducationID uuid.UUID
}

type VideoJobService interface {
	// CreateJob and RetryJob also report the video transition they caused.
	CreateJob(dbc dbctx.Context, in CreateJobInput) (*types.VideoGenerationJob, *StatusChange, error)
	RetryJob(dbc dbctx.Context, jobID uuid.UUID) (*types.VideoGenerationJob, *StatusChange, error)
	HandleRenderCallback(dbc dbctx.Context, jobID uuid.UUID, payload *RenderCallback) (*CallbackResult, error)
	GetJob(dbc dbctx.Context, jobID uuid.UUID) (*types.VideoGenerationJob, error)
	ListJobs(dbc dbctx.Context, filter JobFilter) ([]*types.VideoGenerationJob, error)
	UpdateJob(dbc dbctx.Context, jobID uuid.UUID, patch JobPatch) (*types.VideoGenerationJob, error)
	DeleteJob(dbc dbctx.Context, jobID uuid.UUID) error
}

type videoJobService struct {
	db      *gorm.DB
	log     *logger.Logger
	jobs    repos.VideoJobRepo
	videos  repos.VideoRepo
	scripts repos.ScriptRepo
	review  VideoReviewService
	ai      aiservice.Client
	outbox  DispatchOutbox
	guard   *callbackGuard
	notify  PipelineNotifier
}

func NewVideoJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.VideoJobRepo,
	videos repos.VideoRepo,
	scripts repos.ScriptRepo,
	receipts repos.CallbackReceiptRepo,
	review VideoReviewService,
	ai aiservice.Client,
	outbox DispatchOutbox,
	locker entitylock.Locker,
	notify PipelineNotifier,
) VideoJobService {
	if notify == nil {
		notify = NewPipelineNotifier(nil)
	}
	if locker == nil {
		locker = entitylock.NewLocal()
	}
	s := &videoJobService{
		db:      db,
		log:     baseLog.With("service", "VideoJobService"),
		jobs:    jobs,
		videos:  videos,
		scripts: scripts,
		review:  review,
		ai:      ai,
		outbox:  outbox,
		guard:   &callbackGuard{db: db, receipts: receipts, locker: locker},
		notify:  notify,
	}
	outbox.RegisterReplayer(opsdomain.DispatchRenderJob, func(ctx context.Context, task *types.DispatchTask) error {
		job, _, err := s.RetryJob(dbctx.Context{Ctx: ctx}, task.EntityID)
		if err != nil {
			return err
		}
		if job.Status == prod.JobFailed {
			return fmt.Errorf("render job %s re-dispatch failed: %s", job.ID, job.FailReason)
		}
		return nil
	})
	return s
}

func (s *videoJobService) CreateJob(dbc dbctx.Context, in CreateJobInput) (*types.VideoGenerationJob, *StatusChange, error) {
	var (
		job    *types.VideoGenerationJob
		change *StatusChange
	)
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		video, err := s.lockVideo(inner, in.VideoID)
		if err != nil {
			return err
		}
		if video.EducationID != in.EducationID {
			return apierr.BadRequest("education_mismatch", "video %s does not belong to education %s", video.ID, in.EducationID)
		}
		if video.Status != prod.VideoScriptApproved {
			return apierr.InvalidTransition("video_not_script_approved", "video %s is %s, expected %s", video.ID, video.Status, prod.VideoScriptApproved)
		}
		script, err := s.scripts.GetByID(inner, in.ScriptID)
		if err != nil {
			return err
		}
		if script == nil {
			return apierr.NotFound("script_not_found", "script %s not found", in.ScriptID)
		}
		if script.EducationID != in.EducationID {
			return apierr.BadRequest("education_mismatch", "script %s does not belong to education %s", script.ID, in.EducationID)
		}
		if video.ScriptID == nil || *video.ScriptID != script.ID {
			return apierr.BadRequest("script_mismatch", "script %s is not the approved script of video %s", script.ID, video.ID)
		}
		if script.Status != prod.ScriptApproved {
			return apierr.BadRequest("script_not_approved", "script %s is %s", script.ID, script.Status)
		}

		job = &types.VideoGenerationJob{
			ID:            uuid.New(),
			EducationID:   in.EducationID,
			VideoID:       video.ID,
			ScriptID:      script.ID,
			ScriptVersion: script.Version,
			RequestID:     uuid.New(),
			Status:        prod.JobQueued,
		}
		if err := s.jobs.Create(inner, job); err != nil {
			return err
		}
		change, err = s.review.Apply(inner, video.ID, prod.ActionStartRender, map[string]interface{}{
			"generation_job_id": job.ID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("render job created", "job_id", job.ID, "video_id", job.VideoID, "script_version", job.ScriptVersion)
	s.notify.VideoStatusChanged(dbc.Ctx, change)

	return job, netChange(change, s.dispatch(dbc.Ctx, job)), nil
}

func (s *videoJobService) RetryJob(dbc dbctx.Context, jobID uuid.UUID) (*types.VideoGenerationJob, *StatusChange, error) {
	var (
		job    *types.VideoGenerationJob
		change *StatusChange
	)
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		var err error
		job, err = s.lockJob(inner, jobID)
		if err != nil {
			return err
		}
		switch job.Status {
		case prod.JobFailed:
		case prod.JobQueued, prod.JobProcessing:
			return apierr.Conflict("job_in_flight", "render job %s is %s", job.ID, job.Status)
		default:
			return apierr.InvalidTransition("job_not_retryable", "render job %s is %s", job.ID, job.Status)
		}
		change, err = s.review.Apply(inner, job.VideoID, prod.ActionStartRender, map[string]interface{}{
			"generation_job_id": job.ID,
		})
		if err != nil {
			return err
		}
		job.RetryCount++
		job.RequestID = uuid.New()
		job.Status = prod.JobQueued
		job.FailReason = ""
		return s.jobs.UpdateFields(inner, job.ID, map[string]interface{}{
			"retry_count": job.RetryCount,
			"request_id":  job.RequestID,
			"status":      job.Status,
			"fail_reason": "",
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("render job retried", "job_id", job.ID, "video_id", job.VideoID, "retry_count", job.RetryCount)
	s.notify.VideoStatusChanged(dbc.Ctx, change)

	return job, netChange(change, s.dispatch(dbc.Ctx, job)), nil
}

// netChange folds a dispatch rollback into the transition that started the render.
func netChange(start, rollback *StatusChange) *StatusChange {
	if rollback == nil || start == nil {
		return start
	}
	return &StatusChange{
		VideoID:        start.VideoID,
		PreviousStatus: start.PreviousStatus,
		Status:         rollback.Status,
		ChangedAt:      rollback.ChangedAt,
	}
}

// dispatch sends job to the renderer. A failed send fails the job and rolls
// the video back so RetryJob can pick it up; the rollback transition is returned.
func (s *videoJobService) dispatch(ctx context.Context, job *types.VideoGenerationJob) *StatusChange {
	req := aiservice.RenderJobRequest{
		JobID:         job.ID.String(),
		VideoID:       job.VideoID.String(),
		ScriptID:      job.ScriptID.String(),
		ScriptVersion: job.ScriptVersion,
		RequestID:     job.RequestID.String(),
	}
	task, sendErr := s.outbox.Send(ctx, opsdomain.DispatchRenderJob, job.ID, job.RequestID, req, func(ctx context.Context) error {
		return s.ai.StartRenderJob(ctx, req)
	})
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}

	if sendErr == nil {
		ok, err := s.jobs.UpdateFieldsIfStatus(dbc, job.ID, []types.JobStatus{prod.JobQueued}, map[string]interface{}{
			"status": prod.JobProcessing,
		})
		if err != nil {
			s.log.Error("mark render job processing failed", "job_id", job.ID, "error", err)
			return nil
		}
		if ok {
			job.Status = prod.JobProcessing
			s.notify.RenderJobUpdated(ctx, job)
		}
		return nil
	}

	reason := truncate("dispatch failed: "+sendErr.Error(), 1000)
	var change *StatusChange
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.jobs.UpdateFieldsIfStatus(inner, job.ID, []types.JobStatus{prod.JobQueued}, map[string]interface{}{
			"status":      prod.JobFailed,
			"fail_reason": reason,
		})
		if err != nil || !ok {
			return err
		}
		job.Status = prod.JobFailed
		job.FailReason = reason
		video, err := s.lockVideo(inner, job.VideoID)
		if err != nil {
			return err
		}
		if video.GenerationJobID == nil || *video.GenerationJobID != job.ID {
			return nil
		}
		change, _, err = s.review.TryApply(inner, video.ID, prod.ActionRenderFailed, nil)
		return err
	})
	if err != nil {
		s.log.Error("record render dispatch failure failed", "job_id", job.ID, "error", err)
		return nil
	}
	s.notify.RenderJobUpdated(ctx, job)
	s.notify.VideoStatusChanged(ctx, change)
	s.notify.DispatchDeadLettered(ctx, job.VideoID, task)
	return change
}

func (s *videoJobService) HandleRenderCallback(dbc dbctx.Context, jobID uuid.UUID, payload *RenderCallback) (*CallbackResult, error) {
	if payload == nil {
		return nil, apierr.BadRequest("callback_missing", "callback body is required")
	}
	if payload.JobID != jobID {
		return nil, apierr.BadRequest("job_mismatch", "callback job %s does not match path job %s", payload.JobID, jobID)
	}
	outcome, err := prod.ParseRenderOutcome(payload.Status)
	if err != nil {
		return nil, apierr.BadRequest("callback_status_invalid", "%v", err)
	}

	var (
		job    *types.VideoGenerationJob
		change *StatusChange
	)
	out, err := runCallback(s.guard, dbc, opsdomain.ScopeRenderCallback, jobID,
		func(tx *gorm.DB) (string, error) {
			current, err := s.jobs.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, jobID)
			if err != nil {
				return "", err
			}
			if current == nil {
				return "", apierr.NotFound("job_not_found", "render job %s not found", jobID)
			}
			// Each dispatch carries a fresh request id, so a retried job accepts a new callback.
			return callbackKey(current.RequestID.String(), payload)
		},
		func(tx *gorm.DB) (CallbackResult, string, error) {
			inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
			var err error
			job, change, err = s.applyRenderCallback(inner, jobID, outcome, payload)
			if err != nil {
				return CallbackResult{}, "", err
			}
			if job == nil {
				return CallbackResult{}, opsdomain.ReceiptIgnored, nil
			}
			return CallbackResult{Saved: true}, opsdomain.ReceiptApplied, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !out.Replayed && job != nil {
		s.notify.RenderJobUpdated(dbc.Ctx, job)
		s.notify.VideoStatusChanged(dbc.Ctx, change)
	}
	res := out.Result
	return &res, nil
}

// applyRenderCallback returns a nil job when the callback was ignored.
func (s *videoJobService) applyRenderCallback(dbc dbctx.Context, jobID uuid.UUID, outcome types.JobStatus, p *RenderCallback) (*types.VideoGenerationJob, *StatusChange, error) {
	job, err := s.lockJob(dbc, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status.Terminal() {
		s.log.Warn("render callback for finished job ignored", "job_id", job.ID, "status", job.Status, "reported", outcome)
		return nil, nil, nil
	}

	updates := map[string]interface{}{"status": outcome}
	switch outcome {
	case prod.JobCompleted:
		updates["generated_video_url"] = p.VideoURL
		updates["duration"] = p.Duration
		job.GeneratedVideoURL, job.Duration = p.VideoURL, p.Duration
	case prod.JobFailed:
		reason := truncate(p.Error, 1000)
		if reason == "" {
			reason = "render failed"
		}
		updates["fail_reason"] = reason
		job.FailReason = reason
	}
	ok, err := s.jobs.UpdateFieldsIfStatus(dbc, job.ID, []types.JobStatus{prod.JobQueued, prod.JobProcessing}, updates)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apierr.Conflict("job_status_changed", "render job %s changed status concurrently", job.ID)
	}
	job.Status = outcome

	video, err := s.lockVideo(dbc, job.VideoID)
	if err != nil {
		return nil, nil, err
	}
	if video.GenerationJobID == nil || *video.GenerationJobID != job.ID {
		s.log.Info("stale render callback; video untouched", "job_id", job.ID, "video_id", video.ID, "status", outcome)
		return job, nil, nil
	}

	var change *StatusChange
	switch outcome {
	case prod.JobCompleted:
		change, _, err = s.review.TryApply(dbc, video.ID, prod.ActionRenderCompleted, map[string]interface{}{
			"file_url": p.VideoURL,
			"duration": p.Duration,
		})
	case prod.JobFailed:
		change, _, err = s.review.TryApply(dbc, video.ID, prod.ActionRenderFailed, nil)
	}
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("render callback applied", "job_id", job.ID, "video_id", video.ID, "status", outcome)
	return job, change, nil
}

func (s *videoJobService) GetJob(dbc dbctx.Context, jobID uuid.UUID) (*types.VideoGenerationJob, error) {
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", "render job %s not found", jobID)
	}
	return job, nil
}

func (s *videoJobService) ListJobs(dbc dbctx.Context, filter JobFilter) ([]*types.VideoGenerationJob, error) {
	switch {
	case filter.VideoID != uuid.Nil:
		return s.jobs.ListByVideo(dbc, filter.VideoID)
	case filter.EducationID != uuid.Nil:
		return s.jobs.ListByEducation(dbc, filter.EducationID)
	default:
		return nil, apierr.BadRequest("job_filter_required", "a video or education id is required")
	}
}

func (s *videoJobService) UpdateJob(dbc dbctx.Context, jobID uuid.UUID, patch JobPatch) (*types.VideoGenerationJob, error) {
	var job *types.VideoGenerationJob
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		var err error
		job, err = s.lockJob(inner, jobID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if patch.GeneratedVideoURL != nil {
			job.GeneratedVideoURL = *patch.GeneratedVideoURL
			updates["generated_video_url"] = job.GeneratedVideoURL
		}
		if patch.Duration != nil {
			if *patch.Duration < 0 {
				return apierr.BadRequest("duration_invalid", "duration must not be negative")
			}
			job.Duration = *patch.Duration
			updates["duration"] = job.Duration
		}
		if patch.FailReason != nil {
			job.FailReason = *patch.FailReason
			updates["fail_reason"] = job.FailReason
		}
		if len(updates) == 0 {
			return nil
		}
		if err := s.jobs.UpdateFields(inner, job.ID, updates); err != nil {
			return err
		}
		if job.Status != prod.JobCompleted {
			return nil
		}
		video, err := s.videos.GetByID(inner, job.VideoID)
		if err != nil || video == nil {
			return err
		}
		if video.GenerationJobID == nil || *video.GenerationJobID != job.ID {
			return nil
		}
		return s.videos.UpdateFields(inner, video.ID, map[string]interface{}{
			"file_url": job.GeneratedVideoURL,
			"duration": job.Duration,
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("render job corrected", "job_id", job.ID)
	return job, nil
}

func (s *videoJobService) DeleteJob(dbc dbctx.Context, jobID uuid.UUID) error {
	return inTx(s.db, dbc, func(inner dbctx.Context) error {
		job, err := s.lockJob(inner, jobID)
		if err != nil {
			return err
		}
		if !job.Status.Terminal() {
			video, err := s.videos.GetByID(inner, job.VideoID)
			if err != nil {
				return err
			}
			if video != nil && video.GenerationJobID != nil && *video.GenerationJobID == job.ID {
				return apierr.Conflict("job_in_flight", "render job %s is the video's current %s job", job.ID, job.Status)
			}
		}
		if err := s.jobs.SoftDelete(inner, job.ID); err != nil {
			return err
		}
		s.log.Info("render job deleted", "job_id", job.ID, "video_id", job.VideoID)
		return nil
	})
}

func (s *videoJobService) lockJob(dbc dbctx.Context, id uuid.UUID) (*types.VideoGenerationJob, error) {
	job, err := s.jobs.GetByIDForUpdate(dbc, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", "render job %s not found", id)
	}
	return job, nil
}

func (s *videoJobService) lockVideo(dbc dbctx.Context, id uuid.UUID) (*types.Video, error) {
	video, err := s.videos.GetByIDForUpdate(dbc, id)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, apierr.NotFound("video_not_found", "video %s not found", id)
	}
	return video, nil
}
