package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// StatusChange is returned by every operation that moves a video.
type StatusChange struct {
	VideoID        uuid.UUID         `json:"videoId"`
	PreviousStatus types.VideoStatus `json:"previousStatus"`
	Status         types.VideoStatus `json:"status"`
	ChangedAt      time.Time         `json:"changedAt"`
}

const (
	ReviewEventCreated     = "CREATED"
	ReviewEventAutoChecked = "AUTO_CHECKED"
	ReviewEventRejected    = "REJECTED"
)

type ReviewEvent struct {
	Type          string               `json:"type"`
	At            time.Time            `json:"at"`
	Stage         types.RejectionStage `json:"stage,omitempty"`
	Comment       string               `json:"comment,omitempty"`
	ReviewerUUID  *uuid.UUID           `json:"reviewerUuid,omitempty"`
	ScriptID      *uuid.UUID           `json:"scriptId,omitempty"`
	ScriptVersion int                  `json:"scriptVersion,omitempty"`
}

type CreateVideoInput struct {
	EducationID     uuid.UUID
	Title           string
	OrderIndex      int
	CreatorUUID     uuid.UUID
	DepartmentScope []string
}

type VideoReviewService interface {
	CreateVideo(dbc dbctx.Context, in CreateVideoInput) (*types.Video, error)
	GetVideo(dbc dbctx.Context, videoID uuid.UUID) (*types.Video, error)
	ListVideos(dbc dbctx.Context, educationID uuid.UUID) ([]*types.Video, error)

	RequestReview(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error)
	Approve(dbc dbctx.Context, videoID, reviewerID uuid.UUID) (*StatusChange, error)
	// Publish is the deprecated name of Approve.
	Publish(dbc dbctx.Context, videoID, reviewerID uuid.UUID) (*StatusChange, error)
	Reject(dbc dbctx.Context, videoID, reviewerID uuid.UUID, reason string) (*StatusChange, error)
	Disable(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error)
	Enable(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error)
	UnsafeForceStatus(dbc dbctx.Context, videoID uuid.UUID, status types.VideoStatus, operatorID uuid.UUID, reason string) (*StatusChange, error)

	GetReviewHistory(dbc dbctx.Context, videoID uuid.UUID) ([]ReviewEvent, error)

	// Apply runs a guarded transition inside dbc.Tx. Off-graph actions fail
	// with an InvalidTransition error and change nothing.
	Apply(dbc dbctx.Context, videoID uuid.UUID, action types.VideoAction, extra map[string]interface{}) (*StatusChange, error)
	// TryApply is Apply for pipeline-driven transitions: an off-graph action
	// is reported as applied=false instead of an error.
	TryApply(dbc dbctx.Context, videoID uuid.UUID, action types.VideoAction, extra map[string]interface{}) (change *StatusChange, applied bool, err error)
}

type videoReviewService struct {
	db         *gorm.DB
	log        *logger.Logger
	videos     repos.VideoRepo
	reviews    repos.VideoReviewRepo
	educations repos.EducationRepo
	sourceSets repos.SourceSetRepo
	scripts    ScriptService
	notify     PipelineNotifier
}

func NewVideoReviewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	videos repos.VideoRepo,
	reviews repos.VideoReviewRepo,
	educations repos.EducationRepo,
	sourceSets repos.SourceSetRepo,
	scripts ScriptService,
	notify PipelineNotifier,
) VideoReviewService {
	if notify == nil {
		notify = NewPipelineNotifier(nil)
	}
	return &videoReviewService{
		db:         db,
		log:        baseLog.With("service", "VideoReviewService"),
		videos:     videos,
		reviews:    reviews,
		educations: educations,
		sourceSets: sourceSets,
		scripts:    scripts,
		notify:     notify,
	}
}

func (s *videoReviewService) CreateVideo(dbc dbctx.Context, in CreateVideoInput) (*types.Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.BadRequest("video_title_required", "title is required")
	}
	edu, err := s.educations.GetByID(dbc, in.EducationID)
	if err != nil {
		return nil, err
	}
	if edu == nil {
		return nil, apierr.NotFound("education_not_found", "education %s not found", in.EducationID)
	}
	scope := in.DepartmentScope
	if scope == nil {
		scope = []string{}
	}
	video := &types.Video{
		ID:              uuid.New(),
		EducationID:     edu.ID,
		Title:           title,
		Version:         1,
		Status:          prod.VideoDraft,
		OrderIndex:      in.OrderIndex,
		CreatorUUID:     in.CreatorUUID,
		DepartmentScope: datatypes.JSONSlice[string](scope),
	}
	if err := s.videos.Create(dbc, video); err != nil {
		return nil, err
	}
	s.log.Info("video created", "video_id", video.ID, "education_id", edu.ID, "creator_uuid", in.CreatorUUID)
	return video, nil
}

func (s *videoReviewService) GetVideo(dbc dbctx.Context, videoID uuid.UUID) (*types.Video, error) {
	video, err := s.videos.GetByID(dbc, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, apierr.NotFound("video_not_found", "video %s not found", videoID)
	}
	return video, nil
}

func (s *videoReviewService) ListVideos(dbc dbctx.Context, educationID uuid.UUID) ([]*types.Video, error) {
	return s.videos.ListByEducation(dbc, educationID)
}

func (s *videoReviewService) RequestReview(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error) {
	return s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		return s.Apply(inner, videoID, prod.ActionRequestReview, nil)
	})
}

func (s *videoReviewService) Approve(dbc dbctx.Context, videoID, reviewerID uuid.UUID) (*StatusChange, error) {
	change, err := s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		video, err := s.lockVideo(inner, videoID)
		if err != nil {
			return nil, err
		}
		stage, atGate := prod.ReviewStage(video.Status)
		change, err := s.Apply(inner, videoID, prod.ActionApprove, nil)
		if err != nil {
			return nil, err
		}
		if atGate && stage == prod.RejectionStageScript {
			if err := s.closeScriptGate(inner, video); err != nil {
				return nil, err
			}
		}
		return change, nil
	})
	if err == nil {
		s.log.Info("video approved", "video_id", videoID, "reviewer_uuid", reviewerID, "status", change.Status)
	}
	return change, err
}

func (s *videoReviewService) Publish(dbc dbctx.Context, videoID, reviewerID uuid.UUID) (*StatusChange, error) {
	return s.Approve(dbc, videoID, reviewerID)
}

// closeScriptGate approves the reviewed script and locks its source set.
func (s *videoReviewService) closeScriptGate(dbc dbctx.Context, video *types.Video) error {
	if video.ScriptID != nil {
		if err := s.scripts.SetStatus(dbc, *video.ScriptID, prod.ScriptApproved); err != nil {
			return err
		}
	}
	set, err := s.sourceSets.GetLiveByVideoID(dbc, video.ID)
	if err != nil {
		return err
	}
	if set != nil {
		return s.sourceSets.UpdateStatus(dbc, set.ID, prod.SourceSetLocked)
	}
	return nil
}

func (s *videoReviewService) Reject(dbc dbctx.Context, videoID, reviewerID uuid.UUID, reason string) (*StatusChange, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apierr.BadRequest("reject_reason_required", "a rejection reason is required")
	}
	change, err := s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		video, err := s.lockVideo(inner, videoID)
		if err != nil {
			return nil, err
		}
		stage, _ := prod.ReviewStage(video.Status)
		change, err := s.Apply(inner, videoID, prod.ActionReject, nil)
		if err != nil {
			return nil, err
		}
		if err := s.reviews.Create(inner, &types.VideoReview{
			ID:             uuid.New(),
			VideoID:        videoID,
			Comment:        reason,
			ReviewerUUID:   reviewerID,
			RejectionStage: stage,
		}); err != nil {
			return nil, err
		}
		if stage == prod.RejectionStageScript && video.ScriptID != nil {
			if err := s.scripts.SetStatus(inner, *video.ScriptID, prod.ScriptRejected); err != nil {
				return nil, err
			}
		}
		return change, nil
	})
	if err == nil {
		s.log.Info("video rejected", "video_id", videoID, "reviewer_uuid", reviewerID, "status", change.Status)
	}
	return change, err
}

func (s *videoReviewService) Disable(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error) {
	return s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		return s.Apply(inner, videoID, prod.ActionDisable, nil)
	})
}

func (s *videoReviewService) Enable(dbc dbctx.Context, videoID uuid.UUID) (*StatusChange, error) {
	return s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		return s.Apply(inner, videoID, prod.ActionEnable, nil)
	})
}

func (s *videoReviewService) UnsafeForceStatus(dbc dbctx.Context, videoID uuid.UUID, status types.VideoStatus, operatorID uuid.UUID, reason string) (*StatusChange, error) {
	if !status.Valid() {
		return nil, apierr.BadRequest("invalid_status", "unknown video status %q", status)
	}
	change, err := s.transact(dbc, func(inner dbctx.Context) (*StatusChange, error) {
		video, err := s.lockVideo(inner, videoID)
		if err != nil {
			return nil, err
		}
		if err := s.videos.UpdateFields(inner, videoID, map[string]interface{}{"status": status}); err != nil {
			return nil, err
		}
		return &StatusChange{VideoID: videoID, PreviousStatus: video.Status, Status: status, ChangedAt: time.Now().UTC()}, nil
	})
	if err == nil {
		s.log.Warn("UNSAFE video status override",
			"video_id", videoID,
			"operator_uuid", operatorID,
			"from", change.PreviousStatus,
			"to", change.Status,
			"reason", reason,
		)
	}
	return change, err
}

func (s *videoReviewService) GetReviewHistory(dbc dbctx.Context, videoID uuid.UUID) ([]ReviewEvent, error) {
	video, err := s.GetVideo(dbc, videoID)
	if err != nil {
		return nil, err
	}
	events := []ReviewEvent{{Type: ReviewEventCreated, At: video.CreatedAt}}

	set, err := s.sourceSets.GetLiveByVideoID(dbc, videoID)
	if err != nil {
		return nil, err
	}
	if set != nil {
		versions, err := s.scripts.ListScriptVersions(dbc, set.ID)
		if err != nil {
			return nil, err
		}
		for _, sc := range versions {
			id := sc.ID
			events = append(events, ReviewEvent{Type: ReviewEventAutoChecked, At: sc.CreatedAt, ScriptID: &id, ScriptVersion: sc.Version})
		}
	}

	rejections, err := s.reviews.ListByVideo(dbc, videoID)
	if err != nil {
		return nil, err
	}
	for _, r := range rejections {
		reviewer := r.ReviewerUUID
		events = append(events, ReviewEvent{
			Type:         ReviewEventRejected,
			At:           r.CreatedAt,
			Stage:        r.RejectionStage,
			Comment:      r.Comment,
			ReviewerUUID: &reviewer,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events, nil
}

func (s *videoReviewService) Apply(dbc dbctx.Context, videoID uuid.UUID, action types.VideoAction, extra map[string]interface{}) (*StatusChange, error) {
	change, applied, err := s.apply(dbc, videoID, action, extra)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apierr.InvalidTransition("invalid_transition", "cannot %s a video in status %s", action, change.PreviousStatus)
	}
	return change, nil
}

func (s *videoReviewService) TryApply(dbc dbctx.Context, videoID uuid.UUID, action types.VideoAction, extra map[string]interface{}) (*StatusChange, bool, error) {
	change, applied, err := s.apply(dbc, videoID, action, extra)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		s.log.Warn("pipeline transition skipped", "video_id", videoID, "action", action, "status", change.PreviousStatus)
		return nil, false, nil
	}
	return change, true, nil
}

// apply reports applied=false with PreviousStatus set when action has no edge
// from the video's current state.
func (s *videoReviewService) apply(dbc dbctx.Context, videoID uuid.UUID, action types.VideoAction, extra map[string]interface{}) (*StatusChange, bool, error) {
	video, err := s.lockVideo(dbc, videoID)
	if err != nil {
		return nil, false, err
	}
	to, err := prod.NextVideoStatus(action, video.Status)
	var ite *prod.InvalidTransitionError
	if errors.As(err, &ite) {
		return &StatusChange{VideoID: videoID, PreviousStatus: video.Status, Status: video.Status}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ok, err := s.videos.Transition(dbc, videoID, video.Status, to, extra)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, apierr.Conflict("video_status_changed", "video %s changed status concurrently", videoID)
	}
	return &StatusChange{VideoID: videoID, PreviousStatus: video.Status, Status: to, ChangedAt: time.Now().UTC()}, true, nil
}

func (s *videoReviewService) lockVideo(dbc dbctx.Context, videoID uuid.UUID) (*types.Video, error) {
	video, err := s.videos.GetByIDForUpdate(dbc, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, apierr.NotFound("video_not_found", "video %s not found", videoID)
	}
	return video, nil
}

// transact runs fn in one transaction and announces the change once committed.
func (s *videoReviewService) transact(dbc dbctx.Context, fn func(inner dbctx.Context) (*StatusChange, error)) (*StatusChange, error) {
	var change *StatusChange
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		var err error
		change, err = fn(inner)
		return err
	})
	if err != nil {
		return nil, err
	}
	if change != nil && change.Status != change.PreviousStatus {
		observability.Current().IncTransition("video", string(change.Status))
	}
	s.notify.VideoStatusChanged(dbc.Ctx, change)
	return change, nil
}
