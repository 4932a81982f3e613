package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type VideoJobRepo interface {
	Create(dbc dbctx.Context, job *types.VideoGenerationJob) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoGenerationJob, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.VideoGenerationJob, error)
	ListByVideo(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoGenerationJob, error)
	ListByEducation(dbc dbctx.Context, educationID uuid.UUID) ([]*types.VideoGenerationJob, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsIfStatus applies updates only while the job is in one of allowed.
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.JobStatus, updates map[string]interface{}) (bool, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type videoJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoJobRepo(db *gorm.DB, baseLog *logger.Logger) VideoJobRepo {
	return &videoJobRepo{db: db, log: baseLog.With("repo", "VideoJobRepo")}
}

func (r *videoJobRepo) Create(dbc dbctx.Context, job *types.VideoGenerationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(job).Error
}

func (r *videoJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoGenerationJob, error) {
	return firstOrNil[types.VideoGenerationJob](dbc.DB(r.db).Where("id = ?", id))
}

func (r *videoJobRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.VideoGenerationJob, error) {
	return firstOrNil[types.VideoGenerationJob](dbctx.ForUpdate(dbc.DB(r.db)).Where("id = ?", id))
}

func (r *videoJobRepo) ListByVideo(dbc dbctx.Context, videoID uuid.UUID) ([]*types.VideoGenerationJob, error) {
	var out []*types.VideoGenerationJob
	err := dbc.DB(r.db).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *videoJobRepo) ListByEducation(dbc dbctx.Context, educationID uuid.UUID) ([]*types.VideoGenerationJob, error) {
	var out []*types.VideoGenerationJob
	err := dbc.DB(r.db).
		Where("education_id = ?", educationID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *videoJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.VideoGenerationJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *videoJobRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.JobStatus, updates map[string]interface{}) (bool, error) {
	if len(allowed) == 0 {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.VideoGenerationJob{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoJobRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.VideoGenerationJob{}).Error
}
