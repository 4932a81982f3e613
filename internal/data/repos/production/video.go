package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, video *types.Video) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Video, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Video, error)
	ListByEducation(dbc dbctx.Context, educationID uuid.UUID) ([]*types.Video, error)
	// Transition moves the video to "to" only while its status is still from.
	Transition(dbc dbctx.Context, id uuid.UUID, from, to types.VideoStatus, extra map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) Create(dbc dbctx.Context, video *types.Video) error {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(video).Error
}

func (r *videoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Video, error) {
	return firstOrNil[types.Video](dbc.DB(r.db).Where("id = ?", id))
}

func (r *videoRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Video, error) {
	return firstOrNil[types.Video](dbctx.ForUpdate(dbc.DB(r.db)).Where("id = ?", id))
}

func (r *videoRepo) ListByEducation(dbc dbctx.Context, educationID uuid.UUID) ([]*types.Video, error) {
	var out []*types.Video
	err := dbc.DB(r.db).
		Where("education_id = ?", educationID).
		Order("order_index ASC, created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *videoRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to types.VideoStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := dbc.DB(r.db).
		Model(&types.Video{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}
