package production

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type SourceSetRepo interface {
	Create(dbc dbctx.Context, set *types.SourceSet) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SourceSet, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.SourceSet, error)
	GetLiveByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*types.SourceSet, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.SourceSetStatus) error
	UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []types.SourceSetStatus, to types.SourceSetStatus) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type sourceSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceSetRepo(db *gorm.DB, baseLog *logger.Logger) SourceSetRepo {
	return &sourceSetRepo{db: db, log: baseLog.With("repo", "SourceSetRepo")}
}

func (r *sourceSetRepo) Create(dbc dbctx.Context, set *types.SourceSet) error {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(set).Error
}

func (r *sourceSetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SourceSet, error) {
	return r.get(dbc.DB(r.db), id)
}

func (r *sourceSetRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.SourceSet, error) {
	return r.get(dbctx.ForUpdate(dbc.DB(r.db)), id)
}

func (r *sourceSetRepo) get(tx *gorm.DB, id uuid.UUID) (*types.SourceSet, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.SourceSet
	err := tx.Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sourceSetRepo) GetLiveByVideoID(dbc dbctx.Context, videoID uuid.UUID) (*types.SourceSet, error) {
	var out types.SourceSet
	err := dbc.DB(r.db).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *sourceSetRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.SourceSetStatus) error {
	return dbc.DB(r.db).
		Model(&types.SourceSet{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *sourceSetRepo) UpdateStatusIf(dbc dbctx.Context, id uuid.UUID, from []types.SourceSetStatus, to types.SourceSetStatus) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.SourceSet{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sourceSetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.SourceSet{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sourceSetRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.SourceSet{}).Error
}
