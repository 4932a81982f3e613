package ops

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type DispatchTaskRepo interface {
	Create(dbc dbctx.Context, task *types.DispatchTask) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchTask, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.DispatchTask, error)
	ListByEntity(dbc dbctx.Context, entityID uuid.UUID) ([]*types.DispatchTask, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, status string, updates map[string]interface{}) (bool, error)
}

type dispatchTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDispatchTaskRepo(db *gorm.DB, baseLog *logger.Logger) DispatchTaskRepo {
	return &dispatchTaskRepo{db: db, log: baseLog.With("repo", "DispatchTaskRepo")}
}

func (r *dispatchTaskRepo) Create(dbc dbctx.Context, task *types.DispatchTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(task).Error
}

func (r *dispatchTaskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DispatchTask, error) {
	var out types.DispatchTask
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *dispatchTaskRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.DispatchTask, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.DispatchTask
	err := dbc.DB(r.db).
		Where("status = ?", status).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *dispatchTaskRepo) ListByEntity(dbc dbctx.Context, entityID uuid.UUID) ([]*types.DispatchTask, error) {
	var out []*types.DispatchTask
	err := dbc.DB(r.db).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *dispatchTaskRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dbc.DB(r.db).
		Model(&types.DispatchTask{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *dispatchTaskRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, status string, updates map[string]interface{}) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.DispatchTask{}).
		Where("id = ? AND status = ?", id, status).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
