package production

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type ScriptRepo interface {
	Create(dbc dbctx.Context, script *types.Script) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Script, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Script, error)
	GetLatestBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.Script, error)
	ListBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.Script, error)
	GetLatestApprovedByEducation(dbc dbctx.Context, educationID uuid.UUID) (*types.Script, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type scriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScriptRepo(db *gorm.DB, baseLog *logger.Logger) ScriptRepo {
	return &scriptRepo{db: db, log: baseLog.With("repo", "ScriptRepo")}
}

func (r *scriptRepo) Create(dbc dbctx.Context, script *types.Script) error {
	if script.ID == uuid.Nil {
		script.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(script).Error
}

func (r *scriptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Script, error) {
	return firstOrNil[types.Script](dbc.DB(r.db).Where("id = ?", id))
}

func (r *scriptRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Script, error) {
	return firstOrNil[types.Script](dbctx.ForUpdate(dbc.DB(r.db)).Where("id = ?", id))
}

func (r *scriptRepo) GetLatestBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) (*types.Script, error) {
	return firstOrNil[types.Script](dbc.DB(r.db).
		Where("source_set_id = ?", sourceSetID).
		Order("version DESC"))
}

func (r *scriptRepo) ListBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.Script, error) {
	var out []*types.Script
	err := dbc.DB(r.db).
		Where("source_set_id = ?", sourceSetID).
		Order("version ASC").
		Find(&out).Error
	return out, err
}

func (r *scriptRepo) GetLatestApprovedByEducation(dbc dbctx.Context, educationID uuid.UUID) (*types.Script, error) {
	return firstOrNil[types.Script](dbc.DB(r.db).
		Where("education_id = ? AND status = ?", educationID, prod.ScriptApproved).
		Order("updated_at DESC, version DESC"))
}

func (r *scriptRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Script{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
