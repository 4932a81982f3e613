package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// EducationRepo reads the externally managed education catalog.
type EducationRepo interface {
	Create(dbc dbctx.Context, edu *types.Education) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Education, error)
}

type educationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEducationRepo(db *gorm.DB, baseLog *logger.Logger) EducationRepo {
	return &educationRepo{db: db, log: baseLog.With("repo", "EducationRepo")}
}

func (r *educationRepo) Create(dbc dbctx.Context, edu *types.Education) error {
	if edu.ID == uuid.Nil {
		edu.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(edu).Error
}

func (r *educationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Education, error) {
	var out types.Education
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
