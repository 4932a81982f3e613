package quiz

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, attempt *types.QuizAttempt) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuizAttempt, error)
	GetOpen(dbc dbctx.Context, userID, educationID uuid.UUID) (*types.QuizAttempt, error)
	// MaxAttemptNo includes soft-deleted attempts so numbering never repeats.
	MaxAttemptNo(dbc dbctx.Context, userID, educationID uuid.UUID) (int, error)
	ListByUserEducation(dbc dbctx.Context, userID, educationID uuid.UUID) ([]*types.QuizAttempt, error)
	ListSubmittedIDs(dbc dbctx.Context, userID, educationID uuid.UUID) ([]uuid.UUID, error)
	// MarkSubmitted records the score unless the attempt was already submitted.
	MarkSubmitted(dbc dbctx.Context, id uuid.UUID, score int, passed bool, at time.Time) (bool, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) Create(dbc dbctx.Context, attempt *types.QuizAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(attempt).Error
}

func (r *quizAttemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuizAttempt, error) {
	var out types.QuizAttempt
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *quizAttemptRepo) GetOpen(dbc dbctx.Context, userID, educationID uuid.UUID) (*types.QuizAttempt, error) {
	var out types.QuizAttempt
	err := dbc.DB(r.db).
		Where("user_uuid = ? AND education_id = ? AND submitted_at IS NULL", userID, educationID).
		Order("attempt_no DESC").
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

func (r *quizAttemptRepo) MaxAttemptNo(dbc dbctx.Context, userID, educationID uuid.UUID) (int, error) {
	var max *int
	err := dbc.DB(r.db).
		Unscoped().
		Model(&types.QuizAttempt{}).
		Where("user_uuid = ? AND education_id = ?", userID, educationID).
		Select("MAX(attempt_no)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max, nil
}

func (r *quizAttemptRepo) ListByUserEducation(dbc dbctx.Context, userID, educationID uuid.UUID) ([]*types.QuizAttempt, error) {
	var out []*types.QuizAttempt
	err := dbc.DB(r.db).
		Where("user_uuid = ? AND education_id = ?", userID, educationID).
		Order("attempt_no ASC").
		Find(&out).Error
	return out, err
}

func (r *quizAttemptRepo) ListSubmittedIDs(dbc dbctx.Context, userID, educationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbc.DB(r.db).
		Model(&types.QuizAttempt{}).
		Where("user_uuid = ? AND education_id = ? AND submitted_at IS NOT NULL", userID, educationID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *quizAttemptRepo) MarkSubmitted(dbc dbctx.Context, id uuid.UUID, score int, passed bool, at time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(map[string]interface{}{
			"score":        score,
			"passed":       passed,
			"submitted_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
