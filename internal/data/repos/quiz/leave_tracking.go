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

type QuizLeaveTrackingRepo interface {
	Create(dbc dbctx.Context, row *types.QuizLeaveTracking) error
	Get(dbc dbctx.Context, attemptID uuid.UUID) (*types.QuizLeaveTracking, error)
	Increment(dbc dbctx.Context, attemptID uuid.UUID, seconds int, at time.Time) error
}

type quizLeaveTrackingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizLeaveTrackingRepo(db *gorm.DB, baseLog *logger.Logger) QuizLeaveTrackingRepo {
	return &quizLeaveTrackingRepo{db: db, log: baseLog.With("repo", "QuizLeaveTrackingRepo")}
}

func (r *quizLeaveTrackingRepo) Create(dbc dbctx.Context, row *types.QuizLeaveTracking) error {
	return dbc.DB(r.db).Create(row).Error
}

func (r *quizLeaveTrackingRepo) Get(dbc dbctx.Context, attemptID uuid.UUID) (*types.QuizLeaveTracking, error) {
	var out types.QuizLeaveTracking
	err := dbc.DB(r.db).Where("attempt_id = ?", attemptID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Increment creates the row on first use.
func (r *quizLeaveTrackingRepo) Increment(dbc dbctx.Context, attemptID uuid.UUID, seconds int, at time.Time) error {
	tx := dbc.DB(r.db)
	res := tx.Model(&types.QuizLeaveTracking{}).
		Where("attempt_id = ?", attemptID).
		Updates(map[string]interface{}{
			"leave_count":         gorm.Expr("leave_count + 1"),
			"total_leave_seconds": gorm.Expr("total_leave_seconds + ?", seconds),
			"last_leave_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&types.QuizLeaveTracking{
		AttemptID:         attemptID,
		LeaveCount:        1,
		TotalLeaveSeconds: seconds,
		LastLeaveAt:       &at,
	}).Error
}
