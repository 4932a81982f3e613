package quiz

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type QuizQuestionRepo interface {
	Create(dbc dbctx.Context, questions []*types.QuizQuestion) error
	ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.QuizQuestion, error)
	ListTextsByAttempts(dbc dbctx.Context, attemptIDs []uuid.UUID) ([]string, error)
	SetSelected(dbc dbctx.Context, id uuid.UUID, optionIdx int) error
}

type quizQuestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuizQuestionRepo {
	return &quizQuestionRepo{db: db, log: baseLog.With("repo", "QuizQuestionRepo")}
}

func (r *quizQuestionRepo) Create(dbc dbctx.Context, questions []*types.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
	}
	return dbc.DB(r.db).Create(&questions).Error
}

func (r *quizQuestionRepo) ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.QuizQuestion, error) {
	var out []*types.QuizQuestion
	err := dbc.DB(r.db).
		Where("attempt_id = ?", attemptID).
		Order("question_order ASC").
		Find(&out).Error
	return out, err
}

func (r *quizQuestionRepo) ListTextsByAttempts(dbc dbctx.Context, attemptIDs []uuid.UUID) ([]string, error) {
	var out []string
	if len(attemptIDs) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Model(&types.QuizQuestion{}).
		Where("attempt_id IN ?", attemptIDs).
		Order("attempt_id ASC, question_order ASC").
		Pluck("question", &out).Error
	return out, err
}

func (r *quizQuestionRepo) SetSelected(dbc dbctx.Context, id uuid.UUID, optionIdx int) error {
	return dbc.DB(r.db).
		Model(&types.QuizQuestion{}).
		Where("id = ?", id).
		Update("user_selected_option_idx", optionIdx).Error
}
