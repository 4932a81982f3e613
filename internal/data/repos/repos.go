package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/data/repos/catalog"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/ops"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/production"
	"github.com/yungbote/eduvideo-backend/internal/data/repos/quiz"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type SourceSetRepo = production.SourceSetRepo
type SourceSetDocumentRepo = production.SourceSetDocumentRepo
type ScriptRepo = production.ScriptRepo
type ScriptContentRepo = production.ScriptContentRepo
type VideoRepo = production.VideoRepo
type VideoReviewRepo = production.VideoReviewRepo
type VideoJobRepo = production.VideoJobRepo

type QuizAttemptRepo = quiz.QuizAttemptRepo
type QuizQuestionRepo = quiz.QuizQuestionRepo
type QuizLeaveTrackingRepo = quiz.QuizLeaveTrackingRepo

type EducationRepo = catalog.EducationRepo

type CallbackReceiptRepo = ops.CallbackReceiptRepo
type DispatchTaskRepo = ops.DispatchTaskRepo

func NewSourceSetRepo(db *gorm.DB, baseLog *logger.Logger) SourceSetRepo {
	return production.NewSourceSetRepo(db, baseLog)
}
func NewSourceSetDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SourceSetDocumentRepo {
	return production.NewSourceSetDocumentRepo(db, baseLog)
}
func NewScriptRepo(db *gorm.DB, baseLog *logger.Logger) ScriptRepo {
	return production.NewScriptRepo(db, baseLog)
}
func NewScriptContentRepo(db *gorm.DB, baseLog *logger.Logger) ScriptContentRepo {
	return production.NewScriptContentRepo(db, baseLog)
}
func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return production.NewVideoRepo(db, baseLog)
}
func NewVideoReviewRepo(db *gorm.DB, baseLog *logger.Logger) VideoReviewRepo {
	return production.NewVideoReviewRepo(db, baseLog)
}
func NewVideoJobRepo(db *gorm.DB, baseLog *logger.Logger) VideoJobRepo {
	return production.NewVideoJobRepo(db, baseLog)
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return quiz.NewQuizAttemptRepo(db, baseLog)
}
func NewQuizQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuizQuestionRepo {
	return quiz.NewQuizQuestionRepo(db, baseLog)
}
func NewQuizLeaveTrackingRepo(db *gorm.DB, baseLog *logger.Logger) QuizLeaveTrackingRepo {
	return quiz.NewQuizLeaveTrackingRepo(db, baseLog)
}

func NewEducationRepo(db *gorm.DB, baseLog *logger.Logger) EducationRepo {
	return catalog.NewEducationRepo(db, baseLog)
}

func NewCallbackReceiptRepo(db *gorm.DB, baseLog *logger.Logger) CallbackReceiptRepo {
	return ops.NewCallbackReceiptRepo(db, baseLog)
}
func NewDispatchTaskRepo(db *gorm.DB, baseLog *logger.Logger) DispatchTaskRepo {
	return ops.NewDispatchTaskRepo(db, baseLog)
}
