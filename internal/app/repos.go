package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type Repos struct {
	Education repos.EducationRepo

	Video       repos.VideoRepo
	VideoReview repos.VideoReviewRepo
	VideoJob    repos.VideoJobRepo
	SourceSet   repos.SourceSetRepo
	SourceDoc   repos.SourceSetDocumentRepo
	Script      repos.ScriptRepo
	Content     repos.ScriptContentRepo

	QuizAttempt  repos.QuizAttemptRepo
	QuizQuestion repos.QuizQuestionRepo
	QuizLeave    repos.QuizLeaveTrackingRepo

	CallbackReceipt repos.CallbackReceiptRepo
	DispatchTask    repos.DispatchTaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Education: repos.NewEducationRepo(db, log),

		Video:       repos.NewVideoRepo(db, log),
		VideoReview: repos.NewVideoReviewRepo(db, log),
		VideoJob:    repos.NewVideoJobRepo(db, log),
		SourceSet:   repos.NewSourceSetRepo(db, log),
		SourceDoc:   repos.NewSourceSetDocumentRepo(db, log),
		Script:      repos.NewScriptRepo(db, log),
		Content:     repos.NewScriptContentRepo(db, log),

		QuizAttempt:  repos.NewQuizAttemptRepo(db, log),
		QuizQuestion: repos.NewQuizQuestionRepo(db, log),
		QuizLeave:    repos.NewQuizLeaveTrackingRepo(db, log),

		CallbackReceipt: repos.NewCallbackReceiptRepo(db, log),
		DispatchTask:    repos.NewDispatchTaskRepo(db, log),
	}
}
