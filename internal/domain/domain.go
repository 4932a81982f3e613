package domain

import (
	"github.com/yungbote/eduvideo-backend/internal/domain/catalog"
	"github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/domain/quiz"
)

type (
	SourceSet          = production.SourceSet
	SourceSetDocument  = production.SourceSetDocument
	Script             = production.Script
	ScriptChapter      = production.ScriptChapter
	ScriptScene        = production.ScriptScene
	Video              = production.Video
	VideoReview        = production.VideoReview
	VideoGenerationJob = production.VideoGenerationJob

	SourceSetStatus = production.SourceSetStatus
	DocumentStatus  = production.DocumentStatus
	ScriptStatus    = production.ScriptStatus
	VideoStatus     = production.VideoStatus
	JobStatus       = production.JobStatus
	RejectionStage  = production.RejectionStage
	VideoAction     = production.VideoAction

	QuizAttempt       = quiz.QuizAttempt
	QuizQuestion      = quiz.QuizQuestion
	QuizLeaveTracking = quiz.QuizLeaveTracking

	Education = catalog.Education

	CallbackReceipt = ops.CallbackReceipt
	DispatchTask    = ops.DispatchTask
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Education{},
		&Video{},
		&SourceSet{},
		&SourceSetDocument{},
		&Script{},
		&ScriptChapter{},
		&ScriptScene{},
		&VideoGenerationJob{},
		&VideoReview{},
		&QuizAttempt{},
		&QuizQuestion{},
		&QuizLeaveTracking{},
		&CallbackReceipt{},
		&DispatchTask{},
	}
}
