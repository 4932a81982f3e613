package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/services"
	"github.com/yungbote/eduvideo-backend/internal/temporalx/dispatchrun"
	"github.com/yungbote/eduvideo-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Notifier services.PipelineNotifier
	Outbox   services.DispatchOutbox

	Scripts    services.ScriptService
	Review     services.VideoReviewService
	SourceSets services.SourceSetService
	Jobs       services.VideoJobService
	Quiz       services.QuizService

	// Replay infra; TemporalWorker is nil when Temporal is disabled.
	Replay         dispatchrun.Scheduler
	TemporalWorker *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	emitter := &services.BusEmitter{Bus: c.Bus, Log: log}
	notify := services.NewPipelineNotifier(emitter)
	outbox := services.NewDispatchOutbox(log, r.DispatchTask)
	validate := validator.New(validator.WithRequiredStructEnabled())

	scripts := services.NewScriptService(db, log, validate, r.SourceSet, r.Script, r.Content)
	review := services.NewVideoReviewService(db, log, r.Video, r.VideoReview, r.Education, r.SourceSet, scripts, notify)
	sets := services.NewSourceSetService(db, log,
		r.SourceSet, r.SourceDoc, r.Video, r.Education, r.CallbackReceipt,
		scripts, review, c.AI, c.Docs, outbox, c.Locker, notify, cfg.DocConcurrency)
	jobs := services.NewVideoJobService(db, log,
		r.VideoJob, r.Video, r.Script, r.CallbackReceipt,
		review, c.AI, outbox, c.Locker, notify)
	quiz := services.NewQuizService(db, log,
		r.QuizAttempt, r.QuizQuestion, r.QuizLeave,
		r.Education, scripts, c.AI, cfg.QuizQuestionCount, cfg.QuizTimeLimitSecs)

	out := Services{
		Notifier:   notify,
		Outbox:     outbox,
		Scripts:    scripts,
		Review:     review,
		SourceSets: sets,
		Jobs:       jobs,
		Quiz:       quiz,
		Replay:     dispatchrun.NewScheduler(log, c.Temporal, cfg.Temporal.TaskQueue, cfg.DispatchMaxAttempts, outbox),
	}
	if c.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, c.Temporal, outbox)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
	}
	return out, nil
}
