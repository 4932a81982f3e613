package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/eduvideo-backend/internal/http/handlers"
	httpMW "github.com/yungbote/eduvideo-backend/internal/http/middleware"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log           *logger.Logger
	Metrics       *observability.Metrics
	CORSOrigins   []string
	ServiceName   string
	InternalToken string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	VideoHandler     *httpH.VideoHandler
	RealtimeHandler  *httpH.RealtimeHandler
	SourceSetHandler *httpH.SourceSetHandler
	VideoJobHandler  *httpH.VideoJobHandler
	QuizHandler      *httpH.QuizHandler
	DispatchHandler  *httpH.DispatchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// AI-service callbacks
	internal := r.Group("/internal", httpMW.RequireInternalToken(cfg.InternalToken))
	{
		if cfg.SourceSetHandler != nil {
			internal.POST("/source-sets/:id/complete", cfg.SourceSetHandler.CompleteCallback)
			internal.GET("/source-sets/:id/documents", cfg.SourceSetHandler.GetDocuments)
			internal.GET("/scripts/:id/render-spec", cfg.SourceSetHandler.GetRenderSpec)
		}
		if cfg.VideoJobHandler != nil {
			internal.POST("/video/job/:jobId/complete", cfg.VideoJobHandler.CompleteCallback)
		}
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	review := api.Group("/", httpMW.RequireReviewer())
	admin := api.Group("/admin", httpMW.RequireOperator())

	if h := cfg.VideoHandler; h != nil {
		review.POST("/videos", h.CreateVideo)
		api.GET("/videos/:id", h.GetVideo)
		api.GET("/educations/:id/videos", h.ListVideos)
		review.POST("/videos/:id/review/request", h.RequestReview)
		review.POST("/videos/:id/review/approve", h.Approve)
		review.POST("/videos/:id/review/publish", h.Publish)
		review.POST("/videos/:id/review/reject", h.Reject)
		review.POST("/videos/:id/review/disable", h.Disable)
		review.POST("/videos/:id/review/enable", h.Enable)
		review.GET("/videos/:id/reviews", h.ReviewHistory)
		admin.POST("/unsafe/videos/:id/force-status", h.ForceStatus)
	}
	if cfg.RealtimeHandler != nil {
		review.GET("/videos/:id/events", cfg.RealtimeHandler.VideoEvents)
	}
	if h := cfg.SourceSetHandler; h != nil {
		review.POST("/source-sets", h.CreateSourceSet)
		review.GET("/source-sets/:id", h.GetSourceSet)
		review.PATCH("/source-sets/:id/documents", h.UpdateDocuments)
		review.GET("/source-sets/:id/documents", h.GetDocuments)
		review.POST("/source-sets/:id/dispatch", h.RetryDispatch)
		review.DELETE("/source-sets/:id", h.DeleteSourceSet)
		review.GET("/source-sets/:id/scripts", h.ListScripts)
		review.GET("/scripts/:id", h.GetScript)
	}
	if h := cfg.VideoJobHandler; h != nil {
		review.POST("/video-jobs", h.CreateJob)
		review.GET("/video-jobs/:id", h.GetJob)
		review.GET("/videos/:id/jobs", h.ListVideoJobs)
		api.PATCH("/video-jobs/:id", httpMW.RequireOperator(), h.UpdateJob)
		api.DELETE("/video-jobs/:id", httpMW.RequireOperator(), h.DeleteJob)
		review.POST("/video-jobs/:id/retry", h.RetryJob)
	}
	if h := cfg.QuizHandler; h != nil {
		api.POST("/educations/:id/quiz/attempts", h.StartAttempt)
		api.GET("/educations/:id/quiz/attempts", h.ListAttempts)
		api.PUT("/quiz/attempts/:id/answers", h.SaveAnswers)
		api.POST("/quiz/attempts/:id/submit", h.Submit)
		api.GET("/quiz/attempts/:id/result", h.GetResult)
		api.GET("/quiz/attempts/:id/wrong-notes", h.GetWrongNotes)
		api.POST("/quiz/attempts/:id/leave", h.RecordLeave)
		api.GET("/quiz/attempts/:id/timer", h.GetTimer)
	}
	if h := cfg.DispatchHandler; h != nil {
		admin.GET("/dispatch-tasks", h.ListDead)
		admin.POST("/dispatch-tasks/:id/replay", h.Replay)
	}
	return r
}
