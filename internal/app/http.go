package app

import (
	apphttp "github.com/yungbote/eduvideo-backend/internal/http"
	httpH "github.com/yungbote/eduvideo-backend/internal/http/handlers"
	httpMW "github.com/yungbote/eduvideo-backend/internal/http/middleware"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
	"gorm.io/gorm"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Video     *httpH.VideoHandler
	Realtime  *httpH.RealtimeHandler
	SourceSet *httpH.SourceSetHandler
	VideoJob  *httpH.VideoJobHandler
	Quiz      *httpH.QuizHandler
	Dispatch  *httpH.DispatchHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Video:     httpH.NewVideoHandler(s.Review),
		Realtime:  httpH.NewRealtimeHandler(log, hub, s.Review),
		SourceSet: httpH.NewSourceSetHandler(s.SourceSets, s.Scripts),
		VideoJob:  httpH.NewVideoJobHandler(s.Jobs),
		Quiz:      httpH.NewQuizHandler(s.Quiz),
		Dispatch:  httpH.NewDispatchHandler(s.Outbox, s.Replay),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; every /api request will be rejected")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers, mw Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		ServiceName:      "eduvideo",
		InternalToken:    cfg.InternalCallbackToken,
		AuthMiddleware:   mw.Auth,
		HealthHandler:    h.Health,
		VideoHandler:     h.Video,
		RealtimeHandler:  h.Realtime,
		SourceSetHandler: h.SourceSet,
		VideoJobHandler:  h.VideoJob,
		QuizHandler:      h.Quiz,
		DispatchHandler:  h.Dispatch,
	})
}
