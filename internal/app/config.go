package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/clients/docregistry"
	redisclient "github.com/yungbote/eduvideo-backend/internal/clients/redis"
	"github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/platform/envutil"
	"github.com/yungbote/eduvideo-backend/internal/temporalx"
)

type Config struct {
	Port    string
	LogMode string
	Env     string
	Version string

	Postgres db.PostgresConfig

	Redis        redisclient.Config
	RedisChannel string
	LockTTL      time.Duration

	Temporal temporalx.Config

	AIService   aiservice.Config
	DocRegistry docregistry.Config
	// DocConcurrency caps parallel registry lookups per request.
	DocConcurrency int

	InternalCallbackToken string
	JWTSecretKey          string
	CORSOrigins           []string

	QuizQuestionCount   int
	QuizTimeLimitSecs   int
	DispatchMaxAttempts int
}

// loadDotEnv reads .env when present. Real environment variables win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func LoadConfig() Config {
	return Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),
		Env:     envutil.String("APP_ENV", "development"),
		Version: envutil.String("APP_VERSION", ""),

		Postgres: db.PostgresConfig{
			DSN:             envutil.String("POSTGRES_DSN", ""),
			Host:            envutil.String("POSTGRES_HOST", "localhost"),
			Port:            envutil.String("POSTGRES_PORT", "5432"),
			User:            envutil.String("POSTGRES_USER", "postgres"),
			Password:        envutil.String("POSTGRES_PASSWORD", ""),
			Name:            envutil.String("POSTGRES_NAME", "eduvideo"),
			MaxOpenConns:    envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envutil.Seconds("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800),
		},

		Redis: redisclient.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		RedisChannel: envutil.String("REDIS_CHANNEL", "pipeline-events"),
		LockTTL:      envutil.Seconds("ENTITY_LOCK_TTL_SECONDS", 30),

		Temporal: temporalx.LoadConfig(),

		AIService: aiservice.Config{
			BaseURL:    envutil.String("AI_SERVICE_BASE_URL", ""),
			Token:      envutil.String("AI_SERVICE_TOKEN", ""),
			Timeout:    envutil.Seconds("AI_SERVICE_TIMEOUT_SECONDS", 30),
			MaxRetries: envutil.Int("AI_SERVICE_MAX_RETRIES", 2),
		},
		DocRegistry: docregistry.Config{
			BaseURL: envutil.String("DOC_REGISTRY_BASE_URL", ""),
			Timeout: envutil.Seconds("DOC_REGISTRY_TIMEOUT_SECONDS", 5),
		},
		DocConcurrency: envutil.Int("DOC_REGISTRY_CONCURRENCY", 4),

		InternalCallbackToken: envutil.String("INTERNAL_CALLBACK_TOKEN", ""),
		JWTSecretKey:          envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:           splitList(envutil.String("CORS_ORIGINS", "")),

		QuizQuestionCount:   envutil.Int("QUIZ_QUESTION_COUNT", 5),
		QuizTimeLimitSecs:   envutil.Int("QUIZ_TIME_LIMIT_SECONDS", 900),
		DispatchMaxAttempts: envutil.Int("DISPATCH_MAX_ATTEMPTS", 5),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
