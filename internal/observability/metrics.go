package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	opsdomain "github.com/yungbote/eduvideo-backend/internal/domain/ops"
	"github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/envutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqError *Counter

	aiRequests *CounterVec
	aiLatency  *HistogramVec

	callbacks   *CounterVec
	dispatches  *CounterVec
	transitions *CounterVec
	quizSubmits *CounterVec

	videoStatus *GaugeVec
	jobStatus   *GaugeVec
	deadTasks   *Gauge
	pgStats     *GaugeVec
	redisUp     *Gauge
	redisPing   *Gauge

	writers []interface{ WritePrometheus(io.Writer) error }
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when metrics are off.
// Every method is nil-safe.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered Metrics set. Init installs one as Current.
func New() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("ev_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ev_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("ev_api_inflight_requests", "In-flight API requests."),
		apiReqError: NewCounter("ev_api_requests_error_total", "API requests with 5xx status."),
		aiRequests:  NewCounterVec("ev_ai_requests_total", "AI service calls by operation/status.", []string{"operation", "status"}),
		aiLatency: NewHistogramVec(
			"ev_ai_request_duration_seconds",
			"AI service call latency in seconds by operation.",
			[]string{"operation"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		callbacks:   NewCounterVec("ev_callbacks_total", "Inbound completion callbacks by scope/outcome.", []string{"scope", "outcome"}),
		dispatches:  NewCounterVec("ev_dispatch_total", "Outbound dispatches by kind/status.", []string{"kind", "status"}),
		transitions: NewCounterVec("ev_status_transitions_total", "Applied status transitions by entity/to.", []string{"entity", "to"}),
		quizSubmits: NewCounterVec("ev_quiz_submissions_total", "Graded quiz attempts by result.", []string{"result"}),
		videoStatus: NewGaugeVec("ev_videos_by_status", "Videos by status.", []string{"status"}),
		jobStatus:   NewGaugeVec("ev_video_jobs_by_status", "Video generation jobs by status.", []string{"status"}),
		deadTasks:   NewGauge("ev_dispatch_dead_tasks", "Dead-lettered dispatch tasks awaiting replay."),
		pgStats:     NewGaugeVec("ev_postgres_stats", "Postgres connection pool stats.", []string{"metric"}),
		redisUp:     NewGauge("ev_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:   NewGauge("ev_redis_ping_seconds", "Redis ping latency in seconds."),
	}
	m.writers = []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.aiRequests, m.aiLatency,
		m.callbacks, m.dispatches, m.transitions, m.quizSubmits,
		m.videoStatus, m.jobStatus, m.deadTasks, m.pgStats, m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range m.writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
	if strings.HasPrefix(status, "5") {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAIRequest(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aiRequests.Inc(nonEmpty(operation), nonEmpty(status))
	if dur > 0 {
		m.aiLatency.Observe(dur.Seconds(), nonEmpty(operation))
	}
}

func (m *Metrics) IncCallback(scope, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.Inc(nonEmpty(scope), nonEmpty(outcome))
}

func (m *Metrics) IncDispatch(kind, status string) {
	if m == nil {
		return
	}
	m.dispatches.Inc(nonEmpty(kind), nonEmpty(status))
}

func (m *Metrics) IncTransition(entity, to string) {
	if m == nil {
		return
	}
	m.transitions.Inc(nonEmpty(entity), nonEmpty(to))
}

func (m *Metrics) IncQuizSubmit(passed bool) {
	if m == nil {
		return
	}
	if passed {
		m.quizSubmits.Inc("passed")
		return
	}
	m.quizSubmits.Inc("failed")
}

// StartPostgresCollector samples pool stats plus video/job/dead-task counts.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go m.every(ctx, func() {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
			m.pgStats.Set(float64(stats.InUse), "in_use")
			m.pgStats.Set(float64(stats.Idle), "idle")
			m.pgStats.Set(float64(stats.WaitCount), "wait_count")
			m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		}
		if err := m.collectCounts(ctx, db); err != nil && log != nil {
			log.Warn("metrics: status count query failed", "error", err)
		}
	})
}

func (m *Metrics) collectCounts(ctx context.Context, db *gorm.DB) error {
	type row struct {
		Status string
		Count  int64
	}
	for _, c := range []struct {
		model any
		gauge *GaugeVec
	}{
		{&production.Video{}, m.videoStatus},
		{&production.VideoGenerationJob{}, m.jobStatus},
	} {
		var rows []row
		if err := db.WithContext(ctx).Model(c.model).
			Select("status, count(*) as count").
			Group("status").
			Scan(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			c.gauge.Set(float64(r.Count), nonEmpty(r.Status))
		}
	}
	var dead int64
	if err := db.WithContext(ctx).Model(&opsdomain.DispatchTask{}).Where("status = ?", opsdomain.DispatchDead).Count(&dead).Error; err != nil {
		return err
	}
	m.deadTasks.Set(float64(dead))
	return nil
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func nonEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
