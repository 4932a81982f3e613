package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/eduvideo-backend/internal/platform/envutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/eduvideo-backend"
	defaultServiceName = "eduvideo"
	defaultSampleRatio = 0.1
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// otelSettings is the OTEL_* environment, read once at init.
type otelSettings struct {
	enabled  bool
	endpoint string
	insecure bool
	headers  map[string]string
	ratio    float64
}

func loadOtelSettings() otelSettings {
	return otelSettings{
		enabled:  envutil.Bool("OTEL_ENABLED", false),
		endpoint: envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		headers:  parseHeaderList(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
		ratio:    parseRatio(envutil.String("OTEL_SAMPLER_RATIO", "")),
	}
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set.
// The returned func flushes and stops it; it is a no-op when tracing is off.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	if log == nil {
		log = logger.Nop()
	}
	otelOnce.Do(func() {
		s := loadOtelSettings()
		if !s.enabled {
			return
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = defaultServiceName
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil {
			log.Warn("otel resource incomplete", "error", err)
		}
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.ratio))),
			sdktrace.WithResource(res),
		}
		if exp, err := s.exporter(ctx); err != nil {
			log.Warn("otel exporter unavailable; spans are sampled but not exported", "error", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", name, "endpoint", s.endpoint, "sample_ratio", s.ratio)
	})
	return otelShutdown
}

// StartSpan starts a span on the global tracer; a no-op until InitOTel runs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// exporter ships over OTLP/HTTP when an endpoint is set, otherwise to stdout.
func (s otelSettings) exporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if s.endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.endpoint)}
	if s.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(s.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func parseRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	switch {
	case err != nil:
		return defaultSampleRatio
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// parseHeaderList reads "k1=v1,k2=v2"; malformed pairs are skipped.
func parseHeaderList(raw string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if ok && key != "" && val != "" {
			out[key] = val
		}
	}
	return out
}
