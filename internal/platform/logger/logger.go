package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/envutil"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a zap logger. "production" logs JSON at info, "test" only warnings,
// anything else is the development console at debug.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	level := zapcore.DebugLevel
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		level = zapcore.InfoLevel
	case "test":
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.WarnLevel
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

// WithContext tags the logger with the trace and request ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		return l
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "http_request_id", td.RequestID)
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

// Keys containing any of these fragments never reach the log sink.
var redactFragments = []string{"token", "authorization", "password", "secret", "api_key", "dsn"}

// People are logged as salted hashes: lines stay joinable per person.
var hashedKeys = map[string]bool{
	"user_uuid":     true,
	"reviewer_uuid": true,
	"requested_by":  true,
	"creator_uuid":  true,
	"operator_uuid": true,
}

var (
	redactOnce sync.Once
	redactOn   bool
	hashSalt   string
)

func loadRedaction() {
	redactOnce.Do(func() {
		redactOn = envutil.Bool("LOG_REDACTION_ENABLED", true)
		hashSalt = envutil.String("LOG_HASH_SALT", "")
	})
}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	loadRedaction()
	if !redactOn {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		name := toString(kv[i])
		out = append(out, name, sanitizeValue(strings.ToLower(strings.TrimSpace(name)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case isRedactKey(key):
		return "[REDACTED]"
	case hashedKeys[key]:
		return hashValue(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return "[REDACTED]"
	}
	return val
}

func isRedactKey(key string) bool {
	for _, frag := range redactFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(hashSalt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
