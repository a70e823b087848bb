package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a key/value logger over zap. Candidate identity fields are
// masked before they reach the encoder so allocation logs stay blind.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	mask          *masker
}

// New builds a logger for mode ("prod", "test" or anything else for
// development). LOG_LEVEL overrides the mode's level. Masking is on unless
// LOG_REDACTION_ENABLED is false; LOG_HASH_SALT salts hashed identifiers.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		lvl, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), mask: maskerFromEnv()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.SugaredLogger.Debugw(msg, l.mask.apply(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.SugaredLogger.Infow(msg, l.mask.apply(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.SugaredLogger.Warnw(msg, l.mask.apply(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.SugaredLogger.Errorw(msg, l.mask.apply(kv)...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.SugaredLogger.Fatalw(msg, l.mask.apply(kv)...) }

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.mask.apply(kv)...), mask: l.mask}
}

const redacted = "[REDACTED]"

// identityKeys never appear in logs. Matching is on the lowercased key.
var identityKeys = map[string]bool{
	"name":           true,
	"full_name":      true,
	"candidate_name": true,
	"gender":         true,
	"institution":    true,
	"email":          true,
	"phone":          true,
	"password":       true,
	"authorization":  true,
}

// pseudonymKeys are logged as a short salted hash so one candidate can still
// be followed across lines.
var pseudonymKeys = map[string]bool{
	"candidate_id": true,
	"blind_id":     true,
}

// masker is nil when masking is off.
type masker struct {
	salt string
}

func maskerFromEnv() *masker {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		return nil
	}
	return &masker{salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
}

func (m *masker) apply(kv []any) []any {
	if m == nil || len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		out[i+1] = m.value(strings.ToLower(strings.TrimSpace(key)), out[i+1])
	}
	return out
}

func (m *masker) value(key string, v any) any {
	switch {
	case identityKeys[key], strings.Contains(key, "token"), strings.Contains(key, "secret"):
		return redacted
	case pseudonymKeys[key]:
		return m.hash(v)
	}
	if nested, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(nested))
		for k, nv := range nested {
			out[k] = m.value(strings.ToLower(k), nv)
		}
		return out
	}
	return v
}

func (m *masker) hash(v any) string {
	raw := strings.TrimSpace(fmt.Sprint(v))
	if v == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(m.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}
