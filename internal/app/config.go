package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/envutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	CORSOrigins string

	// SQLitePath selects SQLite storage instead of Postgres when set.
	SQLitePath  string
	AutoMigrate bool

	MetricsAddr     string
	ScorerMLTimeout time.Duration
	ShutdownTimeout time.Duration

	Engine allocation.Config
	Otel   observability.OtelConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	engine, err := LoadEngineConfig(log)
	if err != nil {
		return Config{}, err
	}
	serviceName := envutil.String("SERVICE_NAME", "intern-allocator", log)
	return Config{
		Port:            envutil.String("PORT", "8080", log),
		ServiceName:     serviceName,
		CORSOrigins:     envutil.String("CORS_ALLOWED_ORIGINS", "", log),
		SQLitePath:      strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		AutoMigrate:     envutil.Bool("DB_AUTO_MIGRATE", true, log),
		MetricsAddr:     envutil.String("METRICS_ADDR", ":9090", log),
		ScorerMLTimeout: envutil.Duration("SCORER_ML_TIMEOUT", 2*time.Second, log),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second, log),
		Engine:          engine,
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: serviceName,
			Environment: envutil.String("APP_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "dev", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true, log),
			Headers:     os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1, log),
		},
	}, nil
}

// LoadEngineConfig layers environment overrides on top of the optional YAML
// file at ALLOCATION_CONFIG_PATH and validates the result.
func LoadEngineConfig(log *logger.Logger) (allocation.Config, error) {
	var cfg allocation.Config
	if path := strings.TrimSpace(os.Getenv("ALLOCATION_CONFIG_PATH")); path != "" {
		fileCfg, err := readEngineFile(path)
		if err != nil {
			return allocation.Config{}, err
		}
		cfg = fileCfg
	}

	cfg.MatchThreshold = envutil.Float("ALLOCATION_MATCH_THRESHOLD", cfg.MatchThreshold, log)
	cfg.Workers = envutil.Int("ALLOCATION_WORKERS", cfg.Workers, log)
	cfg.GenerationTimeout = envutil.Duration("ALLOCATION_GENERATION_TIMEOUT", cfg.GenerationTimeout, log)
	cfg.MaxCommitAttempts = envutil.Int("ALLOCATION_MAX_COMMIT_ATTEMPTS", cfg.MaxCommitAttempts, log)
	cfg.Scorer = strings.ToLower(envutil.String("ALLOCATION_SCORER", cfg.Scorer, log))
	cfg.MLWeight = envutil.Float("ALLOCATION_ML_WEIGHT", cfg.MLWeight, log)

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return allocation.Config{}, err
	}
	return cfg, nil
}

// engineFile mirrors allocation.Config with a string timeout so the file can
// say "90s" instead of nanoseconds.
type engineFile struct {
	MatchThreshold    float64            `yaml:"match_threshold"`
	Workers           int                `yaml:"workers"`
	GenerationTimeout string             `yaml:"generation_timeout"`
	MaxCommitAttempts int                `yaml:"max_commit_attempts"`
	Scorer            string             `yaml:"scorer"`
	MLWeight          float64            `yaml:"ml_weight"`
	Weights           allocation.Weights `yaml:"weights"`
}

func readEngineFile(path string) (allocation.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return allocation.Config{}, fmt.Errorf("read allocation config %q: %w", path, err)
	}
	var f engineFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return allocation.Config{}, fmt.Errorf("parse allocation config %q: %w", path, err)
	}
	cfg := allocation.Config{
		MatchThreshold:    f.MatchThreshold,
		Workers:           f.Workers,
		MaxCommitAttempts: f.MaxCommitAttempts,
		Scorer:            strings.ToLower(strings.TrimSpace(f.Scorer)),
		MLWeight:          f.MLWeight,
		Weights:           f.Weights,
	}
	if s := strings.TrimSpace(f.GenerationTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return allocation.Config{}, fmt.Errorf("allocation config %q: generation_timeout: %w", path, err)
		}
		cfg.GenerationTimeout = d
	}
	return cfg, nil
}
