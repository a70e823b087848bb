package allocation

import (
	"runtime"
	"time"
)

const (
	DefaultMatchThreshold    = 0.30
	DefaultGenerationTimeout = 2 * time.Minute
	DefaultMaxCommitAttempts = 3
	DefaultMLWeight          = 0.6

	BatchIDPrefix   = "MATCH-"
	ReallocIDPrefix = "REALLOC-"
)

// Config tunes the engine. Zero fields take defaults.
type Config struct {
	// MatchThreshold is exclusive: a pair needs a score strictly above it.
	// Zero or below selects DefaultMatchThreshold, so 0 itself cannot be
	// configured; use a small positive value to admit nearly every pair.
	MatchThreshold float64 `yaml:"match_threshold"`
	// Workers bounds parallel scoring during generation.
	Workers int `yaml:"workers"`
	// GenerationTimeout fails the whole batch when scoring runs longer.
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	// MaxCommitAttempts bounds regenerate-and-commit cycles on capacity races.
	MaxCommitAttempts int     `yaml:"max_commit_attempts"`
	Scorer            string  `yaml:"scorer"`
	MLWeight          float64 `yaml:"ml_weight"`
	Weights           Weights `yaml:"weights"`
}

func (c Config) withDefaults() Config {
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	if c.MaxCommitAttempts <= 0 {
		c.MaxCommitAttempts = DefaultMaxCommitAttempts
	}
	if c.Scorer == "" {
		c.Scorer = ScorerRule
	}
	if c.MLWeight <= 0 || c.MLWeight > 1 {
		c.MLWeight = DefaultMLWeight
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	return c
}

// WithDefaults returns c with every unset field filled in.
func (c Config) WithDefaults() Config { return c.withDefaults() }

// Validate reports settings that would break scoring invariants.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.MatchThreshold >= 1 {
		return validationError("allocation.config", "match_threshold must be below 1")
	}
	if c.Scorer != ScorerRule && c.Scorer != ScorerHybrid {
		return validationError("allocation.config", "scorer must be rule or hybrid")
	}
	if err := c.Weights.Validate(); err != nil {
		return validationError("allocation.config", err.Error())
	}
	return nil
}
