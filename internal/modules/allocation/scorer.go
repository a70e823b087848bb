package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

const (
	ScorerRule   = "rule"
	ScorerHybrid = "hybrid"
)

// Scorer computes the match score used for ranking. Implementations never
// fail: a scorer with an unreliable source degrades to the rule score.
type Scorer interface {
	Name() string
	Score(ctx context.Context, c *placement.Candidate, p *placement.Position) ScoreResult
}

// RuleBasedScorer is the pure weighted score.
type RuleBasedScorer struct {
	Weights Weights
}

func (RuleBasedScorer) Name() string { return ScorerRule }

func (s RuleBasedScorer) Score(_ context.Context, c *placement.Candidate, p *placement.Position) ScoreResult {
	w := s.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}
	return w.score(c, p)
}

type Prediction struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Predictor is an external model scoring a pair from its features.
type Predictor interface {
	Predict(ctx context.Context, features Features) (Prediction, error)
}

// HybridScorer blends a predictor with the rule score:
// MLWeight*ml + (1-MLWeight)*rule.
type HybridScorer struct {
	Rule      RuleBasedScorer
	Predictor Predictor
	MLWeight  float64
	Timeout   time.Duration
	Log       *logger.Logger
	// OnFallback, when set, is told why a pair fell back to the rule score.
	OnFallback func(reason string)
}

func NewHybridScorer(rule RuleBasedScorer, predictor Predictor, mlWeight float64, timeout time.Duration, log *logger.Logger) *HybridScorer {
	if mlWeight <= 0 || mlWeight > 1 {
		mlWeight = DefaultMLWeight
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HybridScorer{
		Rule:      rule,
		Predictor: predictor,
		MLWeight:  mlWeight,
		Timeout:   timeout,
		Log:       log.With("component", "HybridScorer"),
	}
}

func (*HybridScorer) Name() string { return ScorerHybrid }

func (s *HybridScorer) Score(ctx context.Context, c *placement.Candidate, p *placement.Position) ScoreResult {
	rule := s.Rule.Score(ctx, c, p)
	if s.Predictor == nil || c == nil || p == nil {
		return rule
	}
	pctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	pred, err := s.Predictor.Predict(pctx, ExtractFeatures(c, p))
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	if err == nil && (math.IsNaN(pred.Score) || pred.Score < 0 || pred.Score > 1) {
		err = fmt.Errorf("prediction %v outside [0,1]", pred.Score)
		reason = "out_of_range"
	}
	if err != nil {
		if s.OnFallback != nil {
			s.OnFallback(reason)
		}
		s.Log.Warn("ML prediction failed, using rule-based score",
			"candidate_id", c.ID.String(),
			"position_id", p.ID.String(),
			"error", err,
		)
		return rule
	}

	ml := round(pred.Score, 2)
	conf := round(clamp01(pred.Confidence), 2)
	out := rule
	out.TotalScore = clamp01(round(s.MLWeight*pred.Score+(1-s.MLWeight)*rule.TotalScore, 3))
	out.Breakdown.MLPrediction = &ml
	out.Breakdown.MLConfidence = &conf
	out.Explanation = fmt.Sprintf("%s, ML: %d%%", rule.Explanation, int(math.Round(pred.Score*100)))
	return out
}
