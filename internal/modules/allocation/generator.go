package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	domainagg "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/aggregates"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/domain/placement"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// ScoredPair is an eligible (candidate, position) pair with its score.
type ScoredPair struct {
	Candidate *placement.Candidate
	Position  *placement.Position
	ScoreResult
}

// CandidateGenerator enumerates and scores eligible pairs.
type CandidateGenerator struct {
	scorer Scorer
	cfg    Config
	log    *logger.Logger
}

func NewCandidateGenerator(scorer Scorer, cfg Config, log *logger.Logger) *CandidateGenerator {
	if scorer == nil {
		scorer = RuleBasedScorer{Weights: cfg.Weights}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CandidateGenerator{
		scorer: scorer,
		cfg:    cfg.withDefaults(),
		log:    log.With("component", "CandidateGenerator"),
	}
}

// Generate scores every available PENDING candidate against every OPEN
// position, keeping pairs that pass the GPA floor and score above the
// threshold. Positions are scored in parallel; the output order is position
// order, then candidate order, independent of scheduling.
//
// If scoring outlives the generation timeout nothing is returned.
func (g *CandidateGenerator) Generate(ctx context.Context, candidates []*placement.Candidate, positions []*placement.Position) ([]ScoredPair, error) {
	const op = "Allocation.Generate"

	pool := make([]*placement.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Eligible() {
			pool = append(pool, c)
		}
	}
	open := make([]*placement.Position, 0, len(positions))
	for _, p := range positions {
		if p != nil && p.Status == placement.PositionOpen {
			open = append(open, p)
		}
	}
	if len(pool) == 0 || len(open) == 0 {
		return []ScoredPair{}, nil
	}

	start := time.Now()
	gctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	perPosition := make([][]ScoredPair, len(open))
	eg, ectx := errgroup.WithContext(gctx)
	eg.SetLimit(g.cfg.Workers)
	for i, p := range open {
		eg.Go(func() error {
			out := make([]ScoredPair, 0)
			for _, c := range pool {
				if err := ectx.Err(); err != nil {
					return err
				}
				if pair, ok := g.Pair(ectx, c, p); ok {
					out = append(out, pair)
				}
			}
			if err := ectx.Err(); err != nil {
				return err
			}
			perPosition[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domainagg.NewError(domainagg.CodeRetryable, op,
				fmt.Sprintf("candidate generation exceeded %s", g.cfg.GenerationTimeout), err)
		}
		return nil, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	total := 0
	for _, ps := range perPosition {
		total += len(ps)
	}
	pairs := make([]ScoredPair, 0, total)
	for _, ps := range perPosition {
		pairs = append(pairs, ps...)
	}
	g.log.Debug("Generated candidate pairs",
		"candidates", len(pool),
		"positions", len(open),
		"pairs", len(pairs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pairs, nil
}

// Pair applies the hard constraints and threshold to one pair.
func (g *CandidateGenerator) Pair(ctx context.Context, c *placement.Candidate, p *placement.Position) (ScoredPair, bool) {
	if !c.Eligible() || p == nil || c.GPA < p.MinGPA {
		return ScoredPair{}, false
	}
	res := g.scorer.Score(ctx, c, p)
	if res.TotalScore <= g.cfg.MatchThreshold {
		return ScoredPair{}, false
	}
	return ScoredPair{Candidate: c, Position: p, ScoreResult: res}, true
}

func (g *CandidateGenerator) Scorer() Scorer { return g.scorer }
