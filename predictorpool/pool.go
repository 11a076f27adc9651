// Package predictorpool implements the Predictor Pool — Tier 2 (C6):
// active-predictor retrieval, time-decay-weighted threshold
// evaluation, and idempotent consumption, per spec.md §4.6.
package predictorpool

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/events"
	"github.com/GolferGeek/predictor-pipeline/repo"
)

// Dependencies wires the Pool's collaborators.
type Dependencies struct {
	Predictors repo.PredictorRepository
	Locks      repo.TargetLock
	Events     *events.Bus
	Clock      core.Clock
	Logger     core.Logger
}

// Pool is the Predictor Pool (C6) entry point.
type Pool struct {
	deps Dependencies
	log  core.Logger
}

// NewPool wires a Pool from deps, defaulting missing collaborators.
func NewPool(deps Dependencies) *Pool {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	if deps.Locks == nil {
		deps.Locks = repo.NewInMemoryLock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/predictorpool")
	}
	return &Pool{deps: deps, log: logger}
}

// Stats summarizes the active-set threshold inputs and outputs, for
// getPredictorStats (spec.md §4.6).
type Stats struct {
	ActiveCount        int
	CombinedStrength   float64
	DominantDirection  repo.Direction
	DirectionConsensus float64
	AvgConfidence      float64
}

// GetActivePredictors runs the expiration sweep, then returns the
// remaining active rows (spec.md §4.6).
func (p *Pool) GetActivePredictors(ctx context.Context, targetID string) ([]repo.Predictor, error) {
	if _, err := p.deps.Predictors.ExpireOldPredictors(ctx, targetID); err != nil {
		return nil, fmt.Errorf("expire old predictors: %w", err)
	}
	return p.deps.Predictors.FindActiveByTarget(ctx, targetID)
}

// EvaluateThreshold computes the weighted stats and reports whether
// the configured threshold is met (spec.md §4.6). On met, emits
// predictor.ready to C9.
func (p *Pool) EvaluateThreshold(ctx context.Context, targetID string, cfg repo.ThresholdConfig) (repo.ThresholdEvaluation, error) {
	active, err := p.GetActivePredictors(ctx, targetID)
	if err != nil {
		return repo.ThresholdEvaluation{}, err
	}

	stats := computeStats(active, cfg.TimeDecayRate, p.deps.Clock.Now())

	eval := repo.ThresholdEvaluation{
		Config:             cfg,
		ActiveCount:        stats.ActiveCount,
		CombinedStrength:   stats.CombinedStrength,
		DominantDirection:  stats.DominantDirection,
		DirectionConsensus: stats.DirectionConsensus,
		AvgConfidence:      stats.AvgConfidence,
	}
	eval.MeetsThreshold = meetsThreshold(stats, cfg)

	if eval.MeetsThreshold && p.deps.Events != nil {
		p.deps.Events.Emit("target:"+targetID, "evaluate_threshold", "predictor threshold met", events.EventPredictorReady, events.StatusOK, eval)
	}

	return eval, nil
}

// WouldMeetThreshold reports whether adding one hypothetical predictor
// of the given strength/direction would satisfy the threshold,
// without mutating the pool (spec.md §4.6).
func (p *Pool) WouldMeetThreshold(ctx context.Context, targetID string, newStrength int, newDirection repo.Direction, cfg repo.ThresholdConfig) (bool, error) {
	active, err := p.GetActivePredictors(ctx, targetID)
	if err != nil {
		return false, err
	}
	now := p.deps.Clock.Now()
	hypothetical := append(append([]repo.Predictor(nil), active...), repo.Predictor{
		Direction:  newDirection,
		Strength:   newStrength,
		Confidence: 1,
		CreatedAt:  now,
	})
	stats := computeStats(hypothetical, cfg.TimeDecayRate, now)
	return meetsThreshold(stats, cfg), nil
}

func meetsThreshold(stats Stats, cfg repo.ThresholdConfig) bool {
	return stats.ActiveCount >= cfg.MinPredictors &&
		stats.CombinedStrength >= cfg.MinCombinedStrength &&
		stats.DirectionConsensus >= cfg.MinDirectionConsensus
}

// GetPredictorStats returns the same weighted statistics EvaluateThreshold
// computes, without the meets-threshold verdict or event emission.
func (p *Pool) GetPredictorStats(ctx context.Context, targetID string, decayRate float64) (Stats, error) {
	active, err := p.GetActivePredictors(ctx, targetID)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(active, decayRate, p.deps.Clock.Now()), nil
}

// ConsumePredictors marks every currently active predictor as
// consumed against predictionID, serialized per target via the
// target lock (spec.md §5). Idempotent per predictor.
func (p *Pool) ConsumePredictors(ctx context.Context, targetID, predictionID string) error {
	unlock, err := p.deps.Locks.Lock(ctx, targetID)
	if err != nil {
		return fmt.Errorf("acquire target lock: %w", err)
	}
	defer unlock()

	active, err := p.deps.Predictors.FindActiveByTarget(ctx, targetID)
	if err != nil {
		return fmt.Errorf("find active predictors: %w", err)
	}
	for _, pred := range active {
		if err := p.deps.Predictors.ConsumePredictor(ctx, pred.ID, predictionID); err != nil {
			return fmt.Errorf("consume predictor %s: %w", pred.ID, err)
		}
	}
	return nil
}

// computeStats implements spec.md §4.6's time-decay weighting:
// w_i = exp(-decay_rate * hours_old), dominant direction = argmax_d
// W_d, combined_strength is the unweighted strength sum, and
// direction_consensus = W_dominant / sum(W_d).
func computeStats(predictors []repo.Predictor, decayRate float64, now time.Time) Stats {
	weightByDirection := map[repo.Direction]float64{
		repo.DirectionBullish: 0,
		repo.DirectionBearish: 0,
		repo.DirectionNeutral: 0,
	}
	var combinedStrength, confidenceSum, totalWeight float64

	for _, pred := range predictors {
		hoursOld := now.Sub(pred.CreatedAt).Hours()
		if hoursOld < 0 {
			hoursOld = 0
		}
		w := math.Exp(-decayRate * hoursOld)
		weightByDirection[pred.Direction] += w
		combinedStrength += float64(pred.Strength)
		confidenceSum += pred.Confidence
		totalWeight += w
	}

	dominant := repo.DirectionNeutral
	dominantWeight := -1.0
	for _, d := range []repo.Direction{repo.DirectionBullish, repo.DirectionBearish, repo.DirectionNeutral} {
		if w := weightByDirection[d]; w > dominantWeight {
			dominant = d
			dominantWeight = w
		}
	}

	consensus := 0.0
	if totalWeight > 0 {
		consensus = dominantWeight / totalWeight
	}

	avgConfidence := 0.0
	if len(predictors) > 0 {
		avgConfidence = confidenceSum / float64(len(predictors))
	}

	return Stats{
		ActiveCount:        len(predictors),
		CombinedStrength:   combinedStrength,
		DominantDirection:  dominant,
		DirectionConsensus: consensus,
		AvgConfidence:      avgConfidence,
	}
}
