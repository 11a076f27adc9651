package prediction

import (
	"context"
	"fmt"
	"math"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/ensemble"
	"github.com/GolferGeek/predictor-pipeline/events"
	"github.com/GolferGeek/predictor-pipeline/predictorpool"
	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/GolferGeek/predictor-pipeline/snapshot"
)

// Dependencies wires the Generator's collaborators.
type Dependencies struct {
	Predictions     repo.PredictionRepository
	Predictors      repo.PredictorRepository
	Pool            *predictorpool.Pool
	Ensemble        *ensemble.Engine
	TargetSnapshots repo.TargetSnapshotRepository
	Signals         repo.SignalRepository // optional; nil leaves snapshot RejectedSignals empty
	Snapshots       *snapshot.Writer
	Positions       repo.PositionCreator // optional; nil skips position requests
	Events          *events.Bus
	Clock           core.Clock
	Config          repo.ThresholdConfig
	Logger          core.Logger
}

// Generator is the Prediction Generator (C7) entry point.
type Generator struct {
	deps Dependencies
	log  core.Logger
}

// NewGenerator wires a Generator from deps, defaulting the threshold
// config to spec.md §4.6's balanced-strategy defaults.
func NewGenerator(deps Dependencies) *Generator {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	if deps.Config == (repo.ThresholdConfig{}) {
		deps.Config = repo.DefaultThresholdConfig()
	}
	if deps.Events == nil {
		deps.Events = events.NewBus("predictor-pipeline", deps.Clock, deps.Logger)
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/prediction")
	}
	return &Generator{deps: deps, log: logger}
}

// AttemptPredictionGeneration implements spec.md §4.7's full
// algorithm. When an active prediction exists it is returned: refreshed
// in place when the threshold is met and shouldRefresh says so,
// otherwise unchanged. Returns (nil, nil) when no prediction is active
// and the threshold is not met, or when fresh generation emits nothing.
//
// Note on Variant A (spec.md §9 Open Question 1, decided in favor of
// Variant A — no separate arbitrator row): "P_active contains the
// arbitrator row" is reinterpreted as "P_active is non-empty", since
// every active row is a canonical per-analyst row under Variant A.
func (g *Generator) AttemptPredictionGeneration(ctx context.Context, targetID string, genCtx GenerationContext) (*repo.Prediction, error) {
	active, err := g.deps.Predictions.FindByTarget(ctx, targetID, statusPtr(repo.PredictionActive), repo.PredictionFindOptions{})
	if err != nil {
		return nil, fmt.Errorf("find active predictions: %w", err)
	}

	eval, err := g.deps.Pool.EvaluateThreshold(ctx, targetID, g.deps.Config)
	if err != nil {
		return nil, fmt.Errorf("evaluate threshold: %w", err)
	}

	if len(active) > 0 {
		primary := active[0]
		if !eval.MeetsThreshold {
			return &primary, nil
		}
		if g.shouldRefresh(primary, eval) {
			refreshed, err := g.refreshPrediction(ctx, primary, eval)
			if err != nil {
				return nil, fmt.Errorf("refresh prediction: %w", err)
			}
			return &refreshed, nil
		}
		return &primary, nil
	}

	if !eval.MeetsThreshold {
		return nil, nil
	}

	return g.generateFresh(ctx, targetID, eval, genCtx)
}

// shouldRefresh implements spec.md §4.7 step 2b.
func (g *Generator) shouldRefresh(existing repo.Prediction, eval repo.ThresholdEvaluation) bool {
	newDirection := directionMap(eval.DominantDirection)
	if newDirection != existing.Direction {
		return true
	}
	estimatedNewConfidence := 0.6*eval.DirectionConsensus + 0.4*eval.AvgConfidence
	return math.Abs(existing.Confidence-estimatedNewConfidence) > 0.15
}

func statusPtr(s repo.PredictionStatus) *repo.PredictionStatus { return &s }
