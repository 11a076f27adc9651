package prediction

import (
	"context"
	"fmt"

	"github.com/GolferGeek/predictor-pipeline/ensemble"
	"github.com/GolferGeek/predictor-pipeline/events"
	"github.com/GolferGeek/predictor-pipeline/repo"
)

// refreshPrediction re-runs the three-way ensemble and updates the
// existing row in place, without consuming predictors (spec.md §4.7
// "Refresh"). The confidence/direction estimator here intentionally
// differs from generateFresh's richer aggregation (spec.md §9 Open
// Question 2: the inconsistency is preserved verbatim, not
// reconciled), but reasoning and the fork breakdown are always taken
// from this re-run's arbitrator assessment for the owning analyst —
// spec.md §4.7 lists `reasoning` among the fields a refresh updates.
func (g *Generator) refreshPrediction(ctx context.Context, existing repo.Prediction, eval repo.ThresholdEvaluation) (repo.Prediction, error) {
	result, err := g.deps.Ensemble.RunThreeWayForkEnsemble(ctx, existing.TargetID, contextFromThreshold(existing.TargetID, eval), ensemble.Options{})
	if err != nil {
		return repo.Prediction{}, fmt.Errorf("re-run ensemble: %w", err)
	}

	arbitrator := result.ByFork[repo.ForkArbitrator].AssessmentFor(existing.AnalystSlug)

	newDirection := directionMap(eval.DominantDirection)
	newConfidence := 0.6*eval.DirectionConsensus + 0.4*eval.AvgConfidence
	newMagnitudePercent := newConfidence * 5
	newMagnitude := magnitudeFor(newMagnitudePercent)

	versionRecord := repo.PredictionVersion{
		Timestamp:      existing.UpdatedAt,
		Direction:      existing.Direction,
		Confidence:     existing.Confidence,
		Magnitude:      existing.Magnitude,
		PredictorCount: existing.AnalystEnsemble.PredictorCount,
	}

	now := g.deps.Clock.Now()
	updated, err := g.deps.Predictions.Update(ctx, existing.ID, func(p *repo.Prediction) {
		p.Direction = newDirection
		p.Confidence = newConfidence
		p.Magnitude = repo.Magnitude(newMagnitude)
		p.MagnitudePct = newMagnitudePercent
		p.UpdatedAt = now
		if arbitrator.Reasoning != "" {
			p.Reasoning = arbitrator.Reasoning
		}
		p.AnalystEnsemble.PredictorCount = eval.ActiveCount
		p.AnalystEnsemble.CombinedStrength = eval.CombinedStrength
		p.AnalystEnsemble.DirectionConsensus = eval.DirectionConsensus
		p.AnalystEnsemble.LastRefresh = &now
		p.AnalystEnsemble.Versions = append(p.AnalystEnsemble.Versions, versionRecord)
		if p.AnalystEnsemble.ForkBreakdown == nil {
			p.AnalystEnsemble.ForkBreakdown = map[string]interface{}{}
		}
		p.AnalystEnsemble.ForkBreakdown["user"] = result.ByFork[repo.ForkUser].AssessmentFor(existing.AnalystSlug)
		p.AnalystEnsemble.ForkBreakdown["ai"] = result.ByFork[repo.ForkAI].AssessmentFor(existing.AnalystSlug)
		p.AnalystEnsemble.ForkBreakdown["arbitrator"] = arbitrator
	})
	if err != nil {
		return repo.Prediction{}, fmt.Errorf("update prediction %s: %w", existing.ID, err)
	}

	g.deps.Events.Emit("target:"+existing.TargetID, "refresh_prediction", "prediction refreshed", events.EventPredictionRefreshed, events.StatusOK, updated)

	return updated, nil
}

// contextFromThreshold assembles the ensemble input the refresh path
// re-runs against: a summary of the current threshold evaluation.
func contextFromThreshold(targetID string, eval repo.ThresholdEvaluation) ensemble.EnsembleInput {
	return ensemble.EnsembleInput{
		TargetID: targetID,
		Content:  fmt.Sprintf("Threshold summary: dominant=%s consensus=%.3f combined_strength=%.1f active=%d", eval.DominantDirection, eval.DirectionConsensus, eval.CombinedStrength, eval.ActiveCount),
	}
}
