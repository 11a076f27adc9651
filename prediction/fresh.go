package prediction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/GolferGeek/predictor-pipeline/ensemble"
	"github.com/GolferGeek/predictor-pipeline/events"
	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/GolferGeek/predictor-pipeline/snapshot"
)

const defaultTimeframeHours = 24

// generateFresh implements spec.md §4.7's "Fresh generation" branch.
func (g *Generator) generateFresh(ctx context.Context, targetID string, eval repo.ThresholdEvaluation, genCtx GenerationContext) (*repo.Prediction, error) {
	activePredictors, err := g.deps.Pool.GetActivePredictors(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get active predictors: %w", err)
	}

	input := buildFreshInput(ctx, targetID, activePredictors, eval, g.deps.TargetSnapshots)

	result, err := g.deps.Ensemble.RunThreeWayForkEnsemble(ctx, targetID, input, ensemble.Options{})
	if err != nil {
		return nil, fmt.Errorf("run three-way fork ensemble: %w", err)
	}

	analysts := flatOnlyFilter(result)
	if len(analysts) == 0 {
		return nil, nil
	}

	now := g.deps.Clock.Now()
	timeframeHours := computeTimeframeHours(activePredictors, now)
	expiresAt := now.Add(time.Duration(timeframeHours) * time.Hour)

	var created []repo.Prediction
	for _, slug := range analysts {
		arbitrator := result.ByFork[repo.ForkArbitrator].AssessmentFor(slug)
		direction := directionMap(arbitrator.Direction)
		magnitudePercent := arbitrator.Confidence * 5

		sizing := ComputeQuantity(arbitrator.Confidence, magnitudePercent, genCtx.EntryPrice, genCtx.PortfolioValue, genCtx.Symbol, genCtx.ActingUser == "system", genCtx.HasEntryPrice)

		pred := repo.Prediction{
			TargetID:        targetID,
			Direction:       direction,
			Magnitude:       repo.Magnitude(magnitudeFor(magnitudePercent)),
			MagnitudePct:    magnitudePercent,
			Confidence:      arbitrator.Confidence,
			TimeframeHours:  timeframeHours,
			ExpiresAt:       expiresAt,
			PredictedAt:     now,
			UpdatedAt:       now,
			Reasoning:       arbitrator.Reasoning,
			Status:          repo.PredictionActive,
			AnalystSlug:     slug,
			AnalystContextVersionID: result.ByFork[repo.ForkUser].AssessmentFor(slug).ContextVersionID,
			AnalystEnsemble: repo.AnalystEnsemble{
				PredictorCount:     eval.ActiveCount,
				CombinedStrength:   eval.CombinedStrength,
				DirectionConsensus: eval.DirectionConsensus,
				ForkBreakdown: map[string]interface{}{
					"user":       result.ByFork[repo.ForkUser].AssessmentFor(slug),
					"ai":         result.ByFork[repo.ForkAI].AssessmentFor(slug),
					"arbitrator": arbitrator,
				},
			},
			RecommendedQuantity: sizing.RecommendedQuantity,
			SizingReason:        sizing.Reason,
		}

		saved, err := g.deps.Predictions.Create(ctx, pred)
		if err != nil {
			return nil, fmt.Errorf("create prediction for analyst %s: %w", slug, err)
		}
		created = append(created, saved)

		// spec.md §4.7 step 9: request a position for every (analyst ×
		// fork) whose direction is non-flat, not just the saved row's
		// own (arbitrator) direction — each fork tracks its own paper
		// performance independently.
		if g.deps.Positions != nil && genCtx.HasEntryPrice {
			for _, fork := range []repo.ForkType{repo.ForkUser, repo.ForkAI, repo.ForkArbitrator} {
				forkAssessment := result.ByFork[fork].AssessmentFor(slug)
				forkDirection := directionMap(forkAssessment.Direction)
				if forkDirection == repo.PredictionFlat {
					continue
				}
				forkMagnitudePercent := forkAssessment.Confidence * 5
				forkSizing := ComputeQuantity(forkAssessment.Confidence, forkMagnitudePercent, genCtx.EntryPrice, genCtx.PortfolioValue, genCtx.Symbol, genCtx.ActingUser == "system", genCtx.HasEntryPrice)
				if _, err := g.deps.Positions.CreatePosition(ctx, repo.PositionRequest{
					TargetID:            targetID,
					PredictionID:        saved.ID,
					AnalystSlug:         slug,
					ForkType:            fork,
					Direction:           forkDirection,
					RecommendedQuantity: forkSizing.RecommendedQuantity,
					EntryPrice:          genCtx.EntryPrice,
					HasEntryPrice:       genCtx.HasEntryPrice,
				}); err != nil {
					g.log.Warn("position creation request failed", map[string]interface{}{"prediction_id": saved.ID, "fork": string(fork), "error": err.Error()})
				}
			}
		}
	}

	primary := created[0]
	if err := g.deps.Pool.ConsumePredictors(ctx, targetID, primary.ID); err != nil {
		return nil, fmt.Errorf("consume predictors: %w", err)
	}

	if g.deps.Snapshots != nil {
		assessments := make([]interface{}, 0, len(analysts)*3)
		for _, fork := range []repo.ForkType{repo.ForkUser, repo.ForkAI, repo.ForkArbitrator} {
			for _, a := range result.ByFork[fork].Assessments {
				assessments = append(assessments, a)
			}
		}

		rejected := g.rejectedSignalsFor(ctx, targetID)

		timeline := []repo.TimelineEvent{
			{Timestamp: now, EventType: "threshold_met", Details: map[string]interface{}{
				"dominant_direction": string(eval.DominantDirection),
				"direction_consensus": eval.DirectionConsensus,
				"combined_strength":   eval.CombinedStrength,
				"active_predictors":   eval.ActiveCount,
			}},
			{Timestamp: now, EventType: "ensemble_run", Details: map[string]interface{}{
				"analysts": len(analysts),
				"user_vs_ai_agreement": result.Agreement.UserVsAiAgreement,
			}},
			{Timestamp: now, EventType: "prediction_created", Details: map[string]interface{}{
				"prediction_id":  primary.ID,
				"analyst_count":  len(created),
			}},
		}

		if _, err := g.deps.Snapshots.Write(ctx, snapshot.BuildInput{
			PredictionID:        primary.ID,
			Predictors:          activePredictors,
			RejectedSignals:     rejected,
			AnalystAssessments:  assessments,
			LLMEnsemble:         buildLLMEnsembleSummary(result),
			LearningsApplied:    collectLearningsApplied(result),
			ThresholdEvaluation: eval,
			Timeline:            timeline,
		}, now); err != nil {
			return nil, fmt.Errorf("write snapshot: %w", err)
		}
	}

	if g.deps.Positions != nil {
		g.deps.Events.Emit("target:"+targetID, "generate_fresh", "positions requested", events.EventPositionsCreated, events.StatusOK, primary.ID)
	}
	g.deps.Events.Emit("target:"+targetID, "generate_fresh", "prediction created", events.EventPredictionCreated, events.StatusOK, primary)

	return &primary, nil
}

// buildFreshInput assembles the context string from the active
// predictor set, threshold summary, and latest target snapshot when
// available (spec.md §4.7 step 1).
func buildFreshInput(ctx context.Context, targetID string, predictors []repo.Predictor, eval repo.ThresholdEvaluation, snapshots repo.TargetSnapshotRepository) ensemble.EnsembleInput {
	content := fmt.Sprintf("Threshold: dominant=%s consensus=%.3f combined_strength=%.1f active=%d\n",
		eval.DominantDirection, eval.DirectionConsensus, eval.CombinedStrength, eval.ActiveCount)
	for _, p := range predictors {
		content += fmt.Sprintf("- [%s] strength=%d confidence=%.2f: %s\n", p.Direction, p.Strength, p.Confidence, p.Reasoning)
	}
	if snapshots != nil {
		if snap, ok, err := snapshots.Latest(ctx, targetID); err == nil && ok {
			content += fmt.Sprintf("Latest price: open=%.2f high=%.2f low=%.2f volume=%.0f change24h=%.2f%% at %s\n",
				snap.Open, snap.High, snap.Low, snap.Volume, snap.Change24hPct, snap.PriceAt)
		}
	}
	return ensemble.EnsembleInput{TargetID: targetID, Content: content}
}

// computeTimeframeHours implements spec.md §4.7 step 3: the minimum
// remaining hours across predictors' expiry, or 24 when there are none.
func computeTimeframeHours(predictors []repo.Predictor, now time.Time) int {
	if len(predictors) == 0 {
		return defaultTimeframeHours
	}
	minRemaining := math.Inf(1)
	for _, p := range predictors {
		remaining := p.ExpiresAt.Sub(now).Hours()
		if remaining < minRemaining {
			minRemaining = remaining
		}
	}
	hours := int(math.Round(minRemaining))
	if hours < 1 {
		hours = 1
	}
	return hours
}

// rejectedSignalsFor returns the target's signals that never cleared
// the ingest gate (spec.md §4.8 "rejected_signals"), or nil when no
// signal repository is wired — the snapshot then simply carries an
// empty list rather than a fabricated one.
func (g *Generator) rejectedSignalsFor(ctx context.Context, targetID string) []repo.Signal {
	if g.deps.Signals == nil {
		return nil
	}
	signals, err := g.deps.Signals.FindByTarget(ctx, targetID)
	if err != nil {
		g.log.Warn("failed to load signals for snapshot", map[string]interface{}{"target_id": targetID, "error": err.Error()})
		return nil
	}
	var rejected []repo.Signal
	for _, s := range signals {
		if s.Rejected {
			rejected = append(rejected, s)
		}
	}
	return rejected
}

// buildLLMEnsembleSummary collapses the three-way fork result into the
// per-tier view spec.md §4.8's llm_ensemble field carries: which tiers
// fired, each tier's last-seen direction/confidence/model/provider,
// and overall cross-fork agreement.
func buildLLMEnsembleSummary(result ensemble.ThreeWayForkResult) repo.LLMEnsembleSummary {
	tierResults := map[string]repo.TierResult{}
	for _, fork := range []repo.ForkType{repo.ForkUser, repo.ForkAI, repo.ForkArbitrator} {
		for _, a := range result.ByFork[fork].Assessments {
			if a.Tier == "" {
				continue
			}
			tierResults[a.Tier] = repo.TierResult{
				Direction:  a.Direction,
				Confidence: a.Confidence,
				Model:      a.Model,
				Provider:   a.Provider,
			}
		}
	}

	tiersUsed := make([]string, 0, len(tierResults))
	for tier := range tierResults {
		tiersUsed = append(tiersUsed, tier)
	}
	sort.Strings(tiersUsed)

	agreementLevel := (result.Agreement.UserVsAiAgreement + result.Agreement.ArbitratorAgreesWithUser + result.Agreement.ArbitratorAgreesWithAi) / 3

	return repo.LLMEnsembleSummary{
		TiersUsed:      tiersUsed,
		TierResults:    tierResults,
		AgreementLevel: agreementLevel,
	}
}

// collectLearningsApplied flattens and dedupes the learnings folded
// into every user/arbitrator-fork prompt (spec.md §4.4 step 1 scopes
// learnings to those two forks; engine.assessOne never fetches them
// for the ai fork).
func collectLearningsApplied(result ensemble.ThreeWayForkResult) []string {
	seen := map[string]bool{}
	var out []string
	for _, fork := range []repo.ForkType{repo.ForkUser, repo.ForkArbitrator} {
		for _, a := range result.ByFork[fork].Assessments {
			for _, l := range a.LearningsApplied {
				if l == "" || seen[l] {
					continue
				}
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}

// flatOnlyFilter drops any analyst whose both user and ai fork
// assessments are flat/neutral (spec.md §4.7 step 2), returning the
// surviving analyst slugs.
func flatOnlyFilter(result ensemble.ThreeWayForkResult) []string {
	userFork := result.ByFork[repo.ForkUser]
	aiFork := result.ByFork[repo.ForkAI]

	seen := map[string]bool{}
	var order []string
	for _, a := range userFork.Assessments {
		if !seen[a.Analyst] {
			seen[a.Analyst] = true
			order = append(order, a.Analyst)
		}
	}

	var survivors []string
	for _, slug := range order {
		u := userFork.AssessmentFor(slug)
		a := aiFork.AssessmentFor(slug)
		if u.Direction == repo.DirectionNeutral && a.Direction == repo.DirectionNeutral {
			continue
		}
		survivors = append(survivors, slug)
	}
	return survivors
}
