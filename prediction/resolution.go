package prediction

import (
	"context"
	"fmt"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/repo"
)

// ResolutionSweeper drives the active→resolved and active→expired
// transitions spec.md §4.7 attributes to "external collaborators": an
// outside scheduler calls ResolveOutcome when ground truth lands, and
// SweepExpired periodically to close out predictions that ran past
// their horizon without one. It has no opinion on where outcomes come
// from — that is entirely repo.OutcomeHook's concern.
type ResolutionSweeper struct {
	predictions repo.PredictionRepository
	hook        repo.OutcomeHook
	clock       core.Clock
	log         core.Logger
}

// NewResolutionSweeper wires a sweeper from its collaborators,
// defaulting clock/logger the same way every other constructor in
// this package does.
func NewResolutionSweeper(predictions repo.PredictionRepository, hook repo.OutcomeHook, clock core.Clock, logger core.Logger) *ResolutionSweeper {
	if clock == nil {
		clock = core.RealClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/prediction/resolution")
	}
	return &ResolutionSweeper{predictions: predictions, hook: hook, clock: clock, log: logger}
}

// ResolveOutcome records ground truth for predictionID through the hook
// and transitions the prediction row to resolved, stashing the raw
// outcome payload for traceability.
func (s *ResolutionSweeper) ResolveOutcome(ctx context.Context, predictionID string, outcome map[string]interface{}) error {
	if err := s.hook.RecordOutcome(ctx, predictionID, outcome); err != nil {
		return fmt.Errorf("record outcome for prediction %s: %w", predictionID, err)
	}
	now := s.clock.Now()
	if _, err := s.predictions.Update(ctx, predictionID, func(p *repo.Prediction) {
		p.Status = repo.PredictionResolved
		p.UpdatedAt = now
		if p.LLMEnsemble == nil {
			p.LLMEnsemble = map[string]interface{}{}
		}
		p.LLMEnsemble["outcome"] = outcome
	}); err != nil {
		return fmt.Errorf("mark prediction %s resolved: %w", predictionID, err)
	}
	return nil
}

// SweepExpired asks the hook which active predictions have passed
// their resolution horizon and transitions each to expired, logging
// (not failing) on a per-row update error so one bad row doesn't stall
// the rest of the sweep.
func (s *ResolutionSweeper) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.hook.ExpirePastHorizon(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire past horizon: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if _, err := s.predictions.Update(ctx, id, func(p *repo.Prediction) {
			p.Status = repo.PredictionExpiredSt
			p.UpdatedAt = now
		}); err != nil {
			s.log.Warn("failed to mark prediction expired", map[string]interface{}{"prediction_id": id, "error": err.Error()})
			continue
		}
		expired++
	}
	return expired, nil
}
