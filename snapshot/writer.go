// Package snapshot implements the Snapshot Writer (C8): assembly and
// write-once persistence of the immutable per-prediction audit
// record, per spec.md §4.8.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

// Writer is the Snapshot Writer (C8) entry point.
type Writer struct {
	repo repo.SnapshotRepository
}

// NewWriter wires a Writer over repo.
func NewWriter(r repo.SnapshotRepository) *Writer {
	return &Writer{repo: r}
}

// BuildInput is everything needed to assemble one snapshot record
// (spec.md §4.8's field list).
type BuildInput struct {
	PredictionID        string
	Predictors          []repo.Predictor
	RejectedSignals     []repo.Signal
	AnalystAssessments  []interface{}
	LLMEnsemble         repo.LLMEnsembleSummary
	LearningsApplied    []string
	ThresholdEvaluation repo.ThresholdEvaluation
	Timeline            []repo.TimelineEvent
}

// Build assembles the immutable record from in. Pure function: no I/O.
func Build(in BuildInput, now time.Time) repo.PredictionSnapshot {
	predictors := make([]repo.SnapshotPredictor, 0, len(in.Predictors))
	for _, p := range in.Predictors {
		predictors = append(predictors, repo.SnapshotPredictor{
			ID:          p.ID,
			Content:     p.Reasoning,
			Direction:   p.Direction,
			Strength:    p.Strength,
			Confidence:  p.Confidence,
			AnalystSlug: p.AnalystSlug,
			CreatedAt:   p.CreatedAt,
		})
	}

	return repo.PredictionSnapshot{
		PredictionID:        in.PredictionID,
		Predictors:          predictors,
		RejectedSignals:     in.RejectedSignals,
		AnalystAssessments:  in.AnalystAssessments,
		LLMEnsemble:         in.LLMEnsemble,
		LearningsApplied:    in.LearningsApplied,
		ThresholdEvaluation: in.ThresholdEvaluation,
		Timeline:            in.Timeline,
		CreatedAt:           now,
	}
}

// Write assembles and persists the snapshot. Write-once: callers must
// not call Write twice for the same prediction ID — the repository
// contract has no update operation (spec.md §4.8 "no mutations after
// creation").
func (w *Writer) Write(ctx context.Context, in BuildInput, now time.Time) (repo.PredictionSnapshot, error) {
	snap := Build(in, now)
	if err := w.repo.Create(ctx, snap); err != nil {
		return repo.PredictionSnapshot{}, fmt.Errorf("write snapshot for prediction %s: %w", in.PredictionID, err)
	}
	return snap, nil
}
