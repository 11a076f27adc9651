// Package prediction implements the Prediction Generator — Tier 3
// (C7): the refresh/fresh-generation state machine, per-analyst
// prediction assembly, and position-sizing, per spec.md §4.7.
package prediction

import (
	"github.com/GolferGeek/predictor-pipeline/repo"
)

// GenerationContext carries the per-call inputs attemptPredictionGeneration
// needs beyond the target ID: the acting user (for the synthetic
// "system" sizing rule) and the portfolio/price inputs sizing needs.
type GenerationContext struct {
	ActingUser     string
	PortfolioValue float64
	EntryPrice     float64
	HasEntryPrice  bool
	Symbol         string
}

func directionMap(d repo.Direction) repo.PredictionDirection {
	switch d {
	case repo.DirectionBullish:
		return repo.PredictionUp
	case repo.DirectionBearish:
		return repo.PredictionDown
	default:
		return repo.PredictionFlat
	}
}

func isFlat(d repo.PredictionDirection) bool {
	return d == repo.PredictionFlat
}
