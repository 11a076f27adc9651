package ensemble

import (
	"math"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

// Aggregate combines assessments per spec.md §4.4's three methods.
// Paper-only assessments are excluded from every method.
func Aggregate(method AggregationMethod, assessments []Assessment) Aggregated {
	voting := make([]Assessment, 0, len(assessments))
	for _, a := range assessments {
		if !a.IsPaperOnly {
			voting = append(voting, a)
		}
	}
	if len(voting) == 0 {
		return Aggregated{Direction: repo.DirectionNeutral, Confidence: 0, ConsensusStrength: 0}
	}

	switch method {
	case AggregationWeightedMajority:
		return weightedMajority(voting)
	case AggregationWeightedAverage:
		return weightedAverage(voting)
	default: // AggregationWeightedEnsemble
		return weightedEnsemble(voting)
	}
}

func weightedMajority(voting []Assessment) Aggregated {
	byDirection := map[repo.Direction]float64{}
	confSumByDirection := map[repo.Direction]float64{}
	countByDirection := map[repo.Direction]int{}
	total := 0.0

	for _, a := range voting {
		byDirection[a.Direction] += a.EffectiveWeight
		confSumByDirection[a.Direction] += a.Confidence
		countByDirection[a.Direction]++
		total += a.EffectiveWeight
	}

	winner, winnerWeight := argmaxDirection(byDirection)
	consensus := 0.0
	if total > 0 {
		consensus = winnerWeight / total
	}
	confidence := 0.0
	if n := countByDirection[winner]; n > 0 {
		confidence = confSumByDirection[winner] / float64(n)
	}

	return Aggregated{Direction: winner, Confidence: confidence, ConsensusStrength: consensus}
}

func directionValue(d repo.Direction) float64 {
	switch d {
	case repo.DirectionBullish:
		return 1
	case repo.DirectionBearish:
		return -1
	default:
		return 0
	}
}

func weightedAverage(voting []Assessment) Aggregated {
	var weightedSum, weightSum float64
	for _, a := range voting {
		weightedSum += directionValue(a.Direction) * a.EffectiveWeight * a.Confidence
		weightSum += a.EffectiveWeight
	}
	value := 0.0
	if weightSum > 0 {
		value = weightedSum / weightSum
	}

	direction := repo.DirectionNeutral
	switch {
	case value > 0.15:
		direction = repo.DirectionBullish
	case value < -0.15:
		direction = repo.DirectionBearish
	}

	var variance float64
	if weightSum > 0 {
		for _, a := range voting {
			d := directionValue(a.Direction)*a.Confidence - value
			variance += a.EffectiveWeight * d * d
		}
		variance /= weightSum
	}
	consensus := 1 - math.Sqrt(variance)
	if consensus < 0 {
		consensus = 0
	}

	confidence := averageConfidence(voting)
	return Aggregated{Direction: direction, Confidence: confidence, ConsensusStrength: consensus}
}

func weightedEnsemble(voting []Assessment) Aggregated {
	majority := weightedMajority(voting)
	average := weightedAverage(voting)

	direction := average.Direction
	if majority.ConsensusStrength > 0.6 {
		direction = majority.Direction
	}

	return Aggregated{
		Direction:         direction,
		Confidence:        (majority.Confidence + average.Confidence) / 2,
		ConsensusStrength: (majority.ConsensusStrength + average.ConsensusStrength) / 2,
	}
}

func argmaxDirection(byDirection map[repo.Direction]float64) (repo.Direction, float64) {
	best := repo.DirectionNeutral
	bestWeight := -1.0
	// Deterministic iteration order over the fixed direction set avoids
	// map-iteration flakiness on ties.
	for _, d := range []repo.Direction{repo.DirectionBullish, repo.DirectionBearish, repo.DirectionNeutral} {
		if w, ok := byDirection[d]; ok && w > bestWeight {
			best = d
			bestWeight = w
		}
	}
	if bestWeight < 0 {
		bestWeight = 0
	}
	return best, bestWeight
}

func averageConfidence(voting []Assessment) float64 {
	if len(voting) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range voting {
		sum += a.Confidence
	}
	return sum / float64(len(voting))
}
