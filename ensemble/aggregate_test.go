package ensemble

import (
	"testing"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
)

func TestAggregateWeightedMajorityPicksHeaviestDirection(t *testing.T) {
	rows := []Assessment{
		{Direction: repo.DirectionBullish, Confidence: 0.8, EffectiveWeight: 0.6},
		{Direction: repo.DirectionBullish, Confidence: 0.6, EffectiveWeight: 0.2},
		{Direction: repo.DirectionBearish, Confidence: 0.9, EffectiveWeight: 0.2},
	}
	result := Aggregate(AggregationWeightedMajority, rows)
	assert.Equal(t, repo.DirectionBullish, result.Direction)
	assert.InDelta(t, 0.8, result.ConsensusStrength, 0.001)
	assert.InDelta(t, 0.7, result.Confidence, 0.001)
}

func TestAggregateWeightedAverageBucketsNearZeroAsNeutral(t *testing.T) {
	rows := []Assessment{
		{Direction: repo.DirectionBullish, Confidence: 0.5, EffectiveWeight: 1},
		{Direction: repo.DirectionBearish, Confidence: 0.5, EffectiveWeight: 1},
	}
	result := Aggregate(AggregationWeightedAverage, rows)
	assert.Equal(t, repo.DirectionNeutral, result.Direction)
}

func TestAggregatePaperOnlyAssessmentsExcluded(t *testing.T) {
	rows := []Assessment{
		{Direction: repo.DirectionBullish, Confidence: 0.9, EffectiveWeight: 1, IsPaperOnly: true},
		{Direction: repo.DirectionBearish, Confidence: 0.9, EffectiveWeight: 1},
	}
	result := Aggregate(AggregationWeightedMajority, rows)
	assert.Equal(t, repo.DirectionBearish, result.Direction)
}

func TestAggregateWeightedEnsembleUsesMajorityWhenStrong(t *testing.T) {
	rows := []Assessment{
		{Direction: repo.DirectionBullish, Confidence: 0.8, EffectiveWeight: 0.9},
		{Direction: repo.DirectionBearish, Confidence: 0.8, EffectiveWeight: 0.1},
	}
	result := Aggregate(AggregationWeightedEnsemble, rows)
	assert.Equal(t, repo.DirectionBullish, result.Direction)
}
