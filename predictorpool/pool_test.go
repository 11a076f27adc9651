package predictorpool

import (
	"context"
	"testing"
	"time"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedActivePredictor(t *testing.T, repos *repo.InMemoryRepos, targetID string, direction repo.Direction, strength int, confidence float64, age time.Duration) repo.Predictor {
	t.Helper()
	created, err := repos.PredictorRepo.Create(context.Background(), repo.Predictor{
		TargetID:   targetID,
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Status:     repo.PredictorActive,
		CreatedAt:  time.Now().Add(-age),
		ExpiresAt:  time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return created
}

func TestEvaluateThresholdMeetsWithDefaultConfig(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	pool := NewPool(Dependencies{Predictors: repos.PredictorRepo})

	for i := 0; i < 3; i++ {
		seedActivePredictor(t, repos, "target-1", repo.DirectionBullish, 6, 0.8, time.Hour)
	}

	eval, err := pool.EvaluateThreshold(context.Background(), "target-1", repo.DefaultThresholdConfig())
	require.NoError(t, err)
	assert.True(t, eval.MeetsThreshold)
	assert.Equal(t, repo.DirectionBullish, eval.DominantDirection)
	assert.Equal(t, 3, eval.ActiveCount)
	assert.InDelta(t, 18, eval.CombinedStrength, 0.001)
}

func TestEvaluateThresholdNotMetWithTooFewPredictors(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	pool := NewPool(Dependencies{Predictors: repos.PredictorRepo})
	seedActivePredictor(t, repos, "target-1", repo.DirectionBullish, 10, 0.9, time.Hour)

	eval, err := pool.EvaluateThreshold(context.Background(), "target-1", repo.DefaultThresholdConfig())
	require.NoError(t, err)
	assert.False(t, eval.MeetsThreshold)
}

func TestComputeStatsZeroDecayIsUniformWeighting(t *testing.T) {
	now := time.Now()
	predictors := []repo.Predictor{
		{Direction: repo.DirectionBullish, Strength: 5, Confidence: 0.5, CreatedAt: now.Add(-100 * time.Hour)},
		{Direction: repo.DirectionBearish, Strength: 5, Confidence: 0.5, CreatedAt: now},
	}
	stats := computeStats(predictors, 0, now)
	assert.InDelta(t, 0.5, stats.DirectionConsensus, 0.001) // tied weight -> bullish wins iteration order, 50/50
}

func TestComputeStatsDecayFavorsRecentPredictor(t *testing.T) {
	now := time.Now()
	predictors := []repo.Predictor{
		{Direction: repo.DirectionBullish, Strength: 5, Confidence: 0.5, CreatedAt: now.Add(-1000 * time.Hour)},
		{Direction: repo.DirectionBearish, Strength: 5, Confidence: 0.5, CreatedAt: now},
	}
	stats := computeStats(predictors, 0.05, now)
	assert.Equal(t, repo.DirectionBearish, stats.DominantDirection)
}

func TestConsumePredictorsIsIdempotent(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	pool := NewPool(Dependencies{Predictors: repos.PredictorRepo})
	p := seedActivePredictor(t, repos, "target-1", repo.DirectionBullish, 6, 0.8, time.Hour)

	require.NoError(t, pool.ConsumePredictors(context.Background(), "target-1", "prediction-1"))
	require.NoError(t, pool.ConsumePredictors(context.Background(), "target-1", "prediction-1"))

	all, err := repos.PredictorRepo.FindByIDs(context.Background(), []string{p.ID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, repo.PredictorConsumed, all[0].Status)
	assert.Equal(t, "prediction-1", all[0].ConsumedByPredictionID)
}

func TestWouldMeetThresholdDoesNotMutatePool(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	pool := NewPool(Dependencies{Predictors: repos.PredictorRepo})
	seedActivePredictor(t, repos, "target-1", repo.DirectionBullish, 6, 0.8, time.Hour)
	seedActivePredictor(t, repos, "target-1", repo.DirectionBullish, 6, 0.8, time.Hour)

	would, err := pool.WouldMeetThreshold(context.Background(), "target-1", 6, repo.DirectionBullish, repo.DefaultThresholdConfig())
	require.NoError(t, err)
	assert.True(t, would)

	active, err := pool.GetActivePredictors(context.Background(), "target-1")
	require.NoError(t, err)
	assert.Len(t, active, 2) // hypothetical predictor was never persisted
}
