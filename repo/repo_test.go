package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPredictorRepoConsumeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepos()

	p, err := repo.PredictorRepo.Create(ctx, Predictor{TargetID: "t1", Status: PredictorActive})
	require.NoError(t, err)

	require.NoError(t, repo.PredictorRepo.ConsumePredictor(ctx, p.ID, "pred-1"))
	require.NoError(t, repo.PredictorRepo.ConsumePredictor(ctx, p.ID, "pred-1"))

	all, err := repo.PredictorRepo.FindByIDs(ctx, []string{p.ID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, PredictorConsumed, all[0].Status)
	assert.Equal(t, "pred-1", all[0].ConsumedByPredictionID)
}

func TestInMemoryAnalystRepoCreateContextVersionSupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepos()

	v1, err := repo.AnalystRepo.CreateContextVersion(ctx, AnalystContextVersion{AnalystID: "a1", ForkType: ForkUser, VersionNumber: 1})
	require.NoError(t, err)
	assert.True(t, v1.IsCurrent)

	v2, err := repo.AnalystRepo.CreateContextVersion(ctx, AnalystContextVersion{AnalystID: "a1", ForkType: ForkUser, VersionNumber: 2})
	require.NoError(t, err)
	assert.True(t, v2.IsCurrent)

	current, ok, err := repo.AnalystRepo.GetCurrentContextVersion(ctx, "a1", ForkUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, current.VersionNumber)
}

func TestInMemoryLockSerializesPerTarget(t *testing.T) {
	lock := NewInMemoryLock()
	unlockA, err := lock.Lock(context.Background(), "AAPL")
	require.NoError(t, err)
	defer unlockA()

	// A different target must not block on AAPL's lock.
	unlockB, err := lock.Lock(context.Background(), "MSFT")
	require.NoError(t, err)
	unlockB()
}

func TestTargetIsTestDetectsPrefix(t *testing.T) {
	assert.True(t, Target{Symbol: "T_AAPL"}.IsTest())
	assert.False(t, Target{Symbol: "AAPL"}.IsTest())
}
