package prediction

import (
	"context"
	"testing"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutcomeHook struct {
	recorded map[string]map[string]interface{}
	expired  []string
}

func (h *fakeOutcomeHook) RecordOutcome(ctx context.Context, predictionID string, outcome map[string]interface{}) error {
	if h.recorded == nil {
		h.recorded = map[string]map[string]interface{}{}
	}
	h.recorded[predictionID] = outcome
	return nil
}

func (h *fakeOutcomeHook) ExpirePastHorizon(ctx context.Context, now interface{}) ([]string, error) {
	return h.expired, nil
}

func TestResolveOutcomeMarksPredictionResolved(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	pred, err := repos.PredictionRepo.Create(context.Background(), repo.Prediction{
		TargetID: "target-1", Status: repo.PredictionActive,
	})
	require.NoError(t, err)

	hook := &fakeOutcomeHook{}
	sweeper := NewResolutionSweeper(repos.PredictionRepo, hook, nil, nil)

	err = sweeper.ResolveOutcome(context.Background(), pred.ID, map[string]interface{}{"actual_move_pct": 3.2})
	require.NoError(t, err)

	found, err := repos.PredictionRepo.FindByTarget(context.Background(), "target-1", nil, repo.PredictionFindOptions{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, repo.PredictionResolved, found[0].Status)
	assert.Equal(t, 3.2, found[0].LLMEnsemble["outcome"].(map[string]interface{})["actual_move_pct"])
	assert.Equal(t, map[string]interface{}{"actual_move_pct": 3.2}, hook.recorded[pred.ID])
}

func TestSweepExpiredTransitionsReturnedIDs(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	a, err := repos.PredictionRepo.Create(context.Background(), repo.Prediction{TargetID: "target-1", Status: repo.PredictionActive})
	require.NoError(t, err)
	b, err := repos.PredictionRepo.Create(context.Background(), repo.Prediction{TargetID: "target-1", Status: repo.PredictionActive})
	require.NoError(t, err)

	hook := &fakeOutcomeHook{expired: []string{a.ID, b.ID}}
	sweeper := NewResolutionSweeper(repos.PredictionRepo, hook, nil, nil)

	n, err := sweeper.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := repos.PredictionRepo.FindByTarget(context.Background(), "target-1", nil, repo.PredictionFindOptions{})
	require.NoError(t, err)
	for _, p := range found {
		assert.Equal(t, repo.PredictionExpiredSt, p.Status)
	}
}

func TestSweepExpiredSkipsUnknownIDsWithoutFailing(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	hook := &fakeOutcomeHook{expired: []string{"does-not-exist"}}
	sweeper := NewResolutionSweeper(repos.PredictionRepo, hook, nil, nil)

	n, err := sweeper.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
