package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAssemblesFieldsVerbatim(t *testing.T) {
	now := time.Now()
	snap := Build(BuildInput{
		PredictionID: "pred-1",
		Predictors: []repo.Predictor{
			{ID: "p1", Reasoning: "strong earnings", Direction: repo.DirectionBullish, Strength: 7, Confidence: 0.8, AnalystSlug: "macro", CreatedAt: now},
		},
		RejectedSignals: []repo.Signal{
			{TargetID: "target-1", SourceID: "src-1", Content: "noise", Rejected: true},
		},
		LLMEnsemble: repo.LLMEnsembleSummary{
			TiersUsed:      []string{"bronze", "gold"},
			TierResults:    map[string]repo.TierResult{"gold": {Direction: repo.DirectionBullish, Confidence: 0.9, Model: "claude", Provider: "bedrock"}},
			AgreementLevel: 0.75,
		},
		LearningsApplied:    []string{"prior miss: overweighted momentum"},
		ThresholdEvaluation: repo.ThresholdEvaluation{MeetsThreshold: true, ActiveCount: 3},
		Timeline: []repo.TimelineEvent{
			{Timestamp: now, EventType: "threshold_met", Details: map[string]interface{}{"active_predictors": 3}},
		},
	}, now)

	assert.Equal(t, "pred-1", snap.PredictionID)
	require.Len(t, snap.Predictors, 1)
	assert.Equal(t, "strong earnings", snap.Predictors[0].Content)
	assert.True(t, snap.ThresholdEvaluation.MeetsThreshold)
	assert.Equal(t, now, snap.CreatedAt)

	require.Len(t, snap.RejectedSignals, 1)
	assert.True(t, snap.RejectedSignals[0].Rejected)
	assert.Equal(t, []string{"bronze", "gold"}, snap.LLMEnsemble.TiersUsed)
	assert.Equal(t, "bedrock", snap.LLMEnsemble.TierResults["gold"].Provider)
	assert.Equal(t, 0.75, snap.LLMEnsemble.AgreementLevel)
	assert.Equal(t, []string{"prior miss: overweighted momentum"}, snap.LearningsApplied)
	require.Len(t, snap.Timeline, 1)
	assert.Equal(t, "threshold_met", snap.Timeline[0].EventType)
}

func TestWritePersistsThroughRepository(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	w := NewWriter(repos.SnapshotRepo)

	_, err := w.Write(context.Background(), BuildInput{PredictionID: "pred-1"}, time.Now())
	require.NoError(t, err)

	all := repos.SnapshotRepo.All()
	require.Len(t, all, 1)
	assert.Equal(t, "pred-1", all[0].PredictionID)
}
