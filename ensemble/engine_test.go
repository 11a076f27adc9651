package ensemble

import (
	"context"
	"testing"

	"github.com/GolferGeek/predictor-pipeline/analyst"
	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/llm"
	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectionalProvider struct {
	content string
}

func (p fakeDirectionalProvider) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, options *llm.ProviderOptions) (llm.Response, error) {
	return llm.Response{Content: p.content, Model: "fake"}, nil
}

func setupEngine(t *testing.T, content string) (*Engine, *repo.InMemoryRepos, repo.Analyst) {
	t.Helper()
	repos := repo.NewInMemoryRepos()
	reg := analyst.NewRegistry(repos.AnalystRepo)

	a := repos.AnalystRepo.Seed(repo.Analyst{Slug: "macro", Weight: 1, Tier: "gold"})
	_, err := reg.CreateContextVersion(context.Background(), repo.AnalystContextVersion{
		AnalystID: a.ID, ForkType: repo.ForkUser, Perspective: "macro view", VersionNumber: 1,
	})
	require.NoError(t, err)

	gw := llm.NewGateway(llm.Dependencies{
		Providers: map[string]llm.Provider{
			"local": fakeDirectionalProvider{content: content},
		},
		Limiter: llm.NewUsageLimiter(core.NewInMemoryStore(), 0, 0),
	})

	engine := NewEngine(Dependencies{
		Analysts:   reg,
		Gateway:    gw,
		UniverseID: "universe-1",
	})
	return engine, repos, a
}

func TestRunEnsembleSingleFokDefaultsToUser(t *testing.T) {
	engine, _, _ := setupEngine(t, `{"direction":"bullish","confidence":0.8,"reasoning":"strong"}`)
	result, err := engine.RunEnsemble(context.Background(), "target-1", EnsembleInput{TargetID: "target-1", Content: "news"}, Options{})
	require.NoError(t, err)
	require.Len(t, result.Assessments, 1)
	assert.Equal(t, repo.ForkUser, result.Assessments[0].ForkType)
	assert.Equal(t, repo.DirectionBullish, result.Aggregated.Direction)
}

func TestRunEnsembleNoActiveAnalystsReturnsNeutral(t *testing.T) {
	repos := repo.NewInMemoryRepos()
	reg := analyst.NewRegistry(repos.AnalystRepo)
	gw := llm.NewGateway(llm.Dependencies{Providers: map[string]llm.Provider{"local": fakeDirectionalProvider{}}})
	engine := NewEngine(Dependencies{Analysts: reg, Gateway: gw})

	result, err := engine.RunEnsemble(context.Background(), "target-1", EnsembleInput{TargetID: "target-1"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Assessments)
	assert.Equal(t, repo.DirectionNeutral, result.Aggregated.Direction)
}

func TestAssessOneSuspendedAnalystIsPaperOnlyOnAiFork(t *testing.T) {
	engine, repos, a := setupEngine(t, `{"direction":"bullish","confidence":0.9,"reasoning":"r"}`)
	a.PerformanceStatus = "suspended"
	repos.AnalystRepo.Seed(a)

	assessment, err := engine.assessOne(context.Background(), a, repo.ForkAI, EnsembleInput{TargetID: "target-1"})
	require.NoError(t, err)
	assert.True(t, assessment.IsPaperOnly)
}
