package llm

import (
	"context"
	"testing"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokensMatchesFormula(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens("", "abc"))  // ceil(3/4) = 1
	assert.Equal(t, 3, EstimateTokens("1234", "12345")) // ceil(9/4) = 3
	assert.Equal(t, 0, EstimateTokens("", ""))
}

func TestEstimateOutputTokensIsHalfOfInput(t *testing.T) {
	assert.Equal(t, 5, EstimateOutputTokens(10))
	assert.Equal(t, 2, EstimateOutputTokens(3)) // ceil(1.5) = 2
}

func TestTierResolverPrecedenceTargetBeatsUniverseBeatsAgentBeatsDefault(t *testing.T) {
	resolver := NewTierResolver(nil)

	// No overrides: falls back to default.
	assert.Equal(t, DefaultTierMap[TierGold], resolver.Resolve(TierGold, Overrides{}))

	agent := &Config{TierMap: map[Tier]ModelMapping{TierGold: {Provider: "bedrock", Model: "agent-model"}}}
	universe := &Config{TierMap: map[Tier]ModelMapping{TierGold: {Provider: "bedrock", Model: "universe-model"}}}
	target := &Config{TierMap: map[Tier]ModelMapping{TierGold: {Provider: "bedrock", Model: "target-model"}}}

	assert.Equal(t, ModelMapping{Provider: "bedrock", Model: "agent-model"}, resolver.Resolve(TierGold, Overrides{Agent: agent}))
	assert.Equal(t, ModelMapping{Provider: "bedrock", Model: "universe-model"}, resolver.Resolve(TierGold, Overrides{Agent: agent, Universe: universe}))
	assert.Equal(t, ModelMapping{Provider: "bedrock", Model: "target-model"}, resolver.Resolve(TierGold, Overrides{Agent: agent, Universe: universe, Target: target}))
}

func TestUsageLimiterAllowsLocalProviderUnconditionally(t *testing.T) {
	limiter := NewUsageLimiter(core.NewInMemoryStore(), 10, time.Hour)
	decision, err := limiter.CanUseTokens(context.Background(), "universe-1", 1_000_000, "local")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestUsageLimiterDeniesOverBudgetNonLocalProvider(t *testing.T) {
	limiter := NewUsageLimiter(core.NewInMemoryStore(), 100, time.Hour)

	decision, err := limiter.CanUseTokens(context.Background(), "universe-1", 50, "bedrock")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.NoError(t, limiter.RecordUsage(context.Background(), "universe-1", "op:analyst:fork", 50))

	decision, err = limiter.CanUseTokens(context.Background(), "universe-1", 60, "bedrock")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.Reason)
}

func TestGatewayFallsBackToLocalProviderOnQuotaDenial(t *testing.T) {
	limiter := NewUsageLimiter(core.NewInMemoryStore(), 1, time.Hour) // any real call exceeds this
	gw := NewGateway(Dependencies{
		Providers: map[string]Provider{
			"bedrock": fakeDenyingProvider{},
			"local":   NewLocalProvider(""),
		},
		Limiter: limiter,
	})

	resp, err := gw.Generate(context.Background(), "universe-1", TierGold, Overrides{}, "system prompt long enough to exceed budget", "user prompt", "op:analyst:user")
	require.NoError(t, err)
	assert.Equal(t, "local-default", resp.Model)
}

type fakeDenyingProvider struct{}

func (fakeDenyingProvider) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, options *ProviderOptions) (Response, error) {
	panic("should never be called once the limiter denies and the gateway falls back to local")
}
