package llm

import (
	"context"
	"fmt"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/resilience"
)

// Dependencies holds the Gateway's constructor-injected collaborators,
// following the pipeline-wide explicit-wiring convention.
type Dependencies struct {
	Providers map[string]Provider // keyed by provider name, e.g. "bedrock", "local"
	Limiter   *UsageLimiter
	Resolver  *TierResolver
	Health    *resilience.HealthRegistry
	Logger    core.Logger
}

// Gateway is the LLM Gateway (C2) entry point the ensemble engine
// (ensemble/engine.go) dispatches every analyst×fork generation call
// through.
type Gateway struct {
	deps   Dependencies
	caller *resilience.RetryingCaller
	logger core.Logger
}

// NewGateway wires a Gateway from deps, defaulting missing collaborators.
func NewGateway(deps Dependencies) *Gateway {
	if deps.Resolver == nil {
		deps.Resolver = NewTierResolver(nil)
	}
	if deps.Health == nil {
		deps.Health = resilience.NewHealthRegistry()
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/llm")
	}
	return &Gateway{
		deps:   deps,
		caller: resilience.NewRetryingCaller("llm-gateway", nil, deps.Health, resilience.Dependencies{Logger: logger}),
		logger: logger,
	}
}

// Generate resolves tier, checks the usage limiter, falls back to the
// local provider on denial, and dispatches through the resilience
// layer. label is the "${operation}:${analyst_slug}:${fork_type}"
// attribution string from spec.md §4.2.
func (g *Gateway) Generate(ctx context.Context, universeID string, tier Tier, overrides Overrides, systemPrompt, userPrompt, label string) (Response, error) {
	mapping := g.deps.Resolver.Resolve(tier, overrides)

	estimated := EstimateTokens(systemPrompt, userPrompt)
	provider := mapping.Provider

	if g.deps.Limiter != nil {
		decision, err := g.deps.Limiter.CanUseTokens(ctx, universeID, estimated, provider)
		if err != nil {
			return Response{}, fmt.Errorf("usage limiter check: %w", err)
		}
		if !decision.Allowed && provider != "local" {
			g.logger.Warn("llm usage limiter denied request, falling back to local provider", map[string]interface{}{
				"universe_id": universeID,
				"provider":    provider,
				"reason":      decision.Reason,
			})
			mapping = ModelMapping{Provider: "local"} // empty model: the local provider's configured default
			provider = "local"
		}
	}

	impl, ok := g.deps.Providers[provider]
	if !ok {
		return Response{}, fmt.Errorf("no provider registered for %q", provider)
	}

	var resp Response
	err := g.caller.Execute(ctx, "generate:"+label, func(ctx context.Context) error {
		var callErr error
		resp, callErr = impl.GenerateResponse(ctx, systemPrompt, userPrompt, &ProviderOptions{Model: mapping.Model})
		return callErr
	})
	if err != nil {
		return Response{}, err
	}
	resp.Provider = provider

	if g.deps.Limiter != nil && provider != "local" {
		if recErr := g.deps.Limiter.RecordUsage(ctx, universeID, label, estimated+EstimateOutputTokens(estimated)); recErr != nil {
			g.logger.Warn("failed to record llm usage", map[string]interface{}{"error": recErr.Error()})
		}
	}

	return resp, nil
}
