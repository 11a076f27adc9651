// Package llm implements the LLM Gateway (C2): tier resolution, prompt
// dispatch, usage accounting, and warning emission, per spec.md §4.2.
package llm

import "context"

// Tier is the quality/cost class mapping to a (provider, model) pair.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// ModelMapping is the (provider, model) pair a tier resolves to.
type ModelMapping struct {
	Provider string
	Model    string
}

// Config carries the three override levels the tier resolver consults
// before falling back to the built-in default (spec.md §4.2 precedence:
// target → universe → agent → default). A nil TierMap on any level
// means "no override at this level".
type Config struct {
	TierMap map[Tier]ModelMapping
}

// Overrides bundles the per-call override levels, most specific first.
type Overrides struct {
	Target   *Config
	Universe *Config
	Agent    *Config
}

// Provider is the capability the gateway dispatches generation calls
// through; concrete SDKs (Bedrock, the local fallback) need only
// implement this one interface. It is separate from core.AIClient and
// uses this package's ProviderOptions and Response types.
type Provider interface {
	GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, options *ProviderOptions) (Response, error)
}

// ProviderOptions configures a single generation call.
type ProviderOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is the normalized result of a generation call.
type Response struct {
	Content  string
	Model    string
	Provider string
	Usage    TokenUsage
}

// TokenUsage reports token accounting for a single generation call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
