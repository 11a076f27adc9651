package llm

import (
	"context"
	"fmt"
)

// LocalProvider is the usage-limiter fallback target and bronze-tier
// default. spec.md §1 abstracts "concrete LLM provider SDKs" behind a
// single capability and a real local-model runtime is out of scope, so
// this is a deterministic stub returning syntactically valid ensemble
// JSON — enough to keep the pipeline's parse/aggregation path exercised
// even when every paid tier is unavailable.
type LocalProvider struct {
	DefaultModel string
}

// NewLocalProvider creates a provider defaulting to model when callers
// don't specify one.
func NewLocalProvider(model string) *LocalProvider {
	if model == "" {
		model = "local-default"
	}
	return &LocalProvider{DefaultModel: model}
}

func (p *LocalProvider) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, options *ProviderOptions) (Response, error) {
	model := p.DefaultModel
	if options != nil && options.Model != "" {
		model = options.Model
	}

	content := fmt.Sprintf(`{"direction":"neutral","confidence":0.5,"reasoning":"local fallback: no external model call was made"}`)
	promptTokens := EstimateTokens(systemPrompt, userPrompt)

	return Response{
		Content: content,
		Model:   model,
		Usage: TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: EstimateOutputTokens(promptTokens),
			TotalTokens:      promptTokens + EstimateOutputTokens(promptTokens),
		},
	}, nil
}

var _ Provider = (*LocalProvider)(nil)
