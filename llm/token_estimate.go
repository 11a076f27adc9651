package llm

import "math"

// EstimateTokens implements spec.md §4.2's estimator:
// ceil((len(systemPrompt)+len(userPrompt))/4).
func EstimateTokens(systemPrompt, userPrompt string) int {
	return int(math.Ceil(float64(len(systemPrompt)+len(userPrompt)) / 4.0))
}

// EstimateOutputTokens assumes output is 50% of input, per spec.md §4.2
// "output tokens assumed 50% of input for accounting".
func EstimateOutputTokens(inputTokens int) int {
	return int(math.Ceil(float64(inputTokens) * 0.5))
}
