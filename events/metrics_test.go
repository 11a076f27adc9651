package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProviderRecordsWithoutError(t *testing.T) {
	provider, err := NewMetricsProvider("predictor-pipeline-test")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	assert.NotPanics(t, func() {
		provider.Counter("predictions.created", "target_symbol", "AAPL")
		provider.Gauge("predictor_pool.active", 3, "target_symbol", "AAPL")
		provider.Histogram("llm.latency_ms", 123.4, "provider", "bedrock")
		provider.EmitWithContext(context.Background(), "ingest.articles_processed", 1)
	})
}

func TestCardinalityLimiterCollapsesOverflowToOther(t *testing.T) {
	limiter := newCardinalityLimiter(map[string]int{"target_symbol": 2})
	defer limiter.Stop()

	assert.Equal(t, "AAPL", limiter.checkAndLimit("m", "target_symbol", "AAPL"))
	assert.Equal(t, "MSFT", limiter.checkAndLimit("m", "target_symbol", "MSFT"))
	assert.Equal(t, "other", limiter.checkAndLimit("m", "target_symbol", "TSLA"))
	// Previously-seen values stay themselves even after the limit is hit.
	assert.Equal(t, "AAPL", limiter.checkAndLimit("m", "target_symbol", "AAPL"))
}
