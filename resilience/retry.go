// Package resilience implements the bounded-retry and per-service health
// tracking layer (C1) that the pipeline's outbound calls — LLM gateway,
// crawler bridge, webhook observability sink — are wrapped in.
package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures a single executeWithRetry call. Field names and
// defaults follow the external-interfaces configuration table: maxRetries,
// initialDelayMs, maxDelayMs, backoffMultiplier, timeoutMs.
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// Timeout bounds each individual attempt; a timed-out attempt counts
	// as a failure toward both the retry budget and the health tally.
	Timeout time.Duration
}

// DefaultRetryConfig matches the design's documented defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		Timeout:           30 * time.Second,
	}
}

// Retry executes fn up to config.MaxRetries+1 times, applying exponential
// backoff with jitter between attempts:
//
//	delay_i = min(initialDelay * multiplier^i + uniform(0, 0.2*that), maxDelay)
//
// Each attempt runs under its own context deadline derived from
// config.Timeout. Retry retries every non-nil error up to the attempt
// budget; it does not tell retriable errors from non-retriable ones (the
// LLM gateway, for example, handles quota denial before it calls Retry).
// Once the attempts are exhausted, the last error is returned unchanged.
func Retry(ctx context.Context, config *RetryConfig, tracker *ServiceHealthTracker, fn func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if tracker != nil {
			if err != nil {
				tracker.RecordFailure()
			} else {
				tracker.RecordSuccess()
			}
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		delay := computeBackoff(config, attempt+1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// computeBackoff returns the delay before the i-th retry attempt (1-indexed),
// exponential in i with up to 20% uniform jitter added, capped at MaxDelay.
func computeBackoff(config *RetryConfig, i int) time.Duration {
	base := float64(config.InitialDelay)
	for n := 1; n < i; n++ {
		base *= config.BackoffMultiplier
	}
	jitter := rand.Float64() * 0.2 * base
	delay := time.Duration(base + jitter)
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if delay < config.InitialDelay {
		delay = config.InitialDelay
	}
	return delay
}
