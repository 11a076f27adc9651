package llm

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
)

// UsageDecision is the result of a canUseTokens check.
type UsageDecision struct {
	Allowed bool
	Reason  string
}

// UsageLimiter implements spec.md §4.2's canUseTokens contract: a
// per-universe token counter checked against a budget. Every
// RecordUsage rewrites the counter with a TTL of window, so the counter
// resets only once window passes with no recorded usage; it is not a
// rolling window, and a store that ignores TTLs (core.InMemoryStore)
// never resets it. Denial never fails
// the caller — the gateway (see gateway.go) silently swaps to the
// local provider instead, per spec.md "the gateway MUST silently fall
// back to a local provider ... rather than fail".
type UsageLimiter struct {
	store       core.Memory
	dailyBudget int
	window      time.Duration

	mu sync.Mutex
}

// NewUsageLimiter creates a limiter backed by store (Redis in
// production, core.InMemoryStore in tests) with dailyBudget tokens per
// universe over window (defaults to 24h).
func NewUsageLimiter(store core.Memory, dailyBudget int, window time.Duration) *UsageLimiter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &UsageLimiter{store: store, dailyBudget: dailyBudget, window: window}
}

func usageKey(universeID string) string {
	return fmt.Sprintf("pipeline:llm:usage:%s", universeID)
}

// CanUseTokens reports whether universeID may spend estimatedTokens
// against provider. Local-provider calls are always allowed and are
// excluded from accounting (spec.md §4.2).
func (l *UsageLimiter) CanUseTokens(ctx context.Context, universeID string, estimatedTokens int, provider string) (UsageDecision, error) {
	if provider == "local" {
		return UsageDecision{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	used, err := l.currentUsage(ctx, universeID)
	if err != nil {
		return UsageDecision{}, err
	}

	if used+estimatedTokens > l.dailyBudget {
		return UsageDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("universe %s would exceed token budget (%d+%d > %d)", universeID, used, estimatedTokens, l.dailyBudget),
		}, nil
	}
	return UsageDecision{Allowed: true}, nil
}

// RecordUsage accounts tokens against universeID under label
// "${operation}:${analyst_slug}:${fork_type}" (spec.md §4.2). Callers
// must not record usage for local-provider calls.
func (l *UsageLimiter) RecordUsage(ctx context.Context, universeID, label string, tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	used, err := l.currentUsage(ctx, universeID)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, usageKey(universeID), strconv.Itoa(used+tokens), l.window)
}

func (l *UsageLimiter) currentUsage(ctx context.Context, universeID string) (int, error) {
	raw, err := l.store.Get(ctx, usageKey(universeID))
	if err != nil {
		return 0, fmt.Errorf("read usage for universe %s: %w", universeID, err)
	}
	if raw == "" {
		return 0, nil
	}
	used, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil // corrupt counter; treat as reset rather than fail the caller
	}
	return used, nil
}
