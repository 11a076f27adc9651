package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/redis/go-redis/v9"
)

// RedisSubscriptionRepo backs SourceSubscriptionRepository with Redis,
// exercising go-redis for the one repository whose correctness is
// genuinely cross-process sensitive: a subscription's watermark is read
// and advanced by every ingest worker polling that subscription, so an
// in-memory map (correct only within one process) is not sufficient the
// way it is for the read-mostly analyst/target repositories.
type RedisSubscriptionRepo struct {
	client *redis.Client
}

// NewRedisSubscriptionRepo creates a repo using client.
func NewRedisSubscriptionRepo(client *redis.Client) *RedisSubscriptionRepo {
	return &RedisSubscriptionRepo{client: client}
}

func subscriptionKey(id string) string { return fmt.Sprintf("pipeline:subscription:%s", id) }

func (r *RedisSubscriptionRepo) FindByID(ctx context.Context, id string) (SourceSubscription, error) {
	raw, err := r.client.Get(ctx, subscriptionKey(id)).Result()
	if err == redis.Nil {
		return SourceSubscription{}, fmt.Errorf("subscription %s: %w", id, core.ErrSubscriptionNotFound)
	}
	if err != nil {
		return SourceSubscription{}, fmt.Errorf("get subscription %s: %w", id, err)
	}
	var sub SourceSubscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return SourceSubscription{}, fmt.Errorf("decode subscription %s: %w", id, err)
	}
	return sub, nil
}

// Save upserts a subscription record; used by seed/test setup and by
// UpdateWatermark internally.
func (r *RedisSubscriptionRepo) Save(ctx context.Context, sub SourceSubscription) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	return r.client.Set(ctx, subscriptionKey(sub.ID), body, 0).Err()
}

// UpdateWatermark advances last_processed_at, only ever moving forward
// in time, matching spec.md §8 invariant 4 (watermark monotonicity).
func (r *RedisSubscriptionRepo) UpdateWatermark(ctx context.Context, id string, t time.Time) error {
	sub, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Before(sub.LastProcessedAt) {
		return nil // never move the watermark backward
	}
	sub.LastProcessedAt = t
	return r.Save(ctx, sub)
}

// GetNewArticles always returns an error: this module has no article
// store, and nothing in it turns crawler bridge (repo.CrawlerBridge)
// output into articles; the subscription repo only tracks the
// watermark. A real deployment's persistence layer joins articles
// against this watermark server-side; that join is opaque per spec.md
// §6 and is not re-implemented here.
func (r *RedisSubscriptionRepo) GetNewArticles(ctx context.Context, sub SourceSubscription, limit int) ([]Article, error) {
	return nil, fmt.Errorf("GetNewArticles: backing article store is external to this module (spec.md §6)")
}

var _ SourceSubscriptionRepository = (*RedisSubscriptionRepo)(nil)
