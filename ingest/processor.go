// Package ingest implements the Signal Ingestor — Tier 1 (C5):
// per-article fetch, filter, relevance, single-fork ensemble, and
// predictor emission, per spec.md §4.5.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/ensemble"
	"github.com/GolferGeek/predictor-pipeline/repo"
)

const defaultArticleLimit = 50

// ProcessSummary is processSubscription/processTarget's return value
// (spec.md §4.5).
type ProcessSummary struct {
	SubscriptionID    string // "all" for a target-centric run spanning subscriptions
	TargetID          string
	ArticlesProcessed int
	PredictorsCreated int
	Errors            []string
}

// Dependencies wires the Processor's collaborators.
type Dependencies struct {
	Subscriptions repo.SourceSubscriptionRepository
	Targets       repo.TargetRepository
	Signals       repo.SignalRepository
	Predictors    repo.PredictorRepository
	Ensemble      *ensemble.Engine
	MinConfidence float64
	MinConsensus  float64
	Clock         core.Clock
	Logger        core.Logger
}

// Processor is the Signal Ingestor (C5) entry point.
type Processor struct {
	deps Dependencies
	log  core.Logger
}

// NewProcessor wires a Processor from deps, defaulting the threshold
// gate to spec.md §4.5's {0.5, 0.5} default.
func NewProcessor(deps Dependencies) *Processor {
	if deps.MinConfidence <= 0 {
		deps.MinConfidence = 0.5
	}
	if deps.MinConsensus <= 0 {
		deps.MinConsensus = 0.5
	}
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/ingest")
	}
	return &Processor{deps: deps, log: logger}
}

// ProcessSubscription fetches new articles for subscriptionID since
// its watermark, processes each against every target it resolves to,
// and advances the watermark to the max first_seen_at observed
// (spec.md §4.5).
func (p *Processor) ProcessSubscription(ctx context.Context, subscriptionID string, limit int) (ProcessSummary, error) {
	if limit <= 0 {
		limit = defaultArticleLimit
	}

	sub, err := p.deps.Subscriptions.FindByID(ctx, subscriptionID)
	if err != nil {
		return ProcessSummary{}, fmt.Errorf("find subscription %s: %w", subscriptionID, err)
	}

	articles, err := p.deps.Subscriptions.GetNewArticles(ctx, sub, limit)
	if err != nil {
		return ProcessSummary{}, fmt.Errorf("get new articles for subscription %s: %w", subscriptionID, err)
	}
	sortByFirstSeen(articles)

	summary := ProcessSummary{SubscriptionID: subscriptionID}
	var maxSeen time.Time
	anyProcessed := false

	for _, article := range articles {
		if !passesKeywordFilter(article.Title, article.Body(), sub.KeywordsInclude, sub.KeywordsExclude) {
			continue
		}
		for _, targetID := range sub.TargetIDs {
			created, err := p.processArticleForTarget(ctx, article, targetID)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("target %s article %s: %v", targetID, article.ID, err))
				continue
			}
			if created {
				summary.PredictorsCreated++
			}
		}
		summary.ArticlesProcessed++
		anyProcessed = true
		if article.FirstSeenAt.After(maxSeen) {
			maxSeen = article.FirstSeenAt
		}
	}

	if anyProcessed {
		if err := p.deps.Subscriptions.UpdateWatermark(ctx, subscriptionID, maxSeen); err != nil {
			return summary, fmt.Errorf("advance watermark for subscription %s: %w", subscriptionID, err)
		}
	}

	return summary, nil
}

// ProcessTarget runs ProcessSubscription for each of subscriptionIDs,
// advancing each subscription's watermark independently to its own
// max first_seen_at (spec.md §4.5 step 4). The caller chooses the
// subscriptions: they are not looked up from or checked against
// targetID, and each one is processed against all of its own targets,
// not only targetID; targetID only labels the returned summary.
func (p *Processor) ProcessTarget(ctx context.Context, targetID string, subscriptionIDs []string, limit int) (ProcessSummary, error) {
	overall := ProcessSummary{SubscriptionID: "all", TargetID: targetID}

	for _, subID := range subscriptionIDs {
		perSub, err := p.ProcessSubscription(ctx, subID, limit)
		if err != nil {
			overall.Errors = append(overall.Errors, fmt.Sprintf("subscription %s: %v", subID, err))
			continue
		}
		overall.ArticlesProcessed += perSub.ArticlesProcessed
		overall.PredictorsCreated += perSub.PredictorsCreated
		overall.Errors = append(overall.Errors, perSub.Errors...)
	}

	return overall, nil
}

// processArticleForTarget implements spec.md §4.5 step 3 for one
// (article, target) pair, returning whether a predictor was created.
func (p *Processor) processArticleForTarget(ctx context.Context, article repo.Article, targetID string) (bool, error) {
	target, err := p.deps.Targets.FindByIDOrThrow(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("find target: %w", err)
	}

	// Test/production isolation invariant (spec.md §4.5 step 3a).
	if target.IsTest() != article.IsTest {
		return false, nil
	}

	if !isRelevant(article.Title, article.Body(), target.Symbol, target.Name) {
		return false, nil
	}

	signal := repo.Signal{
		TargetID:   targetID,
		SourceID:   article.SourceID,
		URL:        article.URL,
		Content:    article.Body(),
		DetectedAt: article.FirstSeenAt,
		IsTest:     article.IsTest,
	}

	result, err := p.deps.Ensemble.RunEnsemble(ctx, targetID, ensemble.EnsembleInput{
		TargetID: targetID,
		Content:  article.Body(),
	}, ensemble.Options{Fork: repo.ForkUser})
	if err != nil {
		p.log.Warn("ensemble failed for article, downgrading to neutral", map[string]interface{}{
			"target_id": targetID,
			"article":   article.ID,
			"error":     err.Error(),
		})
		signal.Direction = repo.DirectionNeutral
		signal.Rejected = true
		if sigErr := p.deps.Signals.Create(ctx, signal); sigErr != nil {
			return false, fmt.Errorf("record signal: %w", sigErr)
		}
		return false, nil
	}

	signal.Direction = result.Aggregated.Direction
	passesGate := result.Aggregated.Confidence >= p.deps.MinConfidence && result.Aggregated.ConsensusStrength >= p.deps.MinConsensus
	signal.Rejected = !passesGate

	if err := p.deps.Signals.Create(ctx, signal); err != nil {
		return false, fmt.Errorf("record signal: %w", err)
	}

	if !passesGate {
		return false, nil
	}

	strength := int(result.Aggregated.ConsensusStrength * 10)
	if strength < 1 {
		strength = 1
	}

	now := p.deps.Clock.Now()
	_, err = p.deps.Predictors.Create(ctx, repo.Predictor{
		TargetID:   targetID,
		ArticleID:  article.ID,
		Direction:  result.Aggregated.Direction,
		Strength:   strength,
		Confidence: result.Aggregated.Confidence,
		Reasoning:  result.Aggregated.Reasoning,
		Status:     repo.PredictorActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(repo.DefaultThresholdConfig().PredictorTTLHours) * time.Hour),
	})
	if err != nil {
		return false, fmt.Errorf("create predictor: %w", err)
	}
	return true, nil
}

func sortByFirstSeen(articles []repo.Article) {
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].FirstSeenAt.Before(articles[j].FirstSeenAt)
	})
}
