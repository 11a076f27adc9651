package repo

import (
	"context"
	"time"
)

// TargetRepository resolves targets (spec.md §6).
type TargetRepository interface {
	FindByIDOrThrow(ctx context.Context, id string) (Target, error)
	FindAllActive(ctx context.Context) ([]Target, error)
	FindBySymbol(ctx context.Context, org, symbol string) (Target, error)
	FindActiveByUniverse(ctx context.Context, universeID string) ([]Target, error)
}

// PredictorRepository manages Tier-2 predictor rows.
type PredictorRepository interface {
	Create(ctx context.Context, p Predictor) (Predictor, error)
	FindActiveByTarget(ctx context.Context, targetID string) ([]Predictor, error)
	ExpireOldPredictors(ctx context.Context, targetID string) (int, error)
	// ConsumePredictor must be idempotent: consuming an already-consumed
	// predictor with the same predictionID succeeds without error.
	ConsumePredictor(ctx context.Context, id, predictionID string) error
	FindByIDs(ctx context.Context, ids []string) ([]Predictor, error)
	CreateTestCopy(ctx context.Context, p Predictor, scenarioID string) (Predictor, error)
}

// PredictionFindOptions narrows PredictionRepository.FindByTarget.
type PredictionFindOptions struct {
	IncludeTestData bool
	TestScenarioID  string
	TestDataOnly    bool
}

// PredictionRepository manages Tier-3 prediction rows.
type PredictionRepository interface {
	Create(ctx context.Context, p Prediction) (Prediction, error)
	Update(ctx context.Context, id string, patch func(*Prediction)) (Prediction, error)
	UpdateAnalystEnsemble(ctx context.Context, id string, ensemble AnalystEnsemble) error
	FindByTarget(ctx context.Context, targetID string, status *PredictionStatus, opts PredictionFindOptions) ([]Prediction, error)
}

// SignalRepository stores append-only signals.
type SignalRepository interface {
	Create(ctx context.Context, s Signal) error
	FindByTarget(ctx context.Context, targetID string) ([]Signal, error)
}

// SourceSubscriptionRepository manages per-subscription ingestion state.
type SourceSubscriptionRepository interface {
	FindByID(ctx context.Context, id string) (SourceSubscription, error)
	UpdateWatermark(ctx context.Context, id string, t time.Time) error
	GetNewArticles(ctx context.Context, sub SourceSubscription, limit int) ([]Article, error)
}

// SnapshotRepository writes the immutable per-prediction audit record.
type SnapshotRepository interface {
	Create(ctx context.Context, snap PredictionSnapshot) error
}

// AnalystRepository resolves analysts and their fork-scoped context versions.
type AnalystRepository interface {
	GetActiveAnalysts(ctx context.Context, targetID string) ([]Analyst, error)
	GetCurrentContextVersion(ctx context.Context, analystID string, fork ForkType) (AnalystContextVersion, bool, error)
	GetAllCurrentContextVersions(ctx context.Context, fork ForkType) (map[string]AnalystContextVersion, error)
	CreateContextVersion(ctx context.Context, v AnalystContextVersion) (AnalystContextVersion, error)
}

// TargetSnapshotRepository returns the latest price record for a target.
// spec.md §9 Open Question 3: the backing price feed is out of scope;
// Latest returning (TargetSnapshot{}, false, nil) is a valid "unavailable" response.
type TargetSnapshotRepository interface {
	Latest(ctx context.Context, targetID string) (TargetSnapshot, bool, error)
}

// CrawlerBridge fetches article content from a URL (spec.md §6).
type CrawlerBridge interface {
	Scrape(ctx context.Context, url string, options map[string]interface{}) (ScrapeResult, error)
}

// ScrapeResult is the crawler bridge's response.
type ScrapeResult struct {
	Success bool
	Markdown string
	HTML     string
	Metadata map[string]interface{}
	Error    string
}

// PriceRouter serves latest prices, including the test-mirror path for
// T_-prefixed symbols (spec.md §6).
type PriceRouter interface {
	GetLatestPrice(ctx context.Context, symbol, org string) (float64, bool, error)
}

// OutcomeHook is C10: external outcome capture that drives the
// active→resolved and active→expired prediction transitions spec.md
// §4.7 attributes to collaborators outside the core.
type OutcomeHook interface {
	RecordOutcome(ctx context.Context, predictionID string, outcome map[string]interface{}) error
	ExpirePastHorizon(ctx context.Context, now interface{}) ([]string, error)
}

// PositionCreator requests position creation for a non-flat analyst
// direction (spec.md §4.7 step 9). The generator does not call it when
// no entry price is available; the bool return reports whether a
// position was created.
type PositionCreator interface {
	CreatePosition(ctx context.Context, req PositionRequest) (bool, error)
}

// PositionRequest is the payload for a single position-creation attempt.
type PositionRequest struct {
	TargetID            string
	PredictionID         string
	AnalystSlug          string
	ForkType             ForkType
	Direction            PredictionDirection
	RecommendedQuantity  float64
	EntryPrice           float64
	HasEntryPrice        bool
}
