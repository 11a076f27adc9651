// Package repo defines the data model and repository interfaces the
// pipeline talks to. Storage is an opaque, key/range-scannable store
// (spec.md §6): this package declares contracts plus in-memory
// implementations of them, and Redis-backed implementations of three
// cross-process pieces: subscription watermarks (RedisSubscriptionRepo),
// the per-target single-flight lock (RedisLock) and core.Memory
// (RedisMemory). Predictor storage has no Redis implementation here.
package repo

import "time"

// Direction is the raw ensemble/signal/predictor direction enum.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// PredictionDirection is the Tier-3 prediction direction enum.
type PredictionDirection string

const (
	PredictionUp   PredictionDirection = "up"
	PredictionDown PredictionDirection = "down"
	PredictionFlat PredictionDirection = "flat"
)

// Magnitude buckets a prediction's expected move size.
type Magnitude string

const (
	MagnitudeSmall  Magnitude = "small"
	MagnitudeMedium Magnitude = "medium"
	MagnitudeLarge  Magnitude = "large"
)

// ForkType selects which context version and learnings policy an
// ensemble run uses.
type ForkType string

const (
	ForkUser       ForkType = "user"
	ForkAI         ForkType = "ai"
	ForkArbitrator ForkType = "arbitrator"
)

// PredictorStatus is the Tier-2 lifecycle state.
type PredictorStatus string

const (
	PredictorActive   PredictorStatus = "active"
	PredictorConsumed PredictorStatus = "consumed"
	PredictorExpired  PredictorStatus = "expired"
)

// PredictionStatus is the Tier-3 lifecycle state.
type PredictionStatus string

const (
	PredictionActive    PredictionStatus = "active"
	PredictionResolved  PredictionStatus = "resolved"
	PredictionExpiredSt PredictionStatus = "expired"
	PredictionCancelled PredictionStatus = "cancelled"
)

// TestTargetPrefix marks a target/article/signal as synthetic; see
// spec.md §3: production pipeline MUST NOT consume test-marked rows.
const TestTargetPrefix = "T_"

// Target is a predictable entity (spec.md §3).
type Target struct {
	ID             string
	UniverseID     string
	Symbol         string
	Name           string
	TargetType     string
	IsActive       bool
	LLMConfigJSON  string // per-target LLM override, opaque to this layer
	PortfolioValue float64
}

// IsTest reports whether this target's symbol marks it as synthetic.
func (t Target) IsTest() bool {
	return len(t.Symbol) >= len(TestTargetPrefix) && t.Symbol[:len(TestTargetPrefix)] == TestTargetPrefix
}

// Article is a crawled document.
type Article struct {
	ID             string
	SourceID       string
	URL            string
	Title          string
	Content        string // may be empty; callers fall back to Summary
	Summary        string
	FirstSeenAt    time.Time
	ContentHash    string
	FingerprintHash string
	KeyPhrases     []string
	IsTest         bool
}

// Body returns Content, falling back to Summary per spec.md §3.
func (a Article) Body() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Summary
}

// Signal is a target-scoped observation extracted from an article.
type Signal struct {
	TargetID   string
	SourceID   string
	URL        string
	Content    string
	Direction  Direction
	DetectedAt time.Time
	Metadata   map[string]interface{}
	IsTest     bool
	// Rejected marks a signal whose per-article ensemble assessment
	// never cleared the ingest gate (spec.md §4.5 MinConfidence/
	// MinConsensus) and so never produced a predictor.
	Rejected bool
}

// Predictor is a weighted, direction-bearing opinion feeding Tier 2.
type Predictor struct {
	ID                     string
	TargetID               string
	ArticleID              string
	AnalystSlug            string
	Direction              Direction
	Strength               int // [1..10]
	Confidence             float64 // [0..1]
	Reasoning              string
	Status                 PredictorStatus
	ConsumedByPredictionID string
	ExpiresAt              time.Time
	CreatedAt              time.Time
}

// AnalystEnsemble is the semi-structured record embedded in a
// Prediction; modeled as a tagged map per design note 2 in spec.md §9.
type AnalystEnsemble struct {
	PredictorCount     int                    `json:"predictor_count"`
	CombinedStrength   float64                `json:"combined_strength"`
	DirectionConsensus float64                `json:"direction_consensus"`
	LastRefresh        *time.Time             `json:"last_refresh,omitempty"`
	Versions           []PredictionVersion    `json:"versions,omitempty"`
	ForkBreakdown       map[string]interface{} `json:"fork_breakdown,omitempty"`
}

// PredictionVersion is one entry in AnalystEnsemble.Versions, appended
// on every refresh (spec.md §4.7 "Refresh").
type PredictionVersion struct {
	Timestamp      time.Time           `json:"timestamp"`
	Direction      PredictionDirection `json:"direction"`
	Confidence     float64             `json:"confidence"`
	Magnitude      Magnitude           `json:"magnitude"`
	PredictorCount int                 `json:"predictor_count"`
}

// Prediction is the Tier-3 artifact.
type Prediction struct {
	ID              string
	TargetID        string
	Direction       PredictionDirection
	Magnitude       Magnitude
	MagnitudePct    float64
	Confidence      float64
	TimeframeHours  int
	ExpiresAt       time.Time
	PredictedAt     time.Time
	UpdatedAt       time.Time
	Reasoning       string
	AnalystEnsemble AnalystEnsemble
	LLMEnsemble     map[string]interface{}
	Status          PredictionStatus
	AnalystSlug     string // owner analyst, or "arbitrator"
	IsArbitrator    bool

	RunnerContextVersionID  string
	UniverseContextVersionID string
	TargetContextVersionID  string
	AnalystContextVersionID string // per-analyst user-fork version, for traceability

	RecommendedQuantity float64
	SizingReason        string
}

// Analyst is a named role with a perspective prompt, weight, and tier.
type Analyst struct {
	ID              string
	Slug            string
	Perspective     string
	Weight          float64
	Tier            string
	PerformanceStatus string // "", "probation", "suspended"
	MotivationFactor  float64
}

// AnalystContextVersion is fork-scoped prompt parameters (spec.md §3).
type AnalystContextVersion struct {
	ID              string
	AnalystID       string
	ForkType        ForkType
	Perspective     string
	TierInstructions map[string]string
	DefaultWeight   float64
	VersionNumber   int
	IsCurrent       bool
	AgentJournal    string
	ChangedBy       string
}

// PredictionSnapshot is the immutable audit record accompanying each
// prediction (spec.md §4.8).
type PredictionSnapshot struct {
	PredictionID        string
	Predictors          []SnapshotPredictor
	RejectedSignals     []Signal
	AnalystAssessments  []interface{} // full C4 output, stored opaque
	LLMEnsemble         LLMEnsembleSummary
	LearningsApplied    []string
	ThresholdEvaluation ThresholdEvaluation
	Timeline            []TimelineEvent
	CreatedAt           time.Time
}

// SnapshotPredictor is the denormalized predictor copy stored in a
// snapshot (spec.md §4.8 field list).
type SnapshotPredictor struct {
	ID          string
	Content     string
	Direction   Direction
	Strength    int
	Confidence  float64
	AnalystSlug string
	CreatedAt   time.Time
}

// LLMEnsembleSummary records which tiers were used and their per-tier
// agreement, for the audit snapshot.
type LLMEnsembleSummary struct {
	TiersUsed      []string
	TierResults    map[string]TierResult
	AgreementLevel float64
}

// TierResult is one tier's resolved provider/model and its output.
type TierResult struct {
	Direction  Direction
	Confidence float64
	Model      string
	Provider   string
}

// ThresholdEvaluation is C6's evaluateThreshold output, embedded
// verbatim into the snapshot (config + actuals + passed).
type ThresholdEvaluation struct {
	Config             ThresholdConfig
	ActiveCount        int
	CombinedStrength   float64
	DominantDirection  Direction
	DirectionConsensus float64
	AvgConfidence      float64
	MeetsThreshold     bool
}

// ThresholdConfig is C6's tunable threshold parameters (spec.md §4.6).
type ThresholdConfig struct {
	MinPredictors          int
	MinCombinedStrength    float64
	MinDirectionConsensus  float64
	PredictorTTLHours      int
	TimeDecayRate          float64
}

// DefaultThresholdConfig matches spec.md §4.6's "balanced strategy" defaults.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		MinPredictors:         3,
		MinCombinedStrength:   15,
		MinDirectionConsensus: 0.6,
		PredictorTTLHours:     48,
		TimeDecayRate:         0.05,
	}
}

// TimelineEvent is one entry in a snapshot's timeline.
type TimelineEvent struct {
	Timestamp time.Time
	EventType string
	Details   map[string]interface{}
}

// TargetSnapshot is the latest price record for a target (spec.md §6
// TargetSnapshotRepository).
type TargetSnapshot struct {
	TargetID      string
	Open          float64
	High          float64
	Low           float64
	Volume        float64
	Change24hPct  float64
	PriceAt       time.Time
}

// SourceSubscription tracks a crawler subscription's ingestion watermark.
type SourceSubscription struct {
	ID                string
	SourceID          string
	TargetIDs         []string
	KeywordsInclude   []string
	KeywordsExclude   []string
	LastProcessedAt   time.Time
}
