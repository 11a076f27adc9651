package ensemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/llm"
	"github.com/GolferGeek/predictor-pipeline/repo"
)

// LearningsProvider supplies the prior-run learnings folded into a
// prompt for forks that use them (spec.md §4.4 step 1). The default
// implementation derives them from the analyst's AI-fork journal.
type LearningsProvider interface {
	GetLearnings(ctx context.Context, analystID string, fork repo.ForkType) ([]string, error)
}

// AnalystSource resolves the active analyst set and their fork-scoped
// context versions; analyst.Registry satisfies this.
type AnalystSource interface {
	GetActiveAnalysts(ctx context.Context, targetID string) ([]repo.Analyst, error)
	GetCurrentContextVersion(ctx context.Context, analystID string, fork repo.ForkType) (repo.AnalystContextVersion, bool, error)
}

// Dependencies wires the Engine's collaborators.
type Dependencies struct {
	Analysts   AnalystSource
	Learnings  LearningsProvider
	Gateway    *llm.Gateway
	UniverseID string
	MaxWorkers int
	Logger     core.Logger
}

// Engine is the Ensemble Engine (C4) entry point.
type Engine struct {
	deps Dependencies
	log  core.Logger
}

// NewEngine wires an Engine from deps, defaulting missing collaborators.
func NewEngine(deps Dependencies) *Engine {
	if deps.MaxWorkers <= 0 {
		deps.MaxWorkers = 4
	}
	if deps.Learnings == nil {
		deps.Learnings = journalLearningsProvider{source: deps.Analysts}
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/ensemble")
	}
	return &Engine{deps: deps, log: logger}
}

// RunEnsemble is the legacy single-fork entry point; fork defaults to
// "user" when unset (spec.md §4.4).
func (e *Engine) RunEnsemble(ctx context.Context, targetID string, input EnsembleInput, opts Options) (EnsembleResult, error) {
	fork := opts.Fork
	if fork == "" {
		fork = repo.ForkUser
	}
	return e.runForFork(ctx, targetID, input, fork, opts.Aggregation)
}

// RunThreeWayForkEnsemble runs every active analyst through all three
// forks and reports cross-fork agreement metadata (spec.md §4.4).
func (e *Engine) RunThreeWayForkEnsemble(ctx context.Context, targetID string, input EnsembleInput, opts Options) (ThreeWayForkResult, error) {
	forks := []repo.ForkType{repo.ForkUser, repo.ForkAI, repo.ForkArbitrator}
	byFork := make(map[repo.ForkType]EnsembleResult, len(forks))

	for _, fork := range forks {
		result, err := e.runForFork(ctx, targetID, input, fork, opts.Aggregation)
		if err != nil {
			return ThreeWayForkResult{}, fmt.Errorf("run fork %s: %w", fork, err)
		}
		byFork[fork] = result
	}

	return ThreeWayForkResult{
		ByFork:    byFork,
		Agreement: computeAgreement(byFork),
	}, nil
}

func (e *Engine) runForFork(ctx context.Context, targetID string, input EnsembleInput, fork repo.ForkType, method AggregationMethod) (EnsembleResult, error) {
	analysts, err := e.deps.Analysts.GetActiveAnalysts(ctx, targetID)
	if err != nil {
		return EnsembleResult{}, fmt.Errorf("get active analysts: %w", err)
	}
	if len(analysts) == 0 {
		return EnsembleResult{Aggregated: Aggregated{Direction: repo.DirectionNeutral}}, nil
	}

	rows := runBounded(analysts, e.deps.MaxWorkers, func(a repo.Analyst) assessmentOrErr {
		assessment, err := e.assessOne(ctx, a, fork, input)
		return assessmentOrErr{assessment: assessment, err: err}
	})

	assessments := make([]Assessment, 0, len(rows))
	failures := 0
	for i, row := range rows {
		if row.err != nil {
			failures++
			e.log.Warn("analyst assessment failed, skipping", map[string]interface{}{
				"analyst": analysts[i].Slug,
				"fork":    string(fork),
				"error":   row.err.Error(),
			})
			continue
		}
		assessments = append(assessments, row.assessment)
	}
	if failures == len(analysts) {
		return EnsembleResult{}, fmt.Errorf("every analyst failed for fork %s", fork)
	}

	return EnsembleResult{
		Assessments: assessments,
		Aggregated:  Aggregate(method, assessments),
	}, nil
}

type assessmentOrErr struct {
	assessment Assessment
	err        error
}

func (e *Engine) assessOne(ctx context.Context, a repo.Analyst, fork repo.ForkType, input EnsembleInput) (Assessment, error) {
	contextVersion, _, err := e.deps.Analysts.GetCurrentContextVersion(ctx, a.ID, fork)
	if err != nil {
		return Assessment{}, fmt.Errorf("get context version: %w", err)
	}

	var learnings []string
	if fork == repo.ForkUser || fork == repo.ForkArbitrator {
		learnings, err = e.deps.Learnings.GetLearnings(ctx, a.ID, fork)
		if err != nil {
			return Assessment{}, fmt.Errorf("get learnings: %w", err)
		}
	}

	effectiveWeight := a.Weight
	isPaperOnly := false
	if fork == repo.ForkAI || fork == repo.ForkArbitrator {
		switch a.PerformanceStatus {
		case "suspended":
			isPaperOnly = true
		case "probation":
			effectiveWeight *= a.MotivationFactor
		}
	}

	systemPrompt, userPrompt := BuildPrompt(contextVersion, a.Tier, input, learnings)

	label := fmt.Sprintf("ensemble:%s:%s", a.Slug, fork)
	resp, err := e.deps.Gateway.Generate(ctx, e.deps.UniverseID, mapAnalystTier(a.Tier), llm.Overrides{}, systemPrompt, userPrompt, label)
	if err != nil {
		return Assessment{}, fmt.Errorf("generate: %w", err)
	}

	direction, confidence, reasoning, keyFactors, risks := ParseAssessment(resp.Content)

	return Assessment{
		Analyst:          a.Slug,
		Tier:             a.Tier,
		Direction:        direction,
		Confidence:       confidence,
		Reasoning:        reasoning,
		KeyFactors:       keyFactors,
		Risks:            risks,
		LearningsApplied: learnings,
		ForkType:         fork,
		ContextVersionID: contextVersion.ID,
		IsPaperOnly:      isPaperOnly,
		EffectiveWeight:  effectiveWeight,
		Model:            resp.Model,
		Provider:         resp.Provider,
	}, nil
}

func mapAnalystTier(tier string) llm.Tier {
	switch strings.ToLower(tier) {
	case "silver":
		return llm.TierSilver
	case "gold":
		return llm.TierGold
	case "platinum":
		return llm.TierPlatinum
	default:
		return llm.TierBronze
	}
}

// normalizeDirection maps the wider vocabulary callers may observe
// (prediction directions, loose synonyms) onto the three-value
// direction set used for fork-agreement comparisons (spec.md §4.4).
func normalizeDirection(d repo.Direction) repo.Direction {
	switch strings.ToLower(string(d)) {
	case "bullish", "up", "buy", "long":
		return repo.DirectionBullish
	case "bearish", "down", "sell", "short":
		return repo.DirectionBearish
	default:
		return repo.DirectionNeutral
	}
}

func computeAgreement(byFork map[repo.ForkType]EnsembleResult) ForkAgreement {
	user := indexBySlug(byFork[repo.ForkUser])
	ai := indexBySlug(byFork[repo.ForkAI])
	arbitrator := indexBySlug(byFork[repo.ForkArbitrator])

	return ForkAgreement{
		UserVsAiAgreement:        agreementFraction(user, ai),
		ArbitratorAgreesWithUser: agreementFraction(arbitrator, user),
		ArbitratorAgreesWithAi:   agreementFraction(arbitrator, ai),
	}
}

func indexBySlug(result EnsembleResult) map[string]repo.Direction {
	out := make(map[string]repo.Direction, len(result.Assessments))
	for _, a := range result.Assessments {
		out[a.Analyst] = normalizeDirection(a.Direction)
	}
	return out
}

func agreementFraction(a, b map[string]repo.Direction) float64 {
	var both, matches int
	for slug, dirA := range a {
		dirB, ok := b[slug]
		if !ok {
			continue
		}
		both++
		if dirA == dirB {
			matches++
		}
	}
	if both == 0 {
		return 0
	}
	return float64(matches) / float64(both)
}

// journalLearningsProvider derives learnings from an analyst's
// AI-fork context version journal, split on newlines, when no richer
// learnings store is wired in.
type journalLearningsProvider struct {
	source AnalystSource
}

func (p journalLearningsProvider) GetLearnings(ctx context.Context, analystID string, fork repo.ForkType) ([]string, error) {
	v, ok, err := p.source.GetCurrentContextVersion(ctx, analystID, repo.ForkAI)
	if err != nil {
		return nil, err
	}
	if !ok || v.AgentJournal == "" {
		return nil, nil
	}
	var out []string
	for _, line := range strings.Split(v.AgentJournal, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
