// Package ensemble implements the Ensemble Engine (C4): per-analyst,
// per-fork LLM prompting and the three aggregation methods described
// in spec.md §4.4.
package ensemble

import "github.com/GolferGeek/predictor-pipeline/repo"

// EnsembleInput is the shared per-run payload handed to every
// analyst×fork pipeline invocation.
type EnsembleInput struct {
	TargetID  string
	Content   string
	Metadata  map[string]interface{}
	Direction *repo.Direction
}

// Assessment is one analyst×fork row of raw LLM output.
type Assessment struct {
	Analyst           string
	Tier              string
	Direction         repo.Direction
	Confidence        float64
	Reasoning         string
	KeyFactors        []string
	Risks             []string
	LearningsApplied  []string
	ForkType          repo.ForkType
	ContextVersionID  string
	IsPaperOnly       bool
	EffectiveWeight   float64
	Model             string
	Provider          string
}

// Aggregated is the ensemble's combined call.
type Aggregated struct {
	Direction        repo.Direction
	Confidence       float64
	ConsensusStrength float64
	Reasoning        string
}

// EnsembleResult is runEnsemble's return value.
type EnsembleResult struct {
	Assessments []Assessment
	Aggregated  Aggregated
}

// AssessmentFor returns the assessment for the given analyst slug, or
// the zero value (direction "", confidence 0) if that analyst is not
// present in this result (e.g. it failed and was skipped).
func (r EnsembleResult) AssessmentFor(slug string) Assessment {
	for _, a := range r.Assessments {
		if a.Analyst == slug {
			return a
		}
	}
	return Assessment{Analyst: slug}
}

// ThreeWayForkResult is runThreeWayForkEnsemble's return value: one
// EnsembleResult per fork, plus cross-fork agreement metadata.
type ThreeWayForkResult struct {
	ByFork    map[repo.ForkType]EnsembleResult
	Agreement ForkAgreement
}

// ForkAgreement reports the fraction of analysts present on both
// sides whose normalized directions match (spec.md §4.4).
type ForkAgreement struct {
	UserVsAiAgreement       float64
	ArbitratorAgreesWithUser float64
	ArbitratorAgreesWithAi   float64
}

// AggregationMethod selects how per-analyst assessments combine.
type AggregationMethod string

const (
	AggregationWeightedMajority AggregationMethod = "weighted_majority"
	AggregationWeightedAverage  AggregationMethod = "weighted_average"
	AggregationWeightedEnsemble AggregationMethod = "weighted_ensemble" // default
)

// Options configures a single runEnsemble/runThreeWayForkEnsemble call.
type Options struct {
	Aggregation AggregationMethod
	Fork        repo.ForkType // used by runEnsemble (single-fork); defaults to "user"
}
