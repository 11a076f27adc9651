// Package config loads the pipeline's tunable parameters (spec.md §6):
// predictor-pool threshold settings, LLM tier/aggregation preferences,
// per-analyst weight overrides, fork selection, and retry policy.
// Follows the teacher's layered-precedence convention, adapted to a
// YAML-file-first configuration surface: defaults, then the YAML file,
// then the DEFAULT_LLM_MODEL environment override.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/repo"
	"gopkg.in/yaml.v3"
)

// RetryConfig mirrors resilience.RetryConfig's fields under the wire
// names spec.md §6 uses (maxRetries, initialDelayMs, ...).
type RetryConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	InitialDelayMs    int     `yaml:"initialDelayMs"`
	MaxDelayMs        int     `yaml:"maxDelayMs"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
	TimeoutMs         int     `yaml:"timeoutMs"`
}

// PipelineConfig is the top-level tunable surface (spec.md §6).
type PipelineConfig struct {
	MinPredictors         int     `yaml:"min_predictors"`
	MinCombinedStrength   float64 `yaml:"min_combined_strength"`
	MinDirectionConsensus float64 `yaml:"min_direction_consensus"`
	PredictorTTLHours     int     `yaml:"predictor_ttl_hours"`
	TimeDecayRate         float64 `yaml:"time_decay_rate"`

	// TierPreference overrides the tier gate: bronze, silver, gold,
	// platinum, or ensemble (run every tier and aggregate).
	TierPreference string `yaml:"tier_preference"`

	// AnalystWeights overrides a seeded analyst's configured weight by
	// slug; analysts absent from the map keep their registry weight.
	AnalystWeights map[string]float64 `yaml:"analyst_weights"`

	AggregationMethod string `yaml:"aggregation_method"`

	EnableDualFork bool     `yaml:"enableDualFork"`
	ForkTypes      []string `yaml:"forkTypes"`

	Retry RetryConfig `yaml:"retry"`

	// DefaultLLMModel is the local-provider fallback model identifier;
	// spec.md §6 documents it as environment-level, so it is resolved
	// from DEFAULT_LLM_MODEL when the YAML file leaves it blank.
	DefaultLLMModel string `yaml:"default_llm_model"`
}

// Default matches spec.md §4.6's "balanced strategy" defaults plus
// spec.md §4.1's documented retry defaults.
func Default() *PipelineConfig {
	return &PipelineConfig{
		MinPredictors:         3,
		MinCombinedStrength:   15,
		MinDirectionConsensus: 0.6,
		PredictorTTLHours:     48,
		TimeDecayRate:         0.05,
		TierPreference:        "ensemble",
		AnalystWeights:        map[string]float64{},
		AggregationMethod:     "weighted_ensemble",
		EnableDualFork:        true,
		ForkTypes:             []string{"user", "ai", "arbitrator"},
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelayMs:    1000,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2,
			TimeoutMs:         30000,
		},
		DefaultLLMModel: "local-fallback",
	}
}

// Load reads a YAML file into a fresh Default() config, then applies
// the DEFAULT_LLM_MODEL environment override (spec.md §6: "environment
// level"). A missing file is not an error — callers get Default().
func Load(path string) (*PipelineConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w: %w", path, core.ErrInvalidConfiguration, err)
		}
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg *PipelineConfig) *PipelineConfig {
	if v := os.Getenv("DEFAULT_LLM_MODEL"); v != "" {
		cfg.DefaultLLMModel = v
	}
	return cfg
}

// Validate checks the threshold and aggregation fields for obviously
// invalid values (spec.md §6's enumerations).
func (c *PipelineConfig) Validate() error {
	if c.MinPredictors < 1 {
		return fmt.Errorf("min_predictors must be >= 1: %w", core.ErrInvalidConfiguration)
	}
	if c.MinDirectionConsensus < 0 || c.MinDirectionConsensus > 1 {
		return fmt.Errorf("min_direction_consensus must be in [0,1]: %w", core.ErrInvalidConfiguration)
	}
	switch c.AggregationMethod {
	case "weighted_majority", "weighted_average", "weighted_ensemble":
	default:
		return fmt.Errorf("unknown aggregation_method %q: %w", c.AggregationMethod, core.ErrInvalidConfiguration)
	}
	switch strings.ToLower(c.TierPreference) {
	case "bronze", "silver", "gold", "platinum", "ensemble":
	default:
		return fmt.Errorf("unknown tier_preference %q: %w", c.TierPreference, core.ErrInvalidConfiguration)
	}
	for _, ft := range c.ForkTypes {
		switch repo.ForkType(ft) {
		case repo.ForkUser, repo.ForkAI, repo.ForkArbitrator:
		default:
			return fmt.Errorf("unknown fork type %q: %w", ft, core.ErrInvalidConfiguration)
		}
	}
	return nil
}

// ThresholdConfig projects the predictor-pool fields onto
// repo.ThresholdConfig.
func (c *PipelineConfig) ThresholdConfig() repo.ThresholdConfig {
	return repo.ThresholdConfig{
		MinPredictors:         c.MinPredictors,
		MinCombinedStrength:   c.MinCombinedStrength,
		MinDirectionConsensus: c.MinDirectionConsensus,
		PredictorTTLHours:     c.PredictorTTLHours,
		TimeDecayRate:         c.TimeDecayRate,
	}
}

// ResilienceRetryMillis projects the retry fields onto resilience.RetryConfig's
// shape. Returned as plain millisecond ints/float so resilience need not
// import this package; callers convert to time.Duration at the wiring site.
func (c *PipelineConfig) ResilienceRetryMillis() (maxRetries int, initialDelayMs, maxDelayMs int, backoffMultiplier float64, timeoutMs int) {
	return c.Retry.MaxRetries, c.Retry.InitialDelayMs, c.Retry.MaxDelayMs, c.Retry.BackoffMultiplier, c.Retry.TimeoutMs
}

// WeightFor returns the configured override for slug, or fallback when
// no override is set (spec.md §6 analyst_weights).
func (c *PipelineConfig) WeightFor(slug string, fallback float64) float64 {
	if w, ok := c.AnalystWeights[slug]; ok {
		return w
	}
	return fallback
}
