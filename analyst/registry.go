// Package analyst implements the Analyst Registry (C3): the active
// analyst set per target and fork-scoped context version management,
// per spec.md §4.3.
package analyst

import (
	"context"
	"fmt"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

// Registry exposes getActiveAnalysts / getCurrentContextVersion /
// getAllCurrentContextVersions / createContextVersion (spec.md §4.3).
type Registry struct {
	repo repo.AnalystRepository
}

// NewRegistry wires a Registry over repo.
func NewRegistry(r repo.AnalystRepository) *Registry {
	return &Registry{repo: r}
}

func (reg *Registry) GetActiveAnalysts(ctx context.Context, targetID string) ([]repo.Analyst, error) {
	return reg.repo.GetActiveAnalysts(ctx, targetID)
}

func (reg *Registry) GetCurrentContextVersion(ctx context.Context, analystID string, fork repo.ForkType) (repo.AnalystContextVersion, bool, error) {
	return reg.repo.GetCurrentContextVersion(ctx, analystID, fork)
}

func (reg *Registry) GetAllCurrentContextVersions(ctx context.Context, fork repo.ForkType) (map[string]repo.AnalystContextVersion, error) {
	return reg.repo.GetAllCurrentContextVersions(ctx, fork)
}

func (reg *Registry) CreateContextVersion(ctx context.Context, v repo.AnalystContextVersion) (repo.AnalystContextVersion, error) {
	return reg.repo.CreateContextVersion(ctx, v)
}

// GetOrSynthesizeArbitratorVersion returns analystID's current
// arbitrator-fork context version, synthesizing and persisting one on
// demand from the current user/ai versions if none exists yet or if
// either side has moved on since the last synthesis (the freshly
// synthesized perspective, tier instructions, weight, journal or
// version number differ from the stored arbitrator version).
func (reg *Registry) GetOrSynthesizeArbitratorVersion(ctx context.Context, analystID string) (repo.AnalystContextVersion, bool, error) {
	userV, hasUser, err := reg.repo.GetCurrentContextVersion(ctx, analystID, repo.ForkUser)
	if err != nil {
		return repo.AnalystContextVersion{}, false, fmt.Errorf("get user context version: %w", err)
	}
	aiV, hasAI, err := reg.repo.GetCurrentContextVersion(ctx, analystID, repo.ForkAI)
	if err != nil {
		return repo.AnalystContextVersion{}, false, fmt.Errorf("get ai context version: %w", err)
	}

	synthesized, ok := SynthesizeArbitratorContext(analystID, userV, hasUser, aiV, hasAI)
	if !ok {
		return repo.AnalystContextVersion{}, false, nil
	}

	existing, hasExisting, err := reg.repo.GetCurrentContextVersion(ctx, analystID, repo.ForkArbitrator)
	if err != nil {
		return repo.AnalystContextVersion{}, false, fmt.Errorf("get arbitrator context version: %w", err)
	}
	if hasExisting && existing.VersionNumber == synthesized.VersionNumber &&
		existing.Perspective == synthesized.Perspective &&
		existing.DefaultWeight == synthesized.DefaultWeight &&
		existing.AgentJournal == synthesized.AgentJournal &&
		len(existing.TierInstructions) == len(synthesized.TierInstructions) {
		unchanged := true
		for tier, instr := range synthesized.TierInstructions {
			if existing.TierInstructions[tier] != instr {
				unchanged = false
				break
			}
		}
		if unchanged {
			return existing, true, nil
		}
	}

	created, err := reg.repo.CreateContextVersion(ctx, synthesized)
	if err != nil {
		return repo.AnalystContextVersion{}, false, fmt.Errorf("persist synthesized arbitrator context: %w", err)
	}
	return created, true, nil
}
