package analyst

import (
	"fmt"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

// SynthesizeArbitratorContext deterministically merges an analyst's
// current user-fork and ai-fork context versions into a candidate
// arbitrator-fork version (spec.md §4.3). Returns ok=false when
// neither fork has a current version yet — there is nothing to
// arbitrate.
func SynthesizeArbitratorContext(analystID string, user repo.AnalystContextVersion, hasUser bool, ai repo.AnalystContextVersion, hasAI bool) (repo.AnalystContextVersion, bool) {
	if !hasUser && !hasAI {
		return repo.AnalystContextVersion{}, false
	}

	perspective := fmt.Sprintf("## User-Maintained Context\n%s\n\n## AI-Maintained Context\n%s", user.Perspective, ai.Perspective)

	tierInstructions := map[string]string{}
	for tier, instr := range user.TierInstructions {
		tierInstructions[tier] = "## User Instructions\n" + instr
	}
	for tier, instr := range ai.TierInstructions {
		merged := "## AI Instructions\n" + instr
		if existing, ok := tierInstructions[tier]; ok {
			merged = existing + "\n\n" + merged
		}
		tierInstructions[tier] = merged
	}

	defaultWeight := user.DefaultWeight
	if ai.DefaultWeight > defaultWeight {
		defaultWeight = ai.DefaultWeight
	}

	versionNumber := user.VersionNumber
	if ai.VersionNumber > versionNumber {
		versionNumber = ai.VersionNumber
	}

	return repo.AnalystContextVersion{
		AnalystID:        analystID,
		ForkType:         repo.ForkArbitrator,
		Perspective:      perspective,
		TierInstructions: tierInstructions,
		DefaultWeight:    defaultWeight,
		VersionNumber:    versionNumber,
		IsCurrent:        true,
		AgentJournal:     ai.AgentJournal,
		ChangedBy:        "system",
	}, true
}
