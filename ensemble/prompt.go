package ensemble

import (
	"fmt"
	"strings"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

// BuildPrompt is a pure function of its inputs (spec.md §4.4 step 3):
// the analyst's fork-scoped context version, the shared ensemble
// input, and any learnings to fold in.
func BuildPrompt(contextVersion repo.AnalystContextVersion, tier string, input EnsembleInput, learnings []string) (system, user string) {
	var sb strings.Builder
	sb.WriteString(contextVersion.Perspective)
	if instr, ok := contextVersion.TierInstructions[tier]; ok && instr != "" {
		sb.WriteString("\n\n")
		sb.WriteString(instr)
	}
	if len(learnings) > 0 {
		sb.WriteString("\n\n## Learnings\n")
		for _, l := range learnings {
			sb.WriteString("- ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n\nRespond with a single JSON object: {\"direction\":\"bullish|bearish|neutral\",\"confidence\":0..1,\"reasoning\":\"...\",\"key_factors\":[...],\"risks\":[...]}.")

	userPrompt := fmt.Sprintf("Target: %s\n\n%s", input.TargetID, input.Content)
	if input.Direction != nil {
		userPrompt += fmt.Sprintf("\n\nObserved signal direction: %s", *input.Direction)
	}
	return sb.String(), userPrompt
}
