package ensemble

import (
	"encoding/json"
	"strings"

	"github.com/GolferGeek/predictor-pipeline/repo"
)

type rawAssessment struct {
	Direction  string   `json:"direction"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	KeyFactors []string `json:"key_factors"`
	Risks      []string `json:"risks"`
}

// ParseAssessment extracts the first "{...}" JSON substring from raw
// LLM output and decodes it per spec.md §4.4 step 6. Malformed JSON
// never errors: it defaults to {direction: neutral, confidence: 0.5,
// reasoning: <raw>}, and confidence is always clamped to [0,1].
func ParseAssessment(raw string) (direction repo.Direction, confidence float64, reasoning string, keyFactors, risks []string) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	var parsed rawAssessment
	ok := false
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
			ok = true
		}
	}

	if !ok {
		return repo.DirectionNeutral, 0.5, raw, nil, nil
	}

	dir := repo.Direction(strings.ToLower(strings.TrimSpace(parsed.Direction)))
	switch dir {
	case repo.DirectionBullish, repo.DirectionBearish, repo.DirectionNeutral:
	default:
		dir = repo.DirectionNeutral
	}

	conf := parsed.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	reasoningOut := parsed.Reasoning
	if reasoningOut == "" {
		reasoningOut = raw
	}

	return dir, conf, reasoningOut, parsed.KeyFactors, parsed.Risks
}
