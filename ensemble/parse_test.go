package ensemble

import (
	"testing"

	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/stretchr/testify/assert"
)

func TestParseAssessmentValidJSON(t *testing.T) {
	dir, conf, reasoning, factors, risks := ParseAssessment(`some preamble {"direction":"Bullish","confidence":1.4,"reasoning":"strong earnings","key_factors":["earnings"],"risks":["macro"]} trailing`)
	assert.Equal(t, repo.DirectionBullish, dir)
	assert.Equal(t, 1.0, conf) // clamped
	assert.Equal(t, "strong earnings", reasoning)
	assert.Equal(t, []string{"earnings"}, factors)
	assert.Equal(t, []string{"macro"}, risks)
}

func TestParseAssessmentMalformedJSONDefaultsToNeutral(t *testing.T) {
	raw := "the model rambled without ever producing JSON"
	dir, conf, reasoning, _, _ := ParseAssessment(raw)
	assert.Equal(t, repo.DirectionNeutral, dir)
	assert.Equal(t, 0.5, conf)
	assert.Equal(t, raw, reasoning)
}

func TestParseAssessmentUnknownDirectionDefaultsToNeutral(t *testing.T) {
	dir, _, _, _, _ := ParseAssessment(`{"direction":"sideways","confidence":0.5,"reasoning":"r"}`)
	assert.Equal(t, repo.DirectionNeutral, dir)
}
