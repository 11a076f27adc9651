package prediction

import (
	"math"
	"strings"
)

// magnitudeFor buckets a magnitude percentage per spec.md §4.7.5.
func magnitudeFor(magnitudePercent float64) string {
	switch {
	case magnitudePercent < 2.5:
		return "small"
	case magnitudePercent < 6:
		return "medium"
	default:
		return "large"
	}
}

func riskFraction(confidence float64) float64 {
	switch {
	case confidence >= 0.8:
		return 0.02
	case confidence >= 0.7:
		return 0.015
	case confidence >= 0.6:
		return 0.01
	default:
		return 0.005
	}
}

func stopDistanceFraction(magnitudePercent float64) float64 {
	switch {
	case magnitudePercent >= 6:
		return 0.05
	case magnitudePercent >= 2.5:
		return 0.03
	default:
		return 0.02
	}
}

// isCrypto reports whether symbol's quoting convention marks it as a
// crypto pair rather than an equity (spec.md §4.7.5).
func isCrypto(symbol string) bool {
	upper := strings.ToUpper(symbol)
	if strings.Contains(upper, "-") || strings.Contains(upper, "/") {
		return true
	}
	for _, suffix := range []string{"USD", "USDT", "BTC", "ETH"} {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// SizingResult is the output of ComputeQuantity.
type SizingResult struct {
	RecommendedQuantity float64
	Reason              string
}

// ComputeQuantity implements spec.md §4.7.5's position-sizing formula.
// isSystemContext reports whether the acting context is the synthetic
// "system" user; hasEntryPrice reports whether entryPrice is usable.
func ComputeQuantity(confidence, magnitudePercent, entryPrice, portfolioValue float64, symbol string, isSystemContext, hasEntryPrice bool) SizingResult {
	if isSystemContext {
		return SizingResult{RecommendedQuantity: 0, Reason: "sizing skipped: acting context is the synthetic system user"}
	}
	if !hasEntryPrice || entryPrice <= 0 {
		return SizingResult{RecommendedQuantity: 0, Reason: "sizing skipped: entry price unavailable"}
	}
	if portfolioValue <= 0 {
		return SizingResult{RecommendedQuantity: 0, Reason: "sizing skipped: portfolio balance unavailable"}
	}

	risk := riskFraction(confidence)
	stopDistance := stopDistanceFraction(magnitudePercent)
	raw := (portfolioValue * risk) / (entryPrice * stopDistance)

	var quantity float64
	if isCrypto(symbol) {
		quantity = math.Floor(raw*1e8) / 1e8
	} else {
		quantity = math.Floor(raw)
	}

	return SizingResult{RecommendedQuantity: quantity, Reason: ""}
}
