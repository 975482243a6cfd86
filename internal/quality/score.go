// Package quality implements self-consistency translation scoring.
//
// The reference passed to Score is normally a second, independent machine
// translation of the same summary rather than a human reference, so the
// result measures how stable the translator is, not how correct it is.
package quality

import (
	"math"
	"strings"

	"NewsBroadcaster/internal/domain"
)

const (
	maxOrder       = 4
	precisionFloor = 0.00001
)

// Score compares candidate against reference with unclipped 1..4-gram precision,
// a geometric mean and a brevity penalty. The result is in [0,100] with two decimals.
func Score(reference, candidate string) float64 {
	return math.Round(Raw(reference, candidate)*100) / 100
}

// Raw is Score without the final rounding.
func Raw(reference, candidate string) float64 {
	refTokens := tokenize(reference)
	candTokens := tokenize(candidate)
	if len(refTokens) == 0 || len(candTokens) == 0 {
		return 0
	}

	product := 1.0
	for n := 1; n <= maxOrder; n++ {
		product *= precision(refTokens, candTokens, n)
	}
	geometricMean := math.Pow(product, 1.0/maxOrder)

	return brevityPenalty(len(refTokens), len(candTokens)) * geometricMean * 100
}

// Rate maps a score onto its quality band.
func Rate(score float64) domain.QualityScore {
	label := domain.QualityPoor
	switch {
	case score >= 80:
		label = domain.QualityExcellent
	case score >= 60:
		label = domain.QualityGood
	case score >= 40:
		label = domain.QualityFair
	}
	return domain.QualityScore{Value: score, Label: label}
}

// Evaluate scores candidate against reference and rates the result.
func Evaluate(reference, candidate string) domain.QualityScore {
	return Rate(Score(reference, candidate))
}

func precision(refTokens, candTokens []string, n int) float64 {
	candGrams := ngrams(candTokens, n)
	if len(candGrams) == 0 {
		return precisionFloor
	}

	refSet := make(map[string]struct{}, len(refTokens))
	for _, gram := range ngrams(refTokens, n) {
		refSet[gram] = struct{}{}
	}

	matches := 0
	for _, gram := range candGrams {
		if _, ok := refSet[gram]; ok {
			matches++
		}
	}
	if matches == 0 {
		return precisionFloor
	}
	return float64(matches) / float64(len(candGrams))
}

func brevityPenalty(refLen, candLen int) float64 {
	if candLen >= refLen {
		return 1
	}
	return math.Exp(1 - float64(refLen)/float64(candLen))
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func ngrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}
