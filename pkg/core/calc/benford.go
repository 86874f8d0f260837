package calc

import (
	"math"
)

// BenfordDistribution is the expected frequency for leading digits 1-9
var BenfordDistribution = map[int]float64{
	1: 0.30103,
	2: 0.17609,
	3: 0.12494,
	4: 0.09691,
	5: 0.07918,
	6: 0.06695,
	7: 0.05799,
	8: 0.05115,
	9: 0.04576,
}

// Conformity bands for first-digit MAD (Nigrini).
const (
	benfordCloseMAD      = 0.006
	benfordAcceptableMAD = 0.012
	benfordMarginalMAD   = 0.015

	// Below this many usable values the distribution says nothing.
	BenfordMinSample = 25
)

// BenfordResult holds the analysis of leading digit distribution
type BenfordResult struct {
	DigitCounts      map[int]int     `json:"digit_counts"`
	DigitFrequencies map[int]float64 `json:"digit_frequencies"`
	TotalCount       int             `json:"total_count"`
	MAD              float64         `json:"mad"`     // Mean Absolute Deviation
	Flagged          bool            `json:"flagged"` // Nonconforming
	Level            string          `json:"level"`
}

// AnalyzeBenfordsLaw performs first-digit analysis on reported values.
// Magnitudes below 10 are skipped since their leading digit is mostly rounding.
// The result is a diagnostic only and carries no weight in the risk score.
func AnalyzeBenfordsLaw(values []float64) BenfordResult {
	counts := make(map[int]int)
	processed := 0

	for _, v := range values {
		d := leadingDigit(v)
		if d == 0 {
			continue
		}
		counts[d]++
		processed++
	}

	if processed < BenfordMinSample {
		return BenfordResult{DigitCounts: counts, TotalCount: processed, Level: "Insufficient Data"}
	}

	freqs := make(map[int]float64, 9)
	sumDiff := 0.0
	for d := 1; d <= 9; d++ {
		actual := float64(counts[d]) / float64(processed)
		freqs[d] = actual
		sumDiff += math.Abs(actual - BenfordDistribution[d])
	}
	mad := sumDiff / 9.0

	var level string
	switch {
	case mad <= benfordCloseMAD:
		level = "Close Conformity"
	case mad <= benfordAcceptableMAD:
		level = "Acceptable Conformity"
	case mad <= benfordMarginalMAD:
		level = "Marginal Conformity"
	default:
		level = "Nonconformity"
	}

	return BenfordResult{
		DigitCounts:      counts,
		DigitFrequencies: freqs,
		TotalCount:       processed,
		MAD:              mad,
		Flagged:          mad > benfordMarginalMAD,
		Level:            level,
	}
}

// leadingDigit returns 1-9, or 0 for values that should not be counted.
func leadingDigit(v float64) int {
	a := math.Abs(v)
	if a < 10 || math.IsInf(a, 0) || math.IsNaN(a) {
		return 0
	}
	for a >= 10 {
		a /= 10
	}
	return int(a)
}
