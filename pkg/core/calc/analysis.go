package calc

import (
	"math"
)

// Ratio helpers return raw values; callers apply their own guards on zero bases,
// since each rule treats a missing base differently.

// =============================================================================
// GROWTH
// =============================================================================

// GrowthRate is (current - prior) / |prior|, or 0 without a prior base.
func GrowthRate(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / math.Abs(prior)
}

// PercentChange is (current - prior) / prior * 100. Callers must guard prior != 0.
func PercentChange(current, prior float64) float64 {
	return (current - prior) / prior * 100
}

// =============================================================================
// RATIOS
// =============================================================================

// DaysSalesOutstanding is AR / Revenue * 365.
func DaysSalesOutstanding(receivables, revenue float64) float64 {
	return safeDiv(receivables, revenue) * 365
}

func CurrentRatio(currentAssets, currentLiabilities float64) float64 {
	return safeDiv(currentAssets, currentLiabilities)
}

// DebtToEquity uses total liabilities as debt.
func DebtToEquity(liabilities, equity float64) float64 {
	return safeDiv(liabilities, equity)
}

// GrossMarginPct is (Revenue - COGS) / Revenue in percent.
func GrossMarginPct(revenue, cogs float64) float64 {
	return safeDiv(revenue-cogs, revenue) * 100
}

// NetMarginPct is Net Income / Revenue in percent.
func NetMarginPct(netIncome, revenue float64) float64 {
	return safeDiv(netIncome, revenue) * 100
}

// SoftAssetPct is the share of assets that are neither current nor PP&E, in percent.
func SoftAssetPct(assets, currentAssets, ppe float64) float64 {
	return safeDiv(assets-currentAssets-ppe, assets) * 100
}

// =============================================================================
// DESCRIPTIVE STATISTICS
// =============================================================================

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev divides by n, not n-1.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := Mean(values)
	ss := 0.0
	for _, v := range values {
		ss += (v - avg) * (v - avg)
	}
	return math.Sqrt(ss / float64(len(values)))
}

// CoefficientOfVariation is stddev / |mean|. ok is false when the mean is zero.
func CoefficientOfVariation(values []float64) (cv float64, ok bool) {
	avg := Mean(values)
	if avg == 0 {
		return 0, false
	}
	return PopulationStdDev(values) / math.Abs(avg), true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
