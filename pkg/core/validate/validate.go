// Package validate provides data-integrity checks over annual series.
// Problems are reported, never fixed: the analysis still runs on the reported values.
package validate

import (
	"fmt"
	"math"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/models"
)

const (
	// DefaultTolerancePct is the allowed gap for accounting identities, as % of the reference value.
	DefaultTolerancePct = 1.0

	// DefaultOutlierPct flags year-over-year moves larger than this.
	DefaultOutlierPct = 300.0
)

// Check names used in Issue.Check.
const (
	CheckBalanceSheet  = "balance_sheet"
	CheckGrossProfit   = "gross_profit"
	CheckCurrentAssets = "current_assets"
	CheckNegative      = "negative_value"
	CheckOutlier       = "outlier"
)

// Issue is one failed integrity check.
type Issue struct {
	Period  string `json:"period"`
	Check   string `json:"check"`
	Message string `json:"message"`
}

// =============================================================================
// YEAR-OVER-YEAR (YoY)
// =============================================================================

// CalculateYoY calculates year-over-year change between two values.
// Returns percentage change: (current - prior) / |prior| * 100
func CalculateYoY(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return math.Inf(1) // Infinite growth from zero
	}
	return calc.GrowthRate(current, prior) * 100
}

// =============================================================================
// ACCOUNTING IDENTITIES
// =============================================================================

// BalanceCheck verifies Assets = Liabilities + Equity.
type BalanceCheck struct {
	TotalAssets      float64
	TotalLiabilities float64
	TotalEquity      float64
	ComputedAssets   float64 // L + E
	Difference       float64
	DifferencePct    float64 // of total assets
	IsBalanced       bool
}

// CheckBalanceEquation validates A = L + E within tolerancePct of total assets.
func CheckBalanceEquation(assets, liabilities, equity, tolerancePct float64) *BalanceCheck {
	computed := liabilities + equity
	diff := assets - computed

	check := &BalanceCheck{
		TotalAssets:      assets,
		TotalLiabilities: liabilities,
		TotalEquity:      equity,
		ComputedAssets:   computed,
		Difference:       diff,
	}
	if assets != 0 {
		check.DifferencePct = math.Abs(diff) / math.Abs(assets) * 100
	} else if diff != 0 {
		check.DifferencePct = math.Inf(1)
	}
	check.IsBalanced = check.DifferencePct <= tolerancePct
	return check
}

// =============================================================================
// OUTLIER DETECTION
// =============================================================================

// OutlierCheck identifies suspicious values.
type OutlierCheck struct {
	Item       string
	Value      float64
	PriorValue float64
	ChangePct  float64
	IsOutlier  bool
	Reason     string
	Threshold  float64
}

// CheckForOutlier identifies if a value change is suspicious.
func CheckForOutlier(item string, current, prior, thresholdPct float64) *OutlierCheck {
	changePct := CalculateYoY(current, prior)

	check := &OutlierCheck{
		Item:       item,
		Value:      current,
		PriorValue: prior,
		ChangePct:  changePct,
		Threshold:  thresholdPct,
	}

	// Dropping to zero usually means the tag was not reported that year.
	if current == 0 && prior != 0 {
		check.IsOutlier = true
		check.Reason = fmt.Sprintf("%s dropped to zero", item)
		return check
	}

	if math.Abs(changePct) > thresholdPct {
		check.IsOutlier = true
		check.Reason = fmt.Sprintf("%s changed %.1f%% year over year (threshold %.0f%%)", item, changePct, thresholdPct)
	}
	return check
}

// =============================================================================
// SERIES CHECKS
// =============================================================================

// Fields compared year over year for outliers.
var outlierFields = []models.Field{
	models.Revenues,
	models.Assets,
	models.Liabilities,
	models.AccountsReceivable,
}

// Fields that should never be negative.
var nonNegativeFields = []models.Field{
	models.Revenues,
	models.Assets,
	models.CurrentAssets,
	models.AccountsReceivable,
	models.Inventory,
	models.PropertyPlantEquipment,
}

// CheckSeries runs every check over a newest-first series. Checks needing an absent field are skipped.
func CheckSeries(series models.Series, tolerancePct, outlierPct float64) []Issue {
	var issues []Issue
	add := func(m models.AnnualMetrics, check, msg string) {
		issues = append(issues, Issue{Period: m.Label(), Check: check, Message: msg})
	}

	for i, m := range series {
		// 1. A = L + E
		if len(m.Missing(models.Assets, models.Liabilities, models.StockholdersEquity)) == 0 {
			bc := CheckBalanceEquation(m.Get(models.Assets), m.Get(models.Liabilities), m.Get(models.StockholdersEquity), tolerancePct)
			if !bc.IsBalanced {
				add(m, CheckBalanceSheet, fmt.Sprintf("assets %.0f differ from liabilities + equity %.0f by %.2f%%",
					bc.TotalAssets, bc.ComputedAssets, bc.DifferencePct))
			}
		}

		// 2. GP = Revenue - COGS
		if len(m.Missing(models.GrossProfit, models.Revenues, models.CostOfRevenue)) == 0 && m.Get(models.Revenues) != 0 {
			computed := m.Get(models.Revenues) - m.Get(models.CostOfRevenue)
			gap := math.Abs(m.Get(models.GrossProfit)-computed) / math.Abs(m.Get(models.Revenues)) * 100
			if gap > tolerancePct {
				add(m, CheckGrossProfit, fmt.Sprintf("gross profit %.0f differs from revenue - cost of revenue %.0f by %.2f%% of revenue",
					m.Get(models.GrossProfit), computed, gap))
			}
		}

		// 3. Current assets are a subset of total assets
		if len(m.Missing(models.CurrentAssets, models.Assets)) == 0 && m.Get(models.CurrentAssets) > m.Get(models.Assets) {
			add(m, CheckCurrentAssets, fmt.Sprintf("current assets %.0f exceed total assets %.0f",
				m.Get(models.CurrentAssets), m.Get(models.Assets)))
		}

		for _, f := range nonNegativeFields {
			if m.Has(f) && m.Get(f) < 0 {
				add(m, CheckNegative, fmt.Sprintf("%s is negative (%.0f)", f, m.Get(f)))
			}
		}

		// 4. Outliers against the next older period
		if i+1 < len(series) {
			prior := series[i+1]
			for _, f := range outlierFields {
				if !m.Has(f) || !prior.Has(f) {
					continue
				}
				if oc := CheckForOutlier(string(f), m.Get(f), prior.Get(f), outlierPct); oc.IsOutlier {
					add(m, CheckOutlier, oc.Reason)
				}
			}
		}
	}
	return issues
}
