package redflags

import (
	"forensic_accounting/pkg/models"
)

// Rule thresholds. Percentages are in percent units, not fractions.
const (
	DSOChangePct        = 10.0 // DSO growth that fires the rule
	DSOChangeHighPct    = 20.0 // above this the finding is High
	ReceivablesGapPct   = 15.0 // AR growth minus revenue growth
	CashToIncomeMin     = 0.8  // operating CF / net income
	CashToIncomeFloor   = 0.5  // below this the finding is Critical
	CurrentRatioDropPct = -15.0
	CurrentRatioCeiling = 1.5
	InventoryGapPct     = 10.0 // inventory growth minus revenue growth
	InventoryGrowthPct  = 15.0
	SmoothingCashCVMin  = 0.3
	SmoothingCVRatio    = 0.5 // net income CV must stay below this share of cash flow CV
	SoftAssetRisePts    = 5.0
	SoftAssetFloorPct   = 20.0
	LeverageRisePct     = 20.0
	LeverageFloor       = 1.5
	MarginDropPts       = -5.0
	MarginHighDropPts   = -10.0

	// Earnings smoothing needs at least this many periods and looks at no more than smoothingWindow.
	smoothingMinPeriods = 3
	smoothingWindow     = 5
)

type check struct {
	minPeriods int
	run        func(s models.Series) []Finding
}

// battery runs in this order; findings keep it.
var battery = []check{
	{2, revenueQuality},
	{1, cashFlowQuality},
	{2, workingCapital},
	{smoothingMinPeriods, earningsQuality},
	{2, assetQuality},
	{2, debtTrends},
	{2, margins},
}

// Analyze runs every check over a newest-first series.
// Each call builds its own result; fewer than two periods yields an empty list.
// Rules are independent and may fire together on the same underlying movement.
func Analyze(series models.Series) []Finding {
	findings := make([]Finding, 0)
	if len(series) < 2 {
		return findings
	}

	for _, c := range battery {
		if len(series) < c.minPeriods {
			continue
		}
		findings = append(findings, c.run(series)...)
	}
	return findings
}
