package redflags

import (
	"fmt"
	"math"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/models"
)

// =============================================================================
// REVENUE QUALITY
// =============================================================================

func revenueQuality(s models.Series) []Finding {
	var out []Finding
	curr, prior := s[0], s[1]

	revCurr := curr.Get(models.Revenues)
	revPrior := prior.Get(models.Revenues)
	arCurr := curr.Get(models.AccountsReceivable)
	arPrior := prior.Get(models.AccountsReceivable)

	if revCurr > 0 && revPrior > 0 {
		dsoCurr := calc.DaysSalesOutstanding(arCurr, revCurr)
		dsoPrior := calc.DaysSalesOutstanding(arPrior, revPrior)

		if dsoPrior > 0 {
			change := calc.PercentChange(dsoCurr, dsoPrior)
			if change > DSOChangePct {
				sev := Medium
				if change > DSOChangeHighPct {
					sev = High
				}
				out = append(out, newFinding(RuleRisingDSO, sev,
					fmt.Sprintf("DSO increased by %.1f%% from %.0f to %.0f days. "+
						"Revenue is growing faster than cash collection.", change, dsoPrior, dsoCurr),
					map[string]float64{
						"DSO_Current":  dsoCurr,
						"DSO_Prior":    dsoPrior,
						"DSO_Change_%": change,
					}))
			}
		}
	}

	if revPrior > 0 && arPrior > 0 {
		revGrowth := calc.PercentChange(revCurr, revPrior)
		arGrowth := calc.PercentChange(arCurr, arPrior)

		if arGrowth > revGrowth+ReceivablesGapPct {
			out = append(out, newFinding(RuleReceivablesOutpacing, High,
				fmt.Sprintf("AR grew %.1f%% while revenue grew %.1f%%. "+
					"This divergence suggests potential revenue quality issues.", arGrowth, revGrowth),
				map[string]float64{
					"Revenue_Growth_%": revGrowth,
					"AR_Growth_%":      arGrowth,
					"Divergence_%":     arGrowth - revGrowth,
				}))
		}
	}

	return out
}

// =============================================================================
// CASH FLOW QUALITY (latest period only)
// =============================================================================

func cashFlowQuality(s models.Series) []Finding {
	var out []Finding
	curr := s[0]

	netIncome := curr.Get(models.NetIncome)
	operatingCF := curr.Get(models.OperatingCashFlow)

	if netIncome > 0 {
		ratio := operatingCF / netIncome
		if ratio < CashToIncomeMin {
			sev := High
			if ratio < CashToIncomeFloor {
				sev = Critical
			}
			out = append(out, newFinding(RuleCashFlowBelowIncome, sev,
				fmt.Sprintf("Operating cash flow is only %.1f%% of net income. "+
					"Earnings are not translating to cash.", ratio*100),
				map[string]float64{
					"Net_Income":          netIncome,
					"Operating_Cash_Flow": operatingCF,
					"CF_to_NI_Ratio":      ratio,
				}))
		}
	}

	if operatingCF < 0 && netIncome > 0 {
		out = append(out, newFinding(RuleNegativeCashFlow, Critical,
			"Company reports profit but burns cash from operations. "+
				"This is a major red flag for earnings quality.",
			map[string]float64{
				"Net_Income":          netIncome,
				"Operating_Cash_Flow": operatingCF,
			}))
	}

	return out
}

// =============================================================================
// WORKING CAPITAL
// =============================================================================

func workingCapital(s models.Series) []Finding {
	var out []Finding
	curr, prior := s[0], s[1]

	clCurr := curr.Get(models.CurrentLiabilities)
	clPrior := prior.Get(models.CurrentLiabilities)

	if clCurr > 0 && clPrior > 0 {
		ratioCurr := calc.CurrentRatio(curr.Get(models.CurrentAssets), clCurr)
		ratioPrior := calc.CurrentRatio(prior.Get(models.CurrentAssets), clPrior)

		if ratioPrior > 0 {
			change := calc.PercentChange(ratioCurr, ratioPrior)
			if change < CurrentRatioDropPct && ratioCurr < CurrentRatioCeiling {
				out = append(out, newFinding(RuleCurrentRatioDecline, High,
					fmt.Sprintf("Current ratio declined %.1f%% from %.2f to %.2f. "+
						"Liquidity is weakening.", math.Abs(change), ratioPrior, ratioCurr),
					map[string]float64{
						"Current_Ratio":       ratioCurr,
						"Prior_Current_Ratio": ratioPrior,
						"Change_%":            change,
					}))
			}
		}
	}

	revPrior := prior.Get(models.Revenues)
	invPrior := prior.Get(models.Inventory)

	if revPrior > 0 && invPrior > 0 {
		revGrowth := calc.PercentChange(curr.Get(models.Revenues), revPrior)
		invGrowth := calc.PercentChange(curr.Get(models.Inventory), invPrior)

		if invGrowth > revGrowth+InventoryGapPct && invGrowth > InventoryGrowthPct {
			out = append(out, newFinding(RuleInventoryOutpacing, Medium,
				fmt.Sprintf("Inventory grew %.1f%% while sales grew %.1f%%. "+
					"Excess inventory may indicate obsolescence or demand issues.", invGrowth, revGrowth),
				map[string]float64{
					"Inventory_Growth_%": invGrowth,
					"Revenue_Growth_%":   revGrowth,
					"Divergence_%":       invGrowth - revGrowth,
				}))
		}
	}

	return out
}

// =============================================================================
// EARNINGS QUALITY (smoothing)
// =============================================================================

// earningsQuality compares the volatility of net income with that of operating cash flow
// over the latest periods. Zero entries are treated as unreported and dropped.
func earningsQuality(s models.Series) []Finding {
	window := s
	if len(window) > smoothingWindow {
		window = window[:smoothingWindow]
	}

	var incomes, cashFlows []float64
	for _, m := range window {
		if ni := m.Get(models.NetIncome); ni != 0 {
			incomes = append(incomes, ni)
		}
		if cf := m.Get(models.OperatingCashFlow); cf != 0 {
			cashFlows = append(cashFlows, cf)
		}
	}
	if len(incomes) < smoothingMinPeriods || len(cashFlows) < smoothingMinPeriods {
		return nil
	}

	niCV, ok := calc.CoefficientOfVariation(incomes)
	if !ok {
		return nil
	}
	cfCV, ok := calc.CoefficientOfVariation(cashFlows)
	if !ok {
		return nil
	}

	if cfCV > SmoothingCashCVMin && niCV < cfCV*SmoothingCVRatio {
		ratio := 0.0
		if niCV > 0 {
			ratio = cfCV / niCV
		}
		return []Finding{newFinding(RuleEarningsSmoothing, Medium,
			"Net income is significantly less volatile than operating cash flow, "+
				"suggesting possible earnings management through smoothing.",
			map[string]float64{
				"NI_Coefficient_of_Variation": niCV,
				"CF_Coefficient_of_Variation": cfCV,
				"Ratio":                       ratio,
			})}
	}
	return nil
}

// =============================================================================
// ASSET QUALITY
// =============================================================================

func assetQuality(s models.Series) []Finding {
	curr, prior := s[0], s[1]

	assetsCurr := curr.Get(models.Assets)
	assetsPrior := prior.Get(models.Assets)
	if assetsCurr <= 0 || assetsPrior <= 0 {
		return nil
	}

	softCurr := calc.SoftAssetPct(assetsCurr, curr.Get(models.CurrentAssets), curr.Get(models.PropertyPlantEquipment))
	softPrior := calc.SoftAssetPct(assetsPrior, prior.Get(models.CurrentAssets), prior.Get(models.PropertyPlantEquipment))
	change := softCurr - softPrior

	if change > SoftAssetRisePts && softCurr > SoftAssetFloorPct {
		return []Finding{newFinding(RuleSoftAssetsRising, Medium,
			fmt.Sprintf("Soft assets (intangibles, goodwill, deferred charges) increased from "+
				"%.1f%% to %.1f%% of total assets. "+
				"These assets are more subjective and easier to manipulate.", softPrior, softCurr),
			map[string]float64{
				"Soft_Assets_%_Current": softCurr,
				"Soft_Assets_%_Prior":   softPrior,
				"Change_in_%":           change,
			})}
	}
	return nil
}

// =============================================================================
// LEVERAGE
// =============================================================================

func debtTrends(s models.Series) []Finding {
	curr, prior := s[0], s[1]

	equityCurr := curr.Get(models.StockholdersEquity)
	equityPrior := prior.Get(models.StockholdersEquity)
	if equityCurr <= 0 || equityPrior <= 0 {
		return nil
	}

	deCurr := calc.DebtToEquity(curr.Get(models.Liabilities), equityCurr)
	dePrior := calc.DebtToEquity(prior.Get(models.Liabilities), equityPrior)
	if dePrior <= 0 {
		return nil
	}

	change := calc.PercentChange(deCurr, dePrior)
	if change > LeverageRisePct && deCurr > LeverageFloor {
		return []Finding{newFinding(RuleLeverageSpike, High,
			fmt.Sprintf("Debt-to-equity ratio increased %.1f%% from %.2f to %.2f. "+
				"Rising leverage increases pressure to manipulate earnings.", change, dePrior, deCurr),
			map[string]float64{
				"Debt_to_Equity_Current": deCurr,
				"Debt_to_Equity_Prior":   dePrior,
				"Change_%":               change,
			})}
	}
	return nil
}

// =============================================================================
// MARGINS
// =============================================================================

func margins(s models.Series) []Finding {
	curr, prior := s[0], s[1]

	revCurr := curr.Get(models.Revenues)
	revPrior := prior.Get(models.Revenues)
	if revCurr <= 0 || revPrior <= 0 {
		return nil
	}

	gmCurr := calc.GrossMarginPct(revCurr, curr.Get(models.CostOfRevenue))
	gmPrior := calc.GrossMarginPct(revPrior, prior.Get(models.CostOfRevenue))
	change := gmCurr - gmPrior

	if change < MarginDropPts {
		sev := Medium
		if change < MarginHighDropPts {
			sev = High
		}
		return []Finding{newFinding(RuleMarginDeterioration, sev,
			fmt.Sprintf("Gross margin declined from %.1f%% to %.1f%% "+
				"(down %.1f percentage points). This increases pressure to manipulate earnings.",
				gmPrior, gmCurr, math.Abs(change)),
			map[string]float64{
				"Gross_Margin_%_Current": gmCurr,
				"Gross_Margin_%_Prior":   gmPrior,
				"Change_in_ppts":         change,
			})}
	}
	return nil
}
