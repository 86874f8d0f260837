package redflags

// RuleID names a check in the battery.
type RuleID string

const (
	RuleRisingDSO            RuleID = "rising_dso"
	RuleReceivablesOutpacing RuleID = "receivables_outpacing_revenue"
	RuleCashFlowBelowIncome  RuleID = "cash_flow_below_income"
	RuleNegativeCashFlow     RuleID = "negative_cash_flow_positive_income"
	RuleCurrentRatioDecline  RuleID = "current_ratio_decline"
	RuleInventoryOutpacing   RuleID = "inventory_outpacing_sales"
	RuleEarningsSmoothing    RuleID = "earnings_smoothing"
	RuleSoftAssetsRising     RuleID = "soft_assets_rising"
	RuleLeverageSpike        RuleID = "leverage_spike"
	RuleMarginDeterioration  RuleID = "margin_deterioration"
)

// playbookEntry is the static part of a finding; only severity, description and metrics are computed.
type playbookEntry struct {
	Category        Category
	Title           string
	Implications    []string
	Recommendations []string
}

var playbook = map[RuleID]playbookEntry{
	RuleRisingDSO: {
		Category: RevenueQuality,
		Title:    "Increasing Days Sales Outstanding (DSO)",
		Implications: []string{
			"Potential aggressive revenue recognition",
			"Customer payment issues or disputes",
			"Channel stuffing or pull-forward of sales",
			"Deteriorating customer creditworthiness",
			"Revenue may not be as high quality as reported",
		},
		Recommendations: []string{
			"Investigate accounts receivable aging schedule",
			"Review revenue recognition policies for changes",
			"Examine large or unusual transactions near period end",
			"Check for right of return provisions",
			"Verify customer acceptance and satisfaction",
		},
	},
	RuleReceivablesOutpacing: {
		Category: RevenueQuality,
		Title:    "Accounts Receivable Growing Faster Than Revenue",
		Implications: []string{
			"Revenue may be recognized before earned",
			"Collection difficulties not reflected in revenue",
			"Potential bill-and-hold transactions",
			"Sales to financially weak customers",
			"Channel stuffing or trade loading",
		},
		Recommendations: []string{
			"Scrutinize revenue recognition methodology",
			"Review allowance for doubtful accounts adequacy",
			"Investigate customer concentration",
			"Examine fourth quarter revenue patterns",
			"Check for side letters or unusual contract terms",
		},
	},
	RuleCashFlowBelowIncome: {
		Category: EarningsQuality,
		Title:    "Operating Cash Flow Significantly Below Net Income",
		Implications: []string{
			"Earnings heavily dependent on accruals",
			"Potential aggressive accounting policies",
			"Revenue or earnings manipulation possible",
			"Working capital deterioration",
			"Lower quality of reported earnings",
		},
		Recommendations: []string{
			"Analyze components of accruals",
			"Review working capital changes in detail",
			"Investigate revenue recognition practices",
			"Examine large non-cash charges",
			"Compare to industry peers",
		},
	},
	RuleNegativeCashFlow: {
		Category: EarningsQuality,
		Title:    "Negative Operating Cash Flow Despite Positive Earnings",
		Implications: []string{
			"Severe earnings quality concern",
			"Business model may be unsustainable",
			"Aggressive revenue recognition",
			"Working capital management issues",
			"High risk of financial distress",
		},
		Recommendations: []string{
			"Immediate detailed cash flow analysis required",
			"Review all accrual accounting policies",
			"Assess business model sustainability",
			"Examine liquidity and going concern",
			"Compare with direct competitors",
		},
	},
	RuleCurrentRatioDecline: {
		Category: Liquidity,
		Title:    "Deteriorating Current Ratio",
		Implications: []string{
			"Declining liquidity position",
			"Potential difficulty meeting short-term obligations",
			"Working capital management issues",
			"May indicate financial stress",
		},
		Recommendations: []string{
			"Review working capital management policies",
			"Assess debt maturity schedule",
			"Evaluate cash conversion cycle",
			"Check for off-balance sheet obligations",
		},
	},
	RuleInventoryOutpacing: {
		Category: AssetQuality,
		Title:    "Inventory Growing Faster Than Sales",
		Implications: []string{
			"Potential inventory obsolescence",
			"Overproduction or demand forecasting errors",
			"Future inventory write-downs possible",
			"Inadequate inventory reserves",
			"Inefficient supply chain management",
		},
		Recommendations: []string{
			"Review inventory aging and turnover ratios",
			"Assess inventory reserve adequacy",
			"Investigate industry demand trends",
			"Check for changes in product mix",
			"Examine inventory costing methods",
		},
	},
	RuleEarningsSmoothing: {
		Category: EarningsQuality,
		Title:    "Potential Earnings Smoothing",
		Implications: []string{
			"Potential use of discretionary accruals",
			"Cookie jar reserves being used",
			"Earnings management to meet targets",
			"Reduced earnings informativeness",
		},
		Recommendations: []string{
			"Analyze discretionary accruals patterns",
			"Review reserve account activity",
			"Check for restructuring charges patterns",
			"Compare volatility to industry peers",
		},
	},
	RuleSoftAssetsRising: {
		Category: AssetQuality,
		Title:    "Increasing Proportion of Intangible/Soft Assets",
		Implications: []string{
			"Greater reliance on subjective valuations",
			"Increased impairment risk",
			"Asset values may be overstated",
			"Lower tangible asset backing",
			"Potential for aggressive capitalization",
		},
		Recommendations: []string{
			"Review intangible asset composition",
			"Assess goodwill impairment testing methodology",
			"Examine capitalized costs (software, R&D, etc.)",
			"Check deferred tax assets realizability",
			"Compare asset quality to peers",
		},
	},
	RuleLeverageSpike: {
		Category: FinancialRisk,
		Title:    "Rapidly Increasing Leverage",
		Implications: []string{
			"Increased financial risk",
			"Pressure to meet debt covenant requirements",
			"Incentive to manipulate earnings or assets",
			"Reduced financial flexibility",
			"Higher probability of financial distress",
		},
		Recommendations: []string{
			"Review debt covenants and compliance",
			"Assess interest coverage ratios",
			"Examine debt maturity schedule",
			"Check for off-balance sheet financing",
			"Evaluate refinancing risk",
		},
	},
	RuleMarginDeterioration: {
		Category: Profitability,
		Title:    "Deteriorating Gross Margins",
		Implications: []string{
			"Weakening competitive position",
			"Pricing pressure or cost increases",
			"Increased motivation to manipulate earnings",
			"May indicate business model stress",
			"Future profitability concerns",
		},
		Recommendations: []string{
			"Analyze cause of margin deterioration",
			"Compare to industry and competitors",
			"Review cost structure and efficiency",
			"Assess pricing power",
			"Examine product mix changes",
		},
	},
}

// newFinding fills the static fields from the playbook. Lists are copied so callers cannot
// mutate the shared table through a finding.
func newFinding(rule RuleID, severity Severity, description string, metrics map[string]float64) Finding {
	entry := playbook[rule]
	return Finding{
		Rule:            rule,
		Category:        entry.Category,
		Severity:        severity,
		Title:           entry.Title,
		Description:     description,
		Metrics:         metrics,
		Implications:    append([]string(nil), entry.Implications...),
		Recommendations: append([]string(nil), entry.Recommendations...),
	}
}
