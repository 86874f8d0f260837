package calc

import (
	"errors"
	"fmt"
	"strings"

	"forensic_accounting/pkg/models"
)

// ErrMissingFields matches any *MissingFieldsError via errors.Is.
var ErrMissingFields = errors.New("missing required fields")

// MissingFieldsError lists every absent input, qualified by year ("current.Assets").
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}

// Fields that must be reported in both years of a Beneish comparison.
var beneishBothYears = []models.Field{
	models.Revenues,
	models.CostOfRevenue,
	models.AccountsReceivable,
	models.Assets,
	models.CurrentAssets,
	models.PropertyPlantEquipment,
	models.DepreciationAndAmortization,
	models.Liabilities,
}

// TATA only looks at the current year.
var beneishCurrentOnly = []models.Field{
	models.NetIncome,
	models.OperatingCashFlow,
}

// =============================================================================
// MODEL CONSTANTS (Beneish 1999, 8-variable model)
// =============================================================================

// BeneishCoefficients holds the published weights of the linear model.
type BeneishCoefficients struct {
	Intercept, DSRI, GMI, AQI, SGI, DEPI, SGAI, TATA, LVGI float64
}

// Coefficients must not drift from the published values.
var Coefficients = BeneishCoefficients{
	Intercept: -4.84,
	DSRI:      0.920,
	GMI:       0.528,
	AQI:       0.404,
	SGI:       0.892,
	DEPI:      0.115,
	SGAI:      -0.172,
	TATA:      4.679,
	LVGI:      -0.327,
}

const (
	// ManipulationThreshold is the 8-variable cut-off; scores above it classify as likely manipulators.
	ManipulationThreshold = -2.22

	veryHighCutoff = -1.78
	moderateCutoff = -2.50

	// Fallback SG&A ratio when the income statement cannot support an estimate.
	sgaRevenueFallback = 0.20
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// BeneishIndices holds the 8 variables of the model.
type BeneishIndices struct {
	DSRI float64 `json:"DSRI"` // Days Sales in Receivables Index
	GMI  float64 `json:"GMI"`  // Gross Margin Index
	AQI  float64 `json:"AQI"`  // Asset Quality Index
	SGI  float64 `json:"SGI"`  // Sales Growth Index
	DEPI float64 `json:"DEPI"` // Depreciation Index
	SGAI float64 `json:"SGAI"` // SG&A Expenses Index
	LVGI float64 `json:"LVGI"` // Leverage Index
	TATA float64 `json:"TATA"` // Total Accruals to Total Assets
}

// Value looks an index up by its short name. Unknown names return 0.
func (b BeneishIndices) Value(name string) float64 {
	switch name {
	case "DSRI":
		return b.DSRI
	case "GMI":
		return b.GMI
	case "AQI":
		return b.AQI
	case "SGI":
		return b.SGI
	case "DEPI":
		return b.DEPI
	case "SGAI":
		return b.SGAI
	case "LVGI":
		return b.LVGI
	case "TATA":
		return b.TATA
	}
	return 0
}

// Interpretation places an M-Score on the risk scale.
type Interpretation struct {
	Score               float64          `json:"score"`
	Threshold           float64          `json:"threshold"`
	IsLikelyManipulator bool             `json:"is_likely_manipulator"`
	RiskLevel           models.RiskLevel `json:"risk_level"`
	Text                string           `json:"interpretation"`
}

// VariableFlag is one index above its individual threshold.
type VariableFlag struct {
	Variable     string   `json:"variable"`
	Value        float64  `json:"value"`
	Threshold    float64  `json:"threshold"`
	Concern      string   `json:"concern"`
	Implications []string `json:"implications"`
}

// BeneishResult is the outcome for one (current, prior) pair.
type BeneishResult struct {
	Period         string         `json:"period"`
	ComparisonTo   string         `json:"comparison_to"`
	MScore         float64        `json:"m_score"`
	Variables      BeneishIndices `json:"variables"`
	Interpretation Interpretation `json:"interpretation"`
	VariableFlags  []VariableFlag `json:"variable_flags"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateBeneish computes the M-Score of current against prior.
// Missing inputs are reported together; zero denominators fall back to neutral index values.
func CalculateBeneish(current, prior models.AnnualMetrics) (*BeneishResult, error) {
	var missing []string
	for _, f := range current.Missing(beneishBothYears...) {
		missing = append(missing, "current."+string(f))
	}
	for _, f := range current.Missing(beneishCurrentOnly...) {
		missing = append(missing, "current."+string(f))
	}
	for _, f := range prior.Missing(beneishBothYears...) {
		missing = append(missing, "prior."+string(f))
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	salesCurr := current.Get(models.Revenues)
	salesPrior := prior.Get(models.Revenues)

	idx := BeneishIndices{
		DSRI: DSRI(current.Get(models.AccountsReceivable), salesCurr,
			prior.Get(models.AccountsReceivable), salesPrior),
		GMI: GMI(salesCurr, current.Get(models.CostOfRevenue),
			salesPrior, prior.Get(models.CostOfRevenue)),
		AQI: AQI(current.Get(models.Assets), current.Get(models.CurrentAssets), current.Get(models.PropertyPlantEquipment),
			prior.Get(models.Assets), prior.Get(models.CurrentAssets), prior.Get(models.PropertyPlantEquipment)),
		SGI: SGI(salesCurr, salesPrior),
		DEPI: DEPI(current.Get(models.DepreciationAndAmortization), current.Get(models.PropertyPlantEquipment),
			prior.Get(models.DepreciationAndAmortization), prior.Get(models.PropertyPlantEquipment)),
		SGAI: SGAI(EstimateSGA(current), salesCurr, EstimateSGA(prior), salesPrior),
		LVGI: LVGI(current.Get(models.Liabilities), current.Get(models.Assets),
			prior.Get(models.Liabilities), prior.Get(models.Assets)),
		TATA: TATA(current.Get(models.NetIncome), current.Get(models.OperatingCashFlow), current.Get(models.Assets)),
	}

	score := MScore(idx)

	return &BeneishResult{
		Period:         current.Label(),
		ComparisonTo:   prior.Label(),
		MScore:         score,
		Variables:      idx,
		Interpretation: InterpretMScore(score),
		VariableFlags:  FlagVariables(idx),
	}, nil
}

// MScore applies the linear model.
func MScore(i BeneishIndices) float64 {
	c := Coefficients
	return c.Intercept +
		c.DSRI*i.DSRI +
		c.GMI*i.GMI +
		c.AQI*i.AQI +
		c.SGI*i.SGI +
		c.DEPI*i.DEPI +
		c.SGAI*i.SGAI +
		c.TATA*i.TATA +
		c.LVGI*i.LVGI
}

// EstimateSGA derives SG&A as gross profit less operating income.
// Filers rarely tag SG&A consistently, so when revenue or COGS cannot support that
// derivation it falls back to 20% of revenue. The fallback materially moves SGAI.
func EstimateSGA(m models.AnnualMetrics) float64 {
	revenues := m.Get(models.Revenues)
	cogs := m.Get(models.CostOfRevenue)

	if revenues > 0 && cogs >= 0 {
		sga := revenues - cogs - m.Get(models.OperatingIncome)
		if sga < 0 {
			return 0
		}
		return sga
	}
	return revenues * sgaRevenueFallback
}

// =============================================================================
// INDICES
// Each returns the neutral value (1.0, or 0.0 for TATA) when a denominator is zero.
// =============================================================================

// DSRI: (AR_t / Sales_t) / (AR_t-1 / Sales_t-1)
func DSRI(arCurr, salesCurr, arPrior, salesPrior float64) float64 {
	if salesCurr == 0 || salesPrior == 0 {
		return 1.0
	}
	dsrPrior := arPrior / salesPrior
	if dsrPrior == 0 {
		return 1.0
	}
	return (arCurr / salesCurr) / dsrPrior
}

// GMI: GrossMargin_t-1 / GrossMargin_t. Above 1 means margins deteriorated.
func GMI(salesCurr, cogsCurr, salesPrior, cogsPrior float64) float64 {
	if salesCurr == 0 || salesPrior == 0 {
		return 1.0
	}
	gmCurr := (salesCurr - cogsCurr) / salesCurr
	if gmCurr == 0 {
		return 1.0
	}
	gmPrior := (salesPrior - cogsPrior) / salesPrior
	return gmPrior / gmCurr
}

// AQI compares the share of "soft" assets (neither current nor PP&E) across years.
func AQI(assetsCurr, caCurr, ppeCurr, assetsPrior, caPrior, ppePrior float64) float64 {
	if assetsCurr == 0 || assetsPrior == 0 {
		return 1.0
	}
	softPrior := 1.0 - (caPrior+ppePrior)/assetsPrior
	if softPrior == 0 {
		return 1.0
	}
	softCurr := 1.0 - (caCurr+ppeCurr)/assetsCurr
	return softCurr / softPrior
}

// SGI: Sales_t / Sales_t-1
func SGI(salesCurr, salesPrior float64) float64 {
	if salesPrior == 0 {
		return 1.0
	}
	return salesCurr / salesPrior
}

// DEPI: DepRate_t-1 / DepRate_t with DepRate = Dep / (Dep + Net PP&E).
// Above 1 means depreciation slowed, which lifts income.
func DEPI(depCurr, ppeCurr, depPrior, ppePrior float64) float64 {
	baseCurr := depCurr + ppeCurr
	basePrior := depPrior + ppePrior
	if baseCurr == 0 || basePrior == 0 {
		return 1.0
	}
	rateCurr := depCurr / baseCurr
	if rateCurr == 0 {
		return 1.0
	}
	return (depPrior / basePrior) / rateCurr
}

// SGAI: (SGA_t / Sales_t) / (SGA_t-1 / Sales_t-1)
func SGAI(sgaCurr, salesCurr, sgaPrior, salesPrior float64) float64 {
	if salesCurr == 0 || salesPrior == 0 {
		return 1.0
	}
	ratioPrior := sgaPrior / salesPrior
	if ratioPrior == 0 {
		return 1.0
	}
	return (sgaCurr / salesCurr) / ratioPrior
}

// LVGI: (Debt_t / Assets_t) / (Debt_t-1 / Assets_t-1), debt being total liabilities.
func LVGI(debtCurr, assetsCurr, debtPrior, assetsPrior float64) float64 {
	if assetsCurr == 0 || assetsPrior == 0 {
		return 1.0
	}
	levPrior := debtPrior / assetsPrior
	if levPrior == 0 {
		return 1.0
	}
	return (debtCurr / assetsCurr) / levPrior
}

// TATA: (Net Income_t - Operating Cash Flow_t) / Total Assets_t
func TATA(netIncome, operatingCF, assets float64) float64 {
	if assets == 0 {
		return 0.0
	}
	return (netIncome - operatingCF) / assets
}

// =============================================================================
// INTERPRETATION
// =============================================================================

var interpretationText = map[models.RiskLevel]string{
	models.RiskVeryHigh: "Strong indication of earnings manipulation. Immediate investigation recommended.",
	models.RiskHigh:     "Significant red flags present. Detailed forensic review warranted.",
	models.RiskModerate: "Some concerning signals. Monitor closely and investigate specific areas.",
	models.RiskLow:      "Financial reporting appears within normal parameters.",
}

// MScoreTier maps a score to its risk tier.
func MScoreTier(score float64) models.RiskLevel {
	switch {
	case score > veryHighCutoff:
		return models.RiskVeryHigh
	case score > ManipulationThreshold:
		return models.RiskHigh
	case score > moderateCutoff:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// InterpretMScore describes a score against the published thresholds.
func InterpretMScore(score float64) Interpretation {
	tier := MScoreTier(score)
	return Interpretation{
		Score:               score,
		Threshold:           ManipulationThreshold,
		IsLikelyManipulator: score > ManipulationThreshold,
		RiskLevel:           tier,
		Text:                interpretationText[tier],
	}
}

// VariableRule is one row of the per-variable threshold table.
type VariableRule struct {
	Variable     string
	Threshold    float64
	Concern      string
	Implications []string
}

// VariableRules are the empirical per-variable cut-offs, in reporting order.
var VariableRules = []VariableRule{
	{
		Variable:  "DSRI",
		Threshold: 1.031,
		Concern:   "Days Sales in Receivables increasing faster than sales",
		Implications: []string{
			"Potential revenue inflation",
			"Aggressive credit policies",
			"Channel stuffing",
			"Difficulties collecting receivables",
		},
	},
	{
		Variable:  "GMI",
		Threshold: 1.014,
		Concern:   "Gross margins deteriorating",
		Implications: []string{
			"Weakening competitive position",
			"Increased pressure to manipulate earnings",
			"Cost control issues",
			"Pricing pressure",
		},
	},
	{
		Variable:  "AQI",
		Threshold: 1.039,
		Concern:   "Increasing proportion of soft assets",
		Implications: []string{
			"Greater reliance on intangible/deferred assets",
			"Potential asset capitalization issues",
			"Easier to manipulate asset values",
			"Reduced asset quality",
		},
	},
	{
		Variable:  "SGI",
		Threshold: 1.134,
		Concern:   "Rapid sales growth",
		Implications: []string{
			"Pressure to maintain growth trajectory",
			"Incentive to inflate revenues",
			"Growth companies under scrutiny",
			"May be unsustainable",
		},
	},
	{
		Variable:  "DEPI",
		Threshold: 1.001,
		Concern:   "Depreciation rate slowing",
		Implications: []string{
			"Potential manipulation of depreciation assumptions",
			"Extending asset useful lives",
			"Inflating earnings by reducing expenses",
			"Assets may be overvalued",
		},
	},
	{
		Variable:  "SGAI",
		Threshold: 1.001,
		Concern:   "SG&A expenses growing faster than sales",
		Implications: []string{
			"Operational inefficiency",
			"Declining prospects",
			"Increased pressure to manipulate",
			"Cost structure issues",
		},
	},
	{
		Variable:  "TATA",
		Threshold: 0.018,
		Concern:   "High total accruals relative to assets",
		Implications: []string{
			"Earnings not supported by cash flow",
			"Aggressive accrual accounting",
			"Potential earnings manipulation",
			"Quality of earnings concern",
		},
	},
	{
		Variable:  "LVGI",
		Threshold: 1.037,
		Concern:   "Increasing financial leverage",
		Implications: []string{
			"Pressure to meet debt covenants",
			"Incentive to manipulate earnings",
			"Reduced financial flexibility",
			"Increased financial risk",
		},
	},
}

// FlagVariables returns a flag for each index strictly above its threshold.
func FlagVariables(idx BeneishIndices) []VariableFlag {
	flags := make([]VariableFlag, 0)
	for _, rule := range VariableRules {
		v := idx.Value(rule.Variable)
		if v > rule.Threshold {
			flags = append(flags, VariableFlag{
				Variable:     rule.Variable,
				Value:        v,
				Threshold:    rule.Threshold,
				Concern:      rule.Concern,
				Implications: append([]string(nil), rule.Implications...),
			})
		}
	}
	return flags
}
