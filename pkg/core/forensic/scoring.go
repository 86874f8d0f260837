package forensic

import (
	"fmt"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/models"
)

// Risk score weights. Contributions stack; the score is not capped.
const (
	WeightMScoreVeryHigh = 40
	WeightMScoreHigh     = 25
	WeightMScoreModerate = 10
	WeightDeteriorating  = 15
	WeightCritical       = 15 // per finding
	WeightHigh           = 8  // per finding
	WeightManyMedium     = 10 // once, when more than mediumAllowance
	WeightCashFlow       = 15
	WeightMargins        = 10

	mediumAllowance = 2
	lowMarginPct    = 5.0
)

// Lower bounds of each overall tier, inclusive.
const (
	ModerateFloor = 20
	HighFloor     = 40
	VeryHighFloor = 60
)

var recommendations = map[models.RiskLevel]string{
	models.RiskVeryHigh: "Immediate forensic investigation recommended. Multiple severe indicators of potential manipulation.",
	models.RiskHigh:     "Detailed forensic review strongly recommended. Significant red flags present.",
	models.RiskModerate: "Enhanced monitoring and targeted investigation of specific areas recommended.",
	models.RiskLow:      "Financial reporting appears within normal parameters. Standard due diligence appropriate.",
}

// RiskLevelFor maps a summed risk score onto the four tiers.
func RiskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= VeryHighFloor:
		return models.RiskVeryHigh
	case score >= HighFloor:
		return models.RiskHigh
	case score >= ModerateFloor:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// Recommendation is the fixed guidance attached to a tier.
func Recommendation(level models.RiskLevel) string {
	return recommendations[level]
}

// scoreRisk sums every applicable contribution and names each one in factors.
func scoreRisk(scores []calc.BeneishResult, findings []redflags.Finding, trends Trends) (int, []string) {
	score := 0
	factors := make([]string, 0)

	if len(scores) > 0 {
		switch calc.MScoreTier(scores[0].MScore) {
		case models.RiskVeryHigh:
			score += WeightMScoreVeryHigh
			factors = append(factors, "Very high Beneish M-Score indicating likely manipulation")
		case models.RiskHigh:
			score += WeightMScoreHigh
			factors = append(factors, "Elevated Beneish M-Score above manipulation threshold")
		case models.RiskModerate:
			score += WeightMScoreModerate
			factors = append(factors, "Moderately elevated Beneish M-Score")
		}
	}

	if trends.MScore != nil && trends.MScore.IsDeteriorating {
		score += WeightDeteriorating
		factors = append(factors, "Beneish M-Score deteriorating over time")
	}

	counts := redflags.CountBySeverity(findings)
	if n := counts[redflags.Critical]; n > 0 {
		score += n * WeightCritical
		factors = append(factors, fmt.Sprintf("%d critical red flag(s) detected", n))
	}
	if n := counts[redflags.High]; n > 0 {
		score += n * WeightHigh
		factors = append(factors, fmt.Sprintf("%d high severity red flag(s) detected", n))
	}
	if n := counts[redflags.Medium]; n > mediumAllowance {
		score += WeightManyMedium
		factors = append(factors, fmt.Sprintf("Multiple (%d) medium severity red flags", n))
	}

	if cf := trends.CashFlowQuality; cf != nil && !cf.IsHealthy {
		score += WeightCashFlow
		factors = append(factors, "Poor cash flow quality (CF significantly below earnings)")
	}

	if pm := trends.ProfitMargin; pm != nil && !pm.IsImproving && pm.LatestPct < lowMarginPct {
		score += WeightMargins
		factors = append(factors, "Deteriorating or low profit margins")
	}

	return score, factors
}
