package forensic

import (
	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/models"
)

// Assessment is the aggregate forensic profile of one annual series.
type Assessment struct {
	Periods int `json:"periods"`

	// 1. Beneish M-Score per consecutive year pair, newest first
	BeneishScores []calc.BeneishResult `json:"beneish_scores"`
	Skipped       []SkippedPeriod      `json:"skipped"`

	// 2. Rule battery over the full series, in battery order
	RedFlags []redflags.Finding `json:"red_flags"`

	// 3. Trends
	Trends Trends `json:"trends"`

	// 4. Overall assessment
	RiskScore      int              `json:"risk_score"`
	RiskLevel      models.RiskLevel `json:"risk_level"`
	Recommendation string           `json:"recommendation"`
	RiskFactors    []string         `json:"risk_factors"`

	SeverityCounts map[redflags.Severity]int `json:"severity_counts"`
	CategoryCounts map[redflags.Category]int `json:"category_counts"`

	Diagnostics Diagnostics `json:"diagnostics"`
}

// SkippedPeriod records a year pair whose M-Score could not be computed.
type SkippedPeriod struct {
	Index        int    `json:"index"` // position of the current year in the series
	Period       string `json:"period"`
	ComparisonTo string `json:"comparison_to"`
	Reason       string `json:"reason"`
}

// Trends holds the multi-period indicators. A nil entry means there was not enough data.
type Trends struct {
	MScore          *MScoreTrend        `json:"m_score_trend,omitempty"`
	RevenueGrowth   *RevenueGrowthTrend `json:"revenue_growth,omitempty"`
	ProfitMargin    *ProfitMarginTrend  `json:"profit_margin,omitempty"`
	CashFlowQuality *CashFlowQuality    `json:"cash_flow_quality,omitempty"`
}

// Count is the number of trend indicators present.
func (t Trends) Count() int {
	n := 0
	if t.MScore != nil {
		n++
	}
	if t.RevenueGrowth != nil {
		n++
	}
	if t.ProfitMargin != nil {
		n++
	}
	if t.CashFlowQuality != nil {
		n++
	}
	return n
}

// MScoreTrend compares the latest M-Score with the oldest one computed.
type MScoreTrend struct {
	Direction       string  `json:"direction"` // Worsening or Improving
	Latest          float64 `json:"latest"`
	Oldest          float64 `json:"oldest"`
	Change          float64 `json:"change"`
	IsDeteriorating bool    `json:"is_deteriorating"`
}

const (
	DirectionWorsening = "Worsening"
	DirectionImproving = "Improving"
)

// RevenueGrowthTrend covers the latest three periods.
type RevenueGrowthTrend struct {
	LatestRatePct  float64 `json:"latest_rate_%"`
	AverageRatePct float64 `json:"average_rate_%"`
	IsAccelerating bool    `json:"is_accelerating"`
}

// ProfitMarginTrend is net margin over the latest three periods.
type ProfitMarginTrend struct {
	LatestPct   float64 `json:"latest_%"`
	AveragePct  float64 `json:"average_%"`
	IsImproving bool    `json:"is_improving"`
}

// CashFlowQuality is the latest operating cash flow to net income ratio.
type CashFlowQuality struct {
	CashToIncome float64 `json:"cf_to_ni_ratio"`
	IsHealthy    bool    `json:"is_healthy"`
}

// Diagnostics are informational and carry no weight in the risk score.
type Diagnostics struct {
	Benford calc.BenfordResult `json:"benford"`
}
