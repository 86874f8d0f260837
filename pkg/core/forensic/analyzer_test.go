package forensic

import (
	"context"
	"errors"
	"testing"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vals = map[models.Field]float64

func year(end string, v vals) models.AnnualMetrics {
	return models.NewAnnualMetrics(end, "10-K", v)
}

// deteriorating is three years with receivables running ahead of sales, a growing share of
// soft assets and operating cash flow under half of net income.
func deteriorating() models.Series {
	return models.Series{
		year("2024-12-31", vals{
			models.Revenues: 1200, models.CostOfRevenue: 720, models.OperatingIncome: 240,
			models.AccountsReceivable: 200, models.Assets: 2400, models.CurrentAssets: 800,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1300, models.NetIncome: 120, models.OperatingCashFlow: 50,
		}),
		year("2023-12-31", vals{
			models.Revenues: 1100, models.CostOfRevenue: 660, models.OperatingIncome: 220,
			models.AccountsReceivable: 140, models.Assets: 2200, models.CurrentAssets: 850,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1150, models.NetIncome: 110, models.OperatingCashFlow: 45,
		}),
		year("2022-12-31", vals{
			models.Revenues: 1000, models.CostOfRevenue: 600, models.OperatingIncome: 200,
			models.AccountsReceivable: 100, models.Assets: 2000, models.CurrentAssets: 900,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1000, models.NetIncome: 100, models.OperatingCashFlow: 40,
		}),
	}
}

func TestAssessDeterioratingCompany(t *testing.T) {
	a, err := NewAnalyzer().Assess(context.Background(), deteriorating())
	require.NoError(t, err)

	assert.Equal(t, 3, a.Periods)
	require.Len(t, a.BeneishScores, 2)
	assert.Empty(t, a.Skipped)
	assert.Equal(t, "2024-12-31", a.BeneishScores[0].Period)
	assert.Equal(t, "2023-12-31", a.BeneishScores[0].ComparisonTo)
	assert.InDelta(t, -1.8548575122341422, a.BeneishScores[0].MScore, 1e-9)
	assert.InDelta(t, -1.7471780303030302, a.BeneishScores[1].MScore, 1e-9)

	rules := make([]redflags.RuleID, 0, len(a.RedFlags))
	for _, f := range a.RedFlags {
		rules = append(rules, f.Rule)
	}
	assert.Equal(t, []redflags.RuleID{
		redflags.RuleRisingDSO,
		redflags.RuleReceivablesOutpacing,
		redflags.RuleCashFlowBelowIncome,
		redflags.RuleSoftAssetsRising,
	}, rules)
	assert.GreaterOrEqual(t, len(a.CategoryCounts), 3)

	// Elevated M-Score 25 + one Critical 15 + two High 16 + poor cash flow 15.
	assert.Equal(t, 71, a.RiskScore)
	assert.Equal(t, models.RiskVeryHigh, a.RiskLevel)
	assert.Equal(t, Recommendation(models.RiskVeryHigh), a.Recommendation)
	assert.Equal(t, []string{
		"Elevated Beneish M-Score above manipulation threshold",
		"1 critical red flag(s) detected",
		"2 high severity red flag(s) detected",
		"Poor cash flow quality (CF significantly below earnings)",
	}, a.RiskFactors)

	require.NotNil(t, a.Trends.MScore)
	assert.Equal(t, DirectionImproving, a.Trends.MScore.Direction)
	assert.False(t, a.Trends.MScore.IsDeteriorating)
	assert.InDelta(t, -1.8548575122341422-(-1.7471780303030302), a.Trends.MScore.Change, 1e-9)

	require.NotNil(t, a.Trends.RevenueGrowth)
	assert.InDelta(t, 100.0/11, a.Trends.RevenueGrowth.LatestRatePct, 1e-9)
	assert.InDelta(t, (100.0/11+10)/2, a.Trends.RevenueGrowth.AverageRatePct, 1e-9)
	assert.False(t, a.Trends.RevenueGrowth.IsAccelerating)

	require.NotNil(t, a.Trends.ProfitMargin)
	assert.InDelta(t, 10.0, a.Trends.ProfitMargin.LatestPct, 1e-9)

	require.NotNil(t, a.Trends.CashFlowQuality)
	assert.InDelta(t, 50.0/120, a.Trends.CashFlowQuality.CashToIncome, 1e-12)
	assert.False(t, a.Trends.CashFlowQuality.IsHealthy)

	assert.Equal(t, 4, a.Trends.Count())
	assert.Equal(t, 3, a.SeverityCounts[redflags.Critical]+a.SeverityCounts[redflags.High])
}

func TestAssessSkipsBrokenPair(t *testing.T) {
	full := func(end string, scale float64) models.AnnualMetrics {
		return year(end, vals{
			models.Revenues: 1000 * scale, models.CostOfRevenue: 600 * scale, models.OperatingIncome: 200 * scale,
			models.AccountsReceivable: 100 * scale, models.Assets: 2000 * scale, models.CurrentAssets: 800 * scale,
			models.PropertyPlantEquipment: 700 * scale, models.DepreciationAndAmortization: 70 * scale,
			models.Liabilities: 1000 * scale, models.NetIncome: 100 * scale, models.OperatingCashFlow: 120 * scale,
		})
	}
	broken := full("2023-12-31", 1.1).Values()
	delete(broken, models.OperatingCashFlow)

	series := models.Series{
		full("2024-12-31", 1.2),
		year("2023-12-31", broken),
		full("2022-12-31", 1.0),
		full("2021-12-31", 0.9),
	}

	a, err := NewAnalyzer().Assess(context.Background(), series)
	require.NoError(t, err)

	require.Len(t, a.BeneishScores, 2)
	assert.Equal(t, "2024-12-31", a.BeneishScores[0].Period)
	assert.Equal(t, "2022-12-31", a.BeneishScores[1].Period)

	require.Len(t, a.Skipped, 1)
	skip := a.Skipped[0]
	assert.Equal(t, 1, skip.Index)
	assert.Equal(t, "2023-12-31", skip.Period)
	assert.Equal(t, "2022-12-31", skip.ComparisonTo)
	assert.Contains(t, skip.Reason, "current.OperatingCashFlow")
}

func TestAssessNeedsTwoPeriods(t *testing.T) {
	_, err := NewAnalyzer().Assess(context.Background(), deteriorating()[:1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientHistory))

	_, err = NewAnalyzer().Assess(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestAssessHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer().Assess(ctx, deteriorating())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssessSparseSeries(t *testing.T) {
	// Nothing Beneish can use, nothing for the rules to fire on.
	series := models.Series{
		year("2024-12-31", vals{models.Revenues: 100, models.NetIncome: -5}),
		year("2023-12-31", vals{models.Revenues: 90}),
	}
	a, err := NewAnalyzer().Assess(context.Background(), series)
	require.NoError(t, err)

	assert.Empty(t, a.BeneishScores)
	assert.Len(t, a.Skipped, 1)
	assert.Empty(t, a.RedFlags)
	assert.Zero(t, a.Trends.Count())
	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Equal(t, "Insufficient Data", a.Diagnostics.Benford.Level)
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{19, models.RiskLow},
		{20, models.RiskModerate},
		{25, models.RiskModerate},
		{39, models.RiskModerate},
		{40, models.RiskHigh},
		{45, models.RiskHigh},
		{59, models.RiskHigh},
		{60, models.RiskVeryHigh},
		{65, models.RiskVeryHigh},
		{250, models.RiskVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.score), "score %d", tt.score)
	}

	prev := RiskLevelFor(0)
	for s := 1; s <= 100; s++ {
		cur := RiskLevelFor(s)
		assert.True(t, cur.AtLeast(prev), "score %d", s)
		prev = cur
	}

	for _, level := range models.AllRiskLevels {
		assert.NotEmpty(t, Recommendation(level))
	}
}

func TestScoreRiskStacksEveryFactor(t *testing.T) {
	scores := []calc.BeneishResult{{MScore: -1.5}, {MScore: -2.6}}
	findings := []redflags.Finding{
		{Severity: redflags.Critical},
		{Severity: redflags.Critical},
		{Severity: redflags.High},
		{Severity: redflags.Medium},
		{Severity: redflags.Medium},
		{Severity: redflags.Medium},
		{Severity: redflags.Low},
	}
	trends := Trends{
		MScore:          mScoreTrend(scores),
		CashFlowQuality: &CashFlowQuality{CashToIncome: 0.3},
		ProfitMargin:    &ProfitMarginTrend{LatestPct: 2, AveragePct: 3},
	}

	score, factors := scoreRisk(scores, findings, trends)

	// 40 + 15 + 2*15 + 8 + 10 + 15 + 10
	assert.Equal(t, 128, score)
	assert.Equal(t, []string{
		"Very high Beneish M-Score indicating likely manipulation",
		"Beneish M-Score deteriorating over time",
		"2 critical red flag(s) detected",
		"1 high severity red flag(s) detected",
		"Multiple (3) medium severity red flags",
		"Poor cash flow quality (CF significantly below earnings)",
		"Deteriorating or low profit margins",
	}, factors)
	assert.Equal(t, models.RiskVeryHigh, RiskLevelFor(score))
}

func TestScoreRiskMScoreTiers(t *testing.T) {
	tests := []struct {
		mscore float64
		want   int
	}{
		{-1.0, WeightMScoreVeryHigh},
		{-2.0, WeightMScoreHigh},
		{-2.3, WeightMScoreModerate},
		{-2.5, 0},
		{-3.0, 0},
	}
	for _, tt := range tests {
		score, _ := scoreRisk([]calc.BeneishResult{{MScore: tt.mscore}}, nil, Trends{})
		assert.Equal(t, tt.want, score, "m-score %v", tt.mscore)
	}
}

func TestScoreRiskAbsentTrendsContributeNothing(t *testing.T) {
	score, factors := scoreRisk(nil, nil, Trends{})
	assert.Zero(t, score)
	assert.NotNil(t, factors)
	assert.Empty(t, factors)

	// Healthy margin trend that is low but improving does not count.
	score, _ = scoreRisk(nil, nil, Trends{ProfitMargin: &ProfitMarginTrend{LatestPct: 1, IsImproving: true}})
	assert.Zero(t, score)
}

func TestTrendGuards(t *testing.T) {
	s := deteriorating()

	assert.Nil(t, mScoreTrend([]calc.BeneishResult{{MScore: -2}}))
	assert.Nil(t, revenueGrowthTrend(s[:2]))

	noRevenue := models.Series{s[0], year("2023-12-31", vals{models.NetIncome: 5}), s[2]}
	assert.Nil(t, revenueGrowthTrend(noRevenue))

	// The period without revenue is left out of the margins, not counted as zero.
	pm := profitMarginTrend(noRevenue)
	require.NotNil(t, pm)
	assert.InDelta(t, 10.0, pm.AveragePct, 1e-9)

	assert.Nil(t, cashFlowQuality(models.Series{year("a", vals{models.NetIncome: 0}), s[1]}))
}

func TestAssessmentMapRoundTrip(t *testing.T) {
	a, err := NewAnalyzer().Assess(context.Background(), deteriorating())
	require.NoError(t, err)

	m, err := a.ToMap()
	require.NoError(t, err)
	assert.Equal(t, "VERY HIGH", m["risk_level"])
	trends, ok := m["trends"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, trends, "m_score_trend")

	back, err := FromMap(m)
	require.NoError(t, err)
	assert.Equal(t, a, back)

	m["risk_level"] = "EXTREME"
	_, err = FromMap(m)
	assert.Error(t, err)
}
