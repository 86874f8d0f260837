package forensic

import (
	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/models"
)

const (
	trendWindow     = 3
	healthyCashFlow = 0.8
)

func analyzeTrends(series models.Series, scores []calc.BeneishResult) Trends {
	return Trends{
		MScore:          mScoreTrend(scores),
		RevenueGrowth:   revenueGrowthTrend(series),
		ProfitMargin:    profitMarginTrend(series),
		CashFlowQuality: cashFlowQuality(series),
	}
}

// mScoreTrend: a higher latest score is more manipulation-like, hence worsening.
func mScoreTrend(scores []calc.BeneishResult) *MScoreTrend {
	if len(scores) < 2 {
		return nil
	}
	latest := scores[0].MScore
	oldest := scores[len(scores)-1].MScore

	t := &MScoreTrend{
		Direction:       DirectionImproving,
		Latest:          latest,
		Oldest:          oldest,
		Change:          latest - oldest,
		IsDeteriorating: latest > oldest,
	}
	if t.IsDeteriorating {
		t.Direction = DirectionWorsening
	}
	return t
}

// revenueGrowthTrend needs positive revenue in each of the latest three periods.
func revenueGrowthTrend(series models.Series) *RevenueGrowthTrend {
	if len(series) < trendWindow {
		return nil
	}
	revenues := make([]float64, 0, trendWindow)
	for _, m := range series[:trendWindow] {
		rev := m.Get(models.Revenues)
		if rev <= 0 {
			return nil
		}
		revenues = append(revenues, rev)
	}

	growth := make([]float64, 0, len(revenues)-1)
	for i := 0; i < len(revenues)-1; i++ {
		growth = append(growth, calc.PercentChange(revenues[i], revenues[i+1]))
	}

	return &RevenueGrowthTrend{
		LatestRatePct:  growth[0],
		AverageRatePct: calc.Mean(growth),
		IsAccelerating: len(growth) >= 2 && growth[0] > growth[len(growth)-1],
	}
}

// profitMarginTrend skips periods without revenue; present as long as one period qualifies.
func profitMarginTrend(series models.Series) *ProfitMarginTrend {
	if len(series) < trendWindow {
		return nil
	}
	var margins []float64
	for _, m := range series[:trendWindow] {
		rev := m.Get(models.Revenues)
		if rev > 0 {
			margins = append(margins, calc.NetMarginPct(m.Get(models.NetIncome), rev))
		}
	}
	if len(margins) == 0 {
		return nil
	}

	return &ProfitMarginTrend{
		LatestPct:   margins[0],
		AveragePct:  calc.Mean(margins),
		IsImproving: len(margins) >= 2 && margins[0] > margins[len(margins)-1],
	}
}

// cashFlowQuality is undefined for a loss-making latest year.
func cashFlowQuality(series models.Series) *CashFlowQuality {
	if len(series) < 2 {
		return nil
	}
	latest := series[0]
	ni := latest.Get(models.NetIncome)
	if ni <= 0 {
		return nil
	}
	ratio := latest.Get(models.OperatingCashFlow) / ni
	return &CashFlowQuality{CashToIncome: ratio, IsHealthy: ratio > healthyCashFlow}
}
