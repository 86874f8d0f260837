package calc

import (
	"errors"
	"testing"

	"forensic_accounting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priorYear() models.AnnualMetrics {
	return models.NewAnnualMetrics("2022-12-31", "10-K", map[models.Field]float64{
		models.Revenues:                    1000,
		models.CostOfRevenue:               600,
		models.OperatingIncome:             200,
		models.AccountsReceivable:          100,
		models.Assets:                      2000,
		models.CurrentAssets:               800,
		models.PropertyPlantEquipment:      700,
		models.DepreciationAndAmortization: 70,
		models.Liabilities:                 1000,
		models.NetIncome:                   100,
		models.OperatingCashFlow:           120,
	})
}

func currentYear() models.AnnualMetrics {
	return models.NewAnnualMetrics("2023-12-31", "10-K", map[models.Field]float64{
		models.Revenues:                    1200,
		models.CostOfRevenue:               780,
		models.OperatingIncome:             220,
		models.AccountsReceivable:          150,
		models.Assets:                      2400,
		models.CurrentAssets:               900,
		models.PropertyPlantEquipment:      800,
		models.DepreciationAndAmortization: 72,
		models.Liabilities:                 1400,
		models.NetIncome:                   150,
		models.OperatingCashFlow:           60,
	})
}

func TestCalculateBeneish(t *testing.T) {
	res, err := CalculateBeneish(currentYear(), priorYear())
	require.NoError(t, err)

	// DSRI = (150/1200) / (100/1000) = 0.125 / 0.1
	assert.InDelta(t, 1.25, res.Variables.DSRI, 1e-9)
	// GMI = 0.40 / 0.35
	assert.InDelta(t, 0.40/0.35, res.Variables.GMI, 1e-9)
	// AQI: soft share 0.25 -> 1 - 1700/2400
	assert.InDelta(t, (1-1700.0/2400)/0.25, res.Variables.AQI, 1e-9)
	assert.InDelta(t, 1.2, res.Variables.SGI, 1e-9)
	// DEPI = (70/770) / (72/872)
	assert.InDelta(t, (70.0/770)/(72.0/872), res.Variables.DEPI, 1e-9)
	// SGA estimate: 1000-600-200 = 200, 1200-780-220 = 200
	assert.InDelta(t, (200.0/1200)/(200.0/1000), res.Variables.SGAI, 1e-9)
	assert.InDelta(t, (1400.0/2400)/(1000.0/2000), res.Variables.LVGI, 1e-9)
	// TATA = (150 - 60) / 2400
	assert.InDelta(t, 0.0375, res.Variables.TATA, 1e-9)

	assert.Equal(t, "2023-12-31", res.Period)
	assert.Equal(t, "2022-12-31", res.ComparisonTo)

	// Roughly -1.7676, just above the -1.78 cut-off.
	assert.InDelta(t, -1.7676, res.MScore, 1e-3)
	assert.Equal(t, models.RiskVeryHigh, res.Interpretation.RiskLevel)
	assert.True(t, res.Interpretation.IsLikelyManipulator)
	assert.Equal(t, ManipulationThreshold, res.Interpretation.Threshold)

	var flagged []string
	for _, f := range res.VariableFlags {
		flagged = append(flagged, f.Variable)
		assert.Greater(t, f.Value, f.Threshold)
		assert.NotEmpty(t, f.Concern)
		assert.NotEmpty(t, f.Implications)
	}
	// SGAI fell, everything else breached.
	assert.Equal(t, []string{"DSRI", "GMI", "AQI", "SGI", "DEPI", "TATA", "LVGI"}, flagged)
}

func TestMScoreIsLinearCombination(t *testing.T) {
	cases := []BeneishIndices{
		{DSRI: 1, GMI: 1, AQI: 1, SGI: 1, DEPI: 1, SGAI: 1, LVGI: 1, TATA: 0},
		{DSRI: 1.465, GMI: 1.193, AQI: 1.254, SGI: 1.607, DEPI: 1.077, SGAI: 1.041, LVGI: 1.111, TATA: 0.031},
		{DSRI: 0.3, GMI: -2.5, AQI: 12, SGI: 0, DEPI: 0.5, SGAI: 7, LVGI: 0.01, TATA: -0.4},
	}
	for _, i := range cases {
		want := -4.84 + 0.92*i.DSRI + 0.528*i.GMI + 0.404*i.AQI + 0.892*i.SGI +
			0.115*i.DEPI - 0.172*i.SGAI + 4.679*i.TATA - 0.327*i.LVGI
		assert.InDelta(t, want, MScore(i), 1e-9)
	}

	res, err := CalculateBeneish(currentYear(), priorYear())
	require.NoError(t, err)
	assert.InDelta(t, MScore(res.Variables), res.MScore, 1e-9)
}

func TestNeutralIndicesOnZeroDenominators(t *testing.T) {
	prior := priorYear().Values()
	prior[models.Revenues] = 0
	prior[models.Assets] = 0
	curr := currentYear().Values()
	curr[models.Assets] = 0

	res, err := CalculateBeneish(
		models.NewAnnualMetrics("2023-12-31", "10-K", curr),
		models.NewAnnualMetrics("2022-12-31", "10-K", prior),
	)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Variables.DSRI)
	assert.Equal(t, 1.0, res.Variables.GMI)
	assert.Equal(t, 1.0, res.Variables.AQI)
	assert.Equal(t, 1.0, res.Variables.SGI)
	assert.Equal(t, 1.0, res.Variables.SGAI)
	assert.Equal(t, 1.0, res.Variables.LVGI)
	assert.Equal(t, 0.0, res.Variables.TATA)
}

func TestIndexGuards(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"DSRI prior sales zero", DSRI(10, 100, 10, 0), 1.0},
		{"DSRI prior receivables zero", DSRI(10, 100, 0, 100), 1.0},
		{"GMI current margin zero", GMI(100, 100, 100, 50), 1.0},
		{"AQI prior soft share zero", AQI(100, 50, 20, 100, 60, 40), 1.0},
		{"SGI prior sales zero", SGI(100, 0), 1.0},
		{"DEPI no depreciation base", DEPI(0, 0, 10, 90), 1.0},
		{"DEPI current rate zero", DEPI(0, 100, 10, 90), 1.0},
		{"SGAI prior ratio zero", SGAI(10, 100, 0, 100), 1.0},
		{"LVGI prior leverage zero", LVGI(50, 100, 0, 100), 1.0},
		{"TATA no assets", TATA(100, 10, 0), 0.0},
		{"SGI normal", SGI(150, 100), 1.5},
		{"DEPI normal", DEPI(10, 90, 20, 80), 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-12)
		})
	}
}

func TestCalculateBeneishReportsEveryMissingField(t *testing.T) {
	curr := currentYear().Values()
	delete(curr, models.AccountsReceivable)
	delete(curr, models.OperatingCashFlow)
	prior := priorYear().Values()
	delete(prior, models.Assets)
	// Prior-year cash flow is never used.
	delete(prior, models.OperatingCashFlow)

	_, err := CalculateBeneish(
		models.NewAnnualMetrics("2023-12-31", "10-K", curr),
		models.NewAnnualMetrics("2022-12-31", "10-K", prior),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFields))

	var mf *MissingFieldsError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, []string{
		"current.AccountsReceivable",
		"current.OperatingCashFlow",
		"prior.Assets",
	}, mf.Fields)
}

func TestInterpretMScoreBoundaries(t *testing.T) {
	tests := []struct {
		score       float64
		level       models.RiskLevel
		manipulator bool
	}{
		{-1.0, models.RiskVeryHigh, true},
		{-1.78, models.RiskHigh, true},
		{-2.0, models.RiskHigh, true},
		{-2.22, models.RiskModerate, false},
		{-2.4, models.RiskModerate, false},
		{-2.50, models.RiskLow, false},
		{-3.5, models.RiskLow, false},
	}
	for _, tt := range tests {
		got := InterpretMScore(tt.score)
		assert.Equal(t, tt.level, got.RiskLevel, "score %v", tt.score)
		assert.Equal(t, tt.manipulator, got.IsLikelyManipulator, "score %v", tt.score)
		assert.NotEmpty(t, got.Text)
	}
}

func TestEstimateSGA(t *testing.T) {
	m := func(v map[models.Field]float64) models.AnnualMetrics {
		return models.NewAnnualMetrics("2023-12-31", "10-K", v)
	}

	assert.Equal(t, 300.0, EstimateSGA(m(map[models.Field]float64{
		models.Revenues: 1000, models.CostOfRevenue: 500, models.OperatingIncome: 200,
	})))
	// Operating income above gross profit clamps to zero.
	assert.Equal(t, 0.0, EstimateSGA(m(map[models.Field]float64{
		models.Revenues: 1000, models.CostOfRevenue: 900, models.OperatingIncome: 200,
	})))
	// Negative COGS cannot support the derivation.
	assert.Equal(t, 200.0, EstimateSGA(m(map[models.Field]float64{
		models.Revenues: 1000, models.CostOfRevenue: -1,
	})))
	assert.Equal(t, 0.0, EstimateSGA(m(nil)))
}

func TestFlagVariablesThresholdsAreStrict(t *testing.T) {
	idx := BeneishIndices{DSRI: 1.031, GMI: 1.014, AQI: 1.039, SGI: 1.134, DEPI: 1.001, SGAI: 1.001, TATA: 0.018, LVGI: 1.037}
	assert.Empty(t, FlagVariables(idx))

	idx.TATA = 0.0181
	flags := FlagVariables(idx)
	require.Len(t, flags, 1)
	assert.Equal(t, "TATA", flags[0].Variable)
	assert.Equal(t, 0.018, flags[0].Threshold)
}
