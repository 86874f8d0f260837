// Package forensic runs the Beneish model and the red-flag battery across an annual series
// and folds the results into a single weighted risk assessment.
package forensic

import (
	"context"
	"fmt"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/models"
)

// Analyzer holds no state; one value can serve concurrent assessments.
type Analyzer struct{}

// NewAnalyzer creates a new instance of the analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Assess analyzes a newest-first series. Fewer than two periods is an error.
// A year pair whose M-Score cannot be computed is recorded in Skipped and the run continues.
func (a *Analyzer) Assess(ctx context.Context, series models.Series) (*Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("forensic assessment: %w", err)
	}

	op := logger.StartOperation(ctx, "forensic.assess", "periods", len(series), "latest", series[0].Label())
	ctx = op.Context()

	// 1. Beneish M-Score for each consecutive pair
	scores, skipped := a.beneishScores(ctx, series)
	logger.Debug(ctx, "Beneish scores computed", "pairs", len(series)-1, "computed", len(scores), "skipped", len(skipped))

	// 2. Red flags over the whole series
	findings := redflags.Analyze(series)
	severity := redflags.CountBySeverity(findings)
	logger.Debug(ctx, "Red flags analyzed",
		"total", len(findings),
		"critical", severity[redflags.Critical],
		"high", severity[redflags.High],
		"medium", severity[redflags.Medium])

	// 3. Trends
	trends := analyzeTrends(series, scores)

	// 4. Overall assessment
	score, factors := scoreRisk(scores, findings, trends)
	level := RiskLevelFor(score)

	result := &Assessment{
		Periods:        len(series),
		BeneishScores:  scores,
		Skipped:        skipped,
		RedFlags:       findings,
		Trends:         trends,
		RiskScore:      score,
		RiskLevel:      level,
		Recommendation: Recommendation(level),
		RiskFactors:    factors,
		SeverityCounts: severity,
		CategoryCounts: redflags.CountByCategory(findings),
		Diagnostics: Diagnostics{
			Benford: calc.AnalyzeBenfordsLaw(series.Values()),
		},
	}

	logger.Assessment(ctx, series[0].Label(), level.String(), score,
		"red_flags", len(findings),
		"trends", trends.Count(),
		"skipped_pairs", len(skipped))
	op.End("risk_score", score)

	return result, nil
}

func (a *Analyzer) beneishScores(ctx context.Context, series models.Series) ([]calc.BeneishResult, []SkippedPeriod) {
	scores := make([]calc.BeneishResult, 0, len(series)-1)
	skipped := make([]SkippedPeriod, 0)

	for i := 0; i < len(series)-1; i++ {
		current, prior := series[i], series[i+1]

		res, err := calc.CalculateBeneish(current, prior)
		if err != nil {
			skipped = append(skipped, SkippedPeriod{
				Index:        i,
				Period:       current.Label(),
				ComparisonTo: prior.Label(),
				Reason:       err.Error(),
			})
			logger.Skip(ctx, "beneish_pair", err.Error(), "index", i, "period", current.Label(), "comparison_to", prior.Label())
			continue
		}
		scores = append(scores, *res)
	}
	return scores, skipped
}
