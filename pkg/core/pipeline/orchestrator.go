// Package pipeline ties a metrics source to the forensic analyzer.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"forensic_accounting/pkg/core/forensic"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/metrics"
	"forensic_accounting/pkg/core/validate"
	"forensic_accounting/pkg/models"
)

// ErrNoSource is returned by RunForTicker when the runner was built without a source.
var ErrNoSource = errors.New("no metrics source configured")

// MetricsSource retrieves the annual series for a ticker.
// Implementations may fetch from:
// - Live SEC EDGAR companyfacts (ingest.EDGARClient)
// - Local series files (ingest.FileSource)
type MetricsSource interface {
	FetchSeries(ctx context.Context, ticker string, years int) (*models.CompanyInfo, models.Series, error)
}

// Result is one completed run.
type Result struct {
	RunID       uuid.UUID            `json:"run_id"`
	Company     *models.CompanyInfo  `json:"company"`
	Series      models.Series        `json:"series"`
	Assessment  *forensic.Assessment `json:"assessment"`
	DataQuality []validate.Issue     `json:"data_quality"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Ticker returns the company ticker, or UNKNOWN.
func (r *Result) Ticker() string {
	if r.Company == nil || r.Company.Ticker == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(r.Company.Ticker)
}

// ToMap converts the result into plain JSON values.
func (r *Result) ToMap() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode result map: %w", err)
	}
	return out, nil
}

// Runner manages the end-to-end flow: Source -> Forensic Analyzer -> Data Quality -> Metrics
type Runner struct {
	source   MetricsSource
	analyzer *forensic.Analyzer
	recorder *metrics.Recorder
	now      func() time.Time
}

// NewRunner creates a runner. source may be nil when only RunForSeries is used;
// recorder may be nil to disable metrics.
func NewRunner(source MetricsSource, recorder *metrics.Recorder) *Runner {
	return &Runner{
		source:   source,
		analyzer: forensic.NewAnalyzer(),
		recorder: recorder,
		now:      time.Now,
	}
}

// RunForTicker fetches up to years annual periods for ticker and assesses them.
// Source failures end the run.
func (p *Runner) RunForTicker(ctx context.Context, ticker string, years int) (*Result, error) {
	if p.source == nil {
		return nil, ErrNoSource
	}

	op := logger.StartOperation(ctx, "pipeline.run_ticker", "ticker", ticker, "years", years)
	ctx = op.Context()

	info, series, err := p.source.FetchSeries(ctx, ticker, years)
	if err != nil {
		err = fmt.Errorf("fetch %s: %w", strings.ToUpper(ticker), err)
		op.EndWithError(err)
		return nil, err
	}

	result, err := p.assess(ctx, info, series, op.Elapsed)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	op.End("run_id", result.RunID.String())
	return result, nil
}

// RunForSeries assesses an already loaded series.
func (p *Runner) RunForSeries(ctx context.Context, info *models.CompanyInfo, series models.Series) (*Result, error) {
	start := p.now()
	return p.assess(ctx, info, series, func() time.Duration { return p.now().Sub(start) })
}

// assess runs the analyzer and data-quality checks. elapsed measures the whole run,
// so ticker runs include the fetch.
func (p *Runner) assess(ctx context.Context, info *models.CompanyInfo, series models.Series, elapsed func() time.Duration) (*Result, error) {
	if info == nil {
		info = &models.CompanyInfo{Name: "Unknown"}
	}

	assessment, err := p.analyzer.Assess(ctx, series)
	if err != nil {
		return nil, fmt.Errorf("assess %s: %w", info.Ticker, err)
	}
	p.recorder.ObserveAssessment(assessment, elapsed())

	if logger.IsDebugEnabled() {
		for _, f := range assessment.RedFlags {
			logger.Debug(ctx, "Red flag", "ticker", info.Ticker, "rule", string(f.Rule),
				"category", f.Category.String(), "severity", f.Severity.String())
		}
	}

	// Integrity problems are reported alongside the assessment, not fixed.
	issues := validate.CheckSeries(series, validate.DefaultTolerancePct, validate.DefaultOutlierPct)
	for _, is := range issues {
		logger.Warn(ctx, "Data quality issue", "ticker", info.Ticker, "period", is.Period, "check", is.Check, "detail", is.Message)
	}
	if issues == nil {
		issues = []validate.Issue{}
	}

	result := &Result{
		RunID:       uuid.New(),
		Company:     info,
		Series:      series,
		Assessment:  assessment,
		DataQuality: issues,
		GeneratedAt: p.now().UTC(),
	}

	logger.Info(ctx, "Forensic run complete",
		"run_id", result.RunID.String(),
		"ticker", info.Ticker,
		"risk_level", assessment.RiskLevel.String(),
		"risk_score", assessment.RiskScore)
	return result, nil
}
