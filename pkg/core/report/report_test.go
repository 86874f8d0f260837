package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/utils"
	"forensic_accounting/pkg/models"
)

type vals = map[models.Field]float64

func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()
	series := models.Series{
		models.NewAnnualMetrics("2024-12-31", "10-K", vals{
			models.Revenues: 1200, models.CostOfRevenue: 720, models.OperatingIncome: 240,
			models.AccountsReceivable: 200, models.Assets: 2400, models.CurrentAssets: 800,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1300, models.NetIncome: 120, models.OperatingCashFlow: 50,
		}),
		models.NewAnnualMetrics("2023-12-31", "10-K", vals{
			models.Revenues: 1100, models.CostOfRevenue: 660, models.OperatingIncome: 220,
			models.AccountsReceivable: 140, models.Assets: 2200, models.CurrentAssets: 850,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1150, models.NetIncome: 110, models.OperatingCashFlow: 45,
		}),
		models.NewAnnualMetrics("2022-12-31", "10-K", vals{
			models.Revenues: 1000, models.CostOfRevenue: 600, models.OperatingIncome: 200,
			models.AccountsReceivable: 100, models.Assets: 2000, models.CurrentAssets: 900,
			models.PropertyPlantEquipment: 800, models.DepreciationAndAmortization: 80,
			models.Liabilities: 1000, models.NetIncome: 100, models.OperatingCashFlow: 40,
		}),
	}
	info := &models.CompanyInfo{Ticker: "acme", CIK: "0000000042", Name: "Acme Widgets Inc", SIC: "3590"}

	r, err := pipeline.NewRunner(nil, nil).RunForSeries(context.Background(), info, series)
	require.NoError(t, err)
	r.GeneratedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return r
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(sampleResult(t))

	for _, heading := range []string{
		"# FORENSIC ACCOUNTING REPORT",
		"## EXECUTIVE SUMMARY",
		"## COMPANY OVERVIEW",
		"## BENEISH M-SCORE ANALYSIS",
		"## RED FLAG ANALYSIS",
		"## TREND ANALYSIS",
		"## DETAILED FINDINGS",
		"## RECOMMENDATIONS",
		"## METHODOLOGY",
		"## LIMITATIONS AND DISCLAIMERS",
	} {
		assert.Contains(t, md, heading+"\n")
	}
	assert.Equal(t, 1, utils.HeadingCount(md, 1))
	assert.Equal(t, 11, utils.HeadingCount(md, 2))

	assert.Contains(t, md, "### Ticker: ACME")
	assert.Contains(t, md, "**Risk Level:** `VERY HIGH`")
	assert.Contains(t, md, "**Risk Score:** 71/100")
	assert.Contains(t, md, "**Report Date:** March 1, 2025")
	assert.Contains(t, md, "| 2024-12-31 | 2023-12-31 | -1.855 | HIGH | **MANIPULATOR** |")
	assert.Contains(t, md, "Increasing Days Sales Outstanding (DSO)")
	assert.Contains(t, md, "**SG&A estimate.**")
	assert.Contains(t, md, "**Industry:** Unknown")
	assert.Contains(t, md, "All integrity checks passed.")
	assert.Contains(t, md, "1. **Initiate a Detailed Forensic Investigation**")
}

func TestMarkdownWithoutScores(t *testing.T) {
	r := sampleResult(t)
	r.Assessment.BeneishScores = nil
	r.Assessment.RedFlags = nil
	md := Markdown(r)

	assert.Contains(t, md, "*Insufficient data to calculate Beneish M-Scores.*")
	assert.Contains(t, md, "*No significant red flags identified.*")
	assert.Contains(t, md, "*No red flags to detail.*")
	assert.Contains(t, md, "| **Beneish M-Score (Latest)** | N/A |")
}

func TestHTMLTagsSeverityAndRiskCells(t *testing.T) {
	page, err := HTML(sampleResult(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Forensic Accounting Report: ACME</title>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	assert.True(t, doc.Find("body").HasClass("risk-very-high"))
	assert.Equal(t, 1, doc.Find("td.severity-critical").Length())
	assert.Equal(t, 1, doc.Find("td.risk-high").Length())
	assert.Equal(t, 2, doc.Find("td.risk-very-high").Length())
	assert.Equal(t, 1, doc.Find("code.risk-very-high").Length())
	assert.Greater(t, doc.Find("table").Length(), 3)
}

func TestJSON(t *testing.T) {
	r := sampleResult(t)
	data, err := JSON(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, r.RunID.String(), m["run_id"])
	assert.Contains(t, string(data), "\n  \"assessment\": {")
}

func TestSave(t *testing.T) {
	r := sampleResult(t)
	dir := filepath.Join(t.TempDir(), "reports")

	for format, name := range map[string]string{
		FormatText:     "ACME_20250301_093000.txt",
		FormatMarkdown: "ACME_20250301_093000.md",
		"md":           "ACME_20250301_093000.md",
		FormatJSON:     "ACME_20250301_093000.json",
		FormatHTML:     "ACME_20250301_093000.html",
	} {
		path, err := Save(r, format, dir)
		require.NoError(t, err, format)
		assert.Equal(t, filepath.Join(dir, name), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}

	_, err := Save(r, "pdf", dir)
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	out := Text(sampleResult(t))
	assert.Contains(t, out, "FORENSIC ACCOUNTING ANALYSIS: ACME")
	assert.Contains(t, out, "Risk Level: VERY HIGH")
	assert.Contains(t, out, "2024-12-31:  -1.855  HIGH")
	assert.Contains(t, out, "Red Flags: 4 (1 critical, 2 high, 1 medium, 0 low)")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.89", formatNumber(1234567.891))
	assert.Equal(t, "-1,000.00", formatNumber(-1000))
	assert.Equal(t, "12.50", formatNumber(12.5))
}
