// Package report renders pipeline results for people: Markdown, HTML, JSON and a console summary.
package report

import (
	"fmt"
	"sort"
	"strings"

	"forensic_accounting/pkg/core/calc"
	"forensic_accounting/pkg/core/forensic"
	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/models"
)

// Markdown renders the full forensic report.
func Markdown(r *pipeline.Result) string {
	b := &mdBuilder{r: r, a: r.Assessment, info: r.Company}
	if b.info == nil {
		b.info = &models.CompanyInfo{Name: "Unknown"}
	}

	sections := []func(*strings.Builder){
		b.cover,
		b.executiveSummary,
		b.companyOverview,
		b.beneish,
		b.redFlagSummary,
		b.trends,
		b.detailedFindings,
		b.recommendations,
		b.methodology,
		b.limitations,
	}

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		var sb strings.Builder
		s(&sb)
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

type mdBuilder struct {
	r    *pipeline.Result
	a    *forensic.Assessment
	info *models.CompanyInfo
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (b *mdBuilder) cover(sb *strings.Builder) {
	fmt.Fprintf(sb, "# FORENSIC ACCOUNTING REPORT\n\n")
	fmt.Fprintf(sb, "## %s\n### Ticker: %s\n\n---\n\n", orDefault(b.info.Name, "Unknown Company"), b.r.Ticker())
	fmt.Fprintf(sb, "**Report Type:** Forensic Accounting Assessment (accounting policy aggressiveness)\n\n")
	fmt.Fprintf(sb, "**Report Date:** %s\n\n", b.r.GeneratedAt.Format("January 2, 2006"))
	fmt.Fprintf(sb, "**Analysis Period:** %d years of annual financial statements\n\n", b.a.Periods)
	fmt.Fprintf(sb, "**Run ID:** `%s`\n\n---\n\n", b.r.RunID)
	fmt.Fprintf(sb, "## OVERALL ASSESSMENT\n\n")
	fmt.Fprintf(sb, "**Risk Level:** `%s`\n\n", b.a.RiskLevel)
	fmt.Fprintf(sb, "**Risk Score:** %d/100\n\n", b.a.RiskScore)
	fmt.Fprintf(sb, "**Recommendation:** %s\n\n---\n", b.a.Recommendation)
}

func (b *mdBuilder) executiveSummary(sb *strings.Builder) {
	a := b.a
	total := len(a.RedFlags)
	critical := a.SeverityCounts[redflags.Critical]
	high := a.SeverityCounts[redflags.High]

	latest, latestNote := "N/A", "Insufficient data"
	if len(a.BeneishScores) > 0 {
		m := a.BeneishScores[0].MScore
		latest = fmt.Sprintf("%.3f", m)
		latestNote = "Below threshold"
		if m > calc.ManipulationThreshold {
			latestNote = "**Above threshold** (high manipulation risk)"
		}
	}

	fmt.Fprintf(sb, "## EXECUTIVE SUMMARY\n\n")
	fmt.Fprintf(sb, "This analysis examines the financial reporting quality of **%s** (%s) "+
		"to gauge how aggressive its accounting is and where earnings may be managed.\n\n",
		orDefault(b.info.Name, "the Company"), b.r.Ticker())
	fmt.Fprintf(sb, "### Key Findings\n\n**Overall Risk Assessment:** %s\n\n", a.RiskLevel)

	fmt.Fprintf(sb, "### Critical Metrics\n\n")
	fmt.Fprintf(sb, "| Metric | Value | Interpretation |\n|--------|-------|----------------|\n")
	fmt.Fprintf(sb, "| **Beneish M-Score (Latest)** | %s | %s |\n", latest, latestNote)
	fmt.Fprintf(sb, "| **Total Red Flags Identified** | %d | %s |\n", total, flagCountNote(total))
	fmt.Fprintf(sb, "| **Critical Severity Flags** | %d | %s |\n", critical, ifAny(critical, "**Immediate attention required**"))
	fmt.Fprintf(sb, "| **High Severity Flags** | %d | %s |\n", high, ifAny(high, "**Significant concerns**"))
	fmt.Fprintf(sb, "| **Overall Risk Score** | %d/100 | %s |\n\n", a.RiskScore, a.RiskLevel)

	fmt.Fprintf(sb, "### Primary Concerns\n\n")
	if len(a.RiskFactors) == 0 {
		fmt.Fprintf(sb, "No significant concerns identified.\n")
	}
	for i, f := range a.RiskFactors {
		if i == 5 {
			break
		}
		fmt.Fprintf(sb, "%d. %s\n", i+1, f)
	}
	fmt.Fprintf(sb, "\n### Recommendation\n\n%s\n", a.Recommendation)
}

func flagCountNote(n int) string {
	switch {
	case n == 0:
		return "Clean financial reporting"
	case n <= 3:
		return "Some areas warrant attention"
	case n <= 6:
		return "Multiple concerning areas"
	default:
		return "Significant concerns across multiple areas"
	}
}

func ifAny(n int, note string) string {
	if n > 0 {
		return note
	}
	return "None identified"
}

func (b *mdBuilder) companyOverview(sb *strings.Builder) {
	fmt.Fprintf(sb, "## COMPANY OVERVIEW\n\n")
	fmt.Fprintf(sb, "**Legal Name:** %s\n\n", orDefault(b.info.Name, "Unknown"))
	fmt.Fprintf(sb, "**Stock Ticker:** %s\n\n", b.r.Ticker())
	fmt.Fprintf(sb, "**CIK (SEC Identifier):** %s\n\n", orDefault(b.info.CIK, "Unknown"))
	fmt.Fprintf(sb, "**Industry:** %s\n\n", orDefault(b.info.SICDescription, "Unknown"))
	fmt.Fprintf(sb, "**SIC Code:** %s\n\n", orDefault(b.info.SIC, "Unknown"))
	if len(b.r.Series) > 0 {
		fmt.Fprintf(sb, "**Fiscal Years Covered:** %s to %s\n\n",
			b.r.Series[len(b.r.Series)-1].Label(), b.r.Series[0].Label())
	}
	fmt.Fprintf(sb, "**Data Source:** SEC EDGAR XBRL company facts (10-K and 10-K/A filings)\n\n")

	fmt.Fprintf(sb, "### Data Quality Checks\n\n")
	if len(b.r.DataQuality) == 0 {
		fmt.Fprintf(sb, "All integrity checks passed.\n\n---\n")
		return
	}
	fmt.Fprintf(sb, "| Period | Check | Detail |\n|--------|-------|--------|\n")
	for _, is := range b.r.DataQuality {
		fmt.Fprintf(sb, "| %s | %s | %s |\n", is.Period, is.Check, is.Message)
	}
	fmt.Fprintf(sb, "\n---\n")
}

func (b *mdBuilder) beneish(sb *strings.Builder) {
	a := b.a
	fmt.Fprintf(sb, "## BENEISH M-SCORE ANALYSIS\n\n")
	fmt.Fprintf(sb, "The Beneish M-Score combines eight financial ratio indices into a single probit score "+
		"that separates earnings manipulators from non-manipulators.\n\n")
	fmt.Fprintf(sb, "**Interpretation Thresholds:**\n")
	fmt.Fprintf(sb, "- Score > -1.78: Very High Risk\n- Score > -2.22: High Risk\n")
	fmt.Fprintf(sb, "- Score > -2.50: Moderate Risk\n- Otherwise: Low Risk\n\n")
	fmt.Fprintf(sb, "### Historical M-Scores\n\n")

	if len(a.BeneishScores) == 0 {
		fmt.Fprintf(sb, "*Insufficient data to calculate Beneish M-Scores.*\n")
		b.skipped(sb)
		return
	}

	fmt.Fprintf(sb, "| Period | Compared To | M-Score | Risk Level | Status |\n")
	fmt.Fprintf(sb, "|--------|-------------|---------|------------|--------|\n")
	for _, s := range a.BeneishScores {
		status := "Non-manipulator"
		if s.Interpretation.IsLikelyManipulator {
			status = "**MANIPULATOR**"
		}
		fmt.Fprintf(sb, "| %s | %s | %.3f | %s | %s |\n",
			s.Period, s.ComparisonTo, s.MScore, s.Interpretation.RiskLevel, status)
	}
	b.skipped(sb)

	if t := a.Trends.MScore; t != nil {
		fmt.Fprintf(sb, "\n### M-Score Trend\n\n")
		if t.IsDeteriorating {
			fmt.Fprintf(sb, "**DETERIORATING**: the M-Score moved from %.3f to %.3f (%+.3f). "+
				"Accounting policies are becoming more aggressive over time.\n", t.Oldest, t.Latest, t.Change)
		} else {
			fmt.Fprintf(sb, "**IMPROVING**: the M-Score moved from %.3f to %.3f (%+.3f), "+
				"consistent with more conservative accounting.\n", t.Oldest, t.Latest, t.Change)
		}
	}

	latest := a.BeneishScores[0]
	fmt.Fprintf(sb, "\n### Detailed Variable Analysis (Latest Period)\n\n")
	fmt.Fprintf(sb, "| Variable | Value | Threshold | Status |\n|----------|-------|-----------|--------|\n")
	for _, rule := range calc.VariableRules {
		v := latest.Variables.Value(rule.Variable)
		status := "Normal"
		if v > rule.Threshold {
			status = "**Concerning**"
		}
		fmt.Fprintf(sb, "| %s | %.3f | %.3f | %s |\n", rule.Variable, v, rule.Threshold, status)
	}

	if len(latest.VariableFlags) > 0 {
		fmt.Fprintf(sb, "\n### Red Flags from Variable Analysis\n\n")
		for _, f := range latest.VariableFlags {
			fmt.Fprintf(sb, "#### %s: %s\n\n", f.Variable, f.Concern)
			fmt.Fprintf(sb, "**Value:** %.3f (Threshold: %.3f)\n\n**Implications:**\n", f.Value, f.Threshold)
			for _, impl := range f.Implications {
				fmt.Fprintf(sb, "- %s\n", impl)
			}
			fmt.Fprintf(sb, "\n")
		}
	}
	fmt.Fprintf(sb, "\n---\n")
}

func (b *mdBuilder) skipped(sb *strings.Builder) {
	if len(b.a.Skipped) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n**Periods not scored:**\n\n")
	for _, s := range b.a.Skipped {
		fmt.Fprintf(sb, "- %s vs %s: %s\n", s.Period, s.ComparisonTo, s.Reason)
	}
}

func (b *mdBuilder) redFlagSummary(sb *strings.Builder) {
	a := b.a
	fmt.Fprintf(sb, "## RED FLAG ANALYSIS\n\n")
	fmt.Fprintf(sb, "Red flags come from trends, ratios and quality metrics across the statements.\n\n")
	if len(a.RedFlags) == 0 {
		fmt.Fprintf(sb, "*No significant red flags identified.*\n")
		return
	}

	actions := map[redflags.Severity]string{
		redflags.Critical: "Immediate investigation",
		redflags.High:     "Detailed review",
		redflags.Medium:   "Enhanced monitoring",
		redflags.Low:      "Standard due diligence",
	}
	fmt.Fprintf(sb, "### Red Flag Summary\n\n| Severity | Count | Requires Action |\n|----------|-------|-----------------|\n")
	for _, s := range redflags.AllSeverities {
		fmt.Fprintf(sb, "| %s | %d | %s |\n", s, a.SeverityCounts[s], actions[s])
	}

	type catCount struct {
		cat redflags.Category
		n   int
	}
	var cats []catCount
	for _, c := range redflags.AllCategories {
		if n := a.CategoryCounts[c]; n > 0 {
			cats = append(cats, catCount{c, n})
		}
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].n > cats[j].n })

	fmt.Fprintf(sb, "\n### Red Flags by Category\n\n")
	for _, c := range cats {
		fmt.Fprintf(sb, "- **%s**: %d finding(s)\n", c.cat, c.n)
	}
	fmt.Fprintf(sb, "\n---\n")
}

func (b *mdBuilder) trends(sb *strings.Builder) {
	t := b.a.Trends
	fmt.Fprintf(sb, "## TREND ANALYSIS\n\n")
	if t.RevenueGrowth == nil && t.ProfitMargin == nil && t.CashFlowQuality == nil {
		fmt.Fprintf(sb, "*Not enough history for trend indicators.*\n\n---\n")
		return
	}

	if g := t.RevenueGrowth; g != nil {
		direction := "Decelerating"
		if g.IsAccelerating {
			direction = "Accelerating"
		}
		fmt.Fprintf(sb, "### Revenue Growth\n\n")
		fmt.Fprintf(sb, "- **Latest Growth Rate:** %.1f%%\n- **Average Growth Rate:** %.1f%%\n- **Trend:** %s\n\n",
			g.LatestRatePct, g.AverageRatePct, direction)
	}

	if m := t.ProfitMargin; m != nil {
		direction := "Deteriorating"
		if m.IsImproving {
			direction = "Improving"
		}
		fmt.Fprintf(sb, "### Profit Margins\n\n")
		fmt.Fprintf(sb, "- **Latest Margin:** %.1f%%\n- **Average Margin:** %.1f%%\n- **Trend:** %s\n\n",
			m.LatestPct, m.AveragePct, direction)
	}

	if c := t.CashFlowQuality; c != nil {
		fmt.Fprintf(sb, "### Cash Flow Quality\n\n")
		fmt.Fprintf(sb, "- **Operating CF / Net Income Ratio:** %.2f\n- **Assessment:** %s\n\n",
			c.CashToIncome, cashQualityNote(c.CashToIncome))
	}
	fmt.Fprintf(sb, "---\n")
}

func cashQualityNote(ratio float64) string {
	switch {
	case ratio > 1.0:
		return "**Excellent** (cash generation exceeds reported earnings)"
	case ratio > 0.8:
		return "**Good** (cash closely tracks earnings)"
	case ratio > 0.5:
		return "**Moderate Concern** (earnings not fully converting to cash)"
	default:
		return "**Serious Concern** (significant gap between earnings and cash)"
	}
}

func (b *mdBuilder) detailedFindings(sb *strings.Builder) {
	fmt.Fprintf(sb, "## DETAILED FINDINGS\n\n")
	if len(b.a.RedFlags) == 0 {
		fmt.Fprintf(sb, "*No red flags to detail.*\n")
		return
	}

	n := 1
	for _, sev := range redflags.AllSeverities {
		var group []redflags.Finding
		for _, f := range b.a.RedFlags {
			if f.Severity == sev {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(sb, "### %s Severity Findings\n\n", sev)
		for _, f := range group {
			fmt.Fprintf(sb, "#### Finding #%d: %s\n\n", n, f.Title)
			fmt.Fprintf(sb, "**Category:** %s\n\n**Description:** %s\n\n", f.Category, f.Description)

			if len(f.Metrics) > 0 {
				names := make([]string, 0, len(f.Metrics))
				for k := range f.Metrics {
					names = append(names, k)
				}
				sort.Strings(names)
				fmt.Fprintf(sb, "**Key Metrics:**\n\n| Metric | Value |\n|--------|-------|\n")
				for _, k := range names {
					fmt.Fprintf(sb, "| %s | %s |\n", k, formatNumber(f.Metrics[k]))
				}
				fmt.Fprintf(sb, "\n")
			}
			writeList(sb, "**Implications:**", f.Implications)
			writeList(sb, "**Recommended Actions:**", f.Recommendations)
			fmt.Fprintf(sb, "---\n\n")
			n++
		}
	}
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	fmt.Fprintf(sb, "\n")
}

// formatNumber prints with two decimals and thousands separators.
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	if neg {
		return "-" + out.String() + frac
	}
	return out.String() + frac
}

var immediateActions = map[models.RiskLevel]string{
	models.RiskVeryHigh: elevatedActions,
	models.RiskHigh:     elevatedActions,
	models.RiskModerate: `1. **Targeted Investigation**
   - Focus detailed testing on the areas with red flags
   - Ask management to explain the concerning trends
   - Review accounting policy disclosures in detail

2. **Enhanced Monitoring**
   - Track the key risk indicators quarterly
   - Watch for accounting policy changes
`,
	models.RiskLow: `1. **Standard Due Diligence**
   - Maintain normal review procedures
   - Review significant accounting policy changes

2. **Periodic Reassessment**
   - Repeat the forensic analysis annually
   - Monitor industry and peer trends
`,
}

const elevatedActions = `1. **Initiate a Detailed Forensic Investigation**
   - Engage external forensic accounting specialists
   - Test revenue recognition practices in detail
   - Review management compensation structures and incentives

2. **Enhanced Due Diligence**
   - Obtain sub-ledger data for the suspicious accounts
   - Review Audit Committee minutes
   - Discuss accounting policy choices with management

3. **Independent Verification**
   - Confirm major transactions with counterparties
   - Contact major customers and suppliers independently
`

func (b *mdBuilder) recommendations(sb *strings.Builder) {
	fmt.Fprintf(sb, "## RECOMMENDATIONS\n\n")
	fmt.Fprintf(sb, "Given the %s risk assessment:\n\n### Immediate Actions\n\n", b.a.RiskLevel)
	fmt.Fprintf(sb, "%s\n", immediateActions[b.a.RiskLevel])
	fmt.Fprintf(sb, "### Ongoing Monitoring\n\n")
	fmt.Fprintf(sb, "- **Beneish M-Score**: recompute with each filing and track the trend\n")
	fmt.Fprintf(sb, "- **Cash Flow Quality**: monitor operating cash flow against net income\n")
	fmt.Fprintf(sb, "- **Working Capital**: track DSO, inventory and payables\n")
	fmt.Fprintf(sb, "- **Accounting Policy Changes**: assess the impact of every change\n\n---\n")
}

func (b *mdBuilder) methodology(sb *strings.Builder) {
	fmt.Fprintf(sb, "## METHODOLOGY\n\n")
	fmt.Fprintf(sb, "### Data Sources\n\n")
	fmt.Fprintf(sb, "- **Primary Source:** SEC EDGAR XBRL company facts\n")
	fmt.Fprintf(sb, "- **Filing Types:** 10-K, 10-K/A\n- **Periods:** %d fiscal years\n\n", b.a.Periods)

	fmt.Fprintf(sb, "### Beneish M-Score\n\n")
	fmt.Fprintf(sb, "M = %.2f + %.3f·DSRI + %.3f·GMI + %.3f·AQI + %.3f·SGI + %.3f·DEPI %.3f·SGAI + %.3f·TATA %.3f·LVGI\n\n",
		calc.Coefficients.Intercept, calc.Coefficients.DSRI, calc.Coefficients.GMI, calc.Coefficients.AQI,
		calc.Coefficients.SGI, calc.Coefficients.DEPI, calc.Coefficients.SGAI, calc.Coefficients.TATA,
		calc.Coefficients.LVGI)
	fmt.Fprintf(sb, "Scores above %.2f classify as likely manipulators.\n\n", calc.ManipulationThreshold)

	fmt.Fprintf(sb, "### Red Flag Battery\n\n")
	for _, c := range redflags.AllCategories {
		fmt.Fprintf(sb, "- %s\n", c)
	}

	fmt.Fprintf(sb, "\n### Risk Score\n\n")
	fmt.Fprintf(sb, "| Component | Points |\n|-----------|--------|\n")
	fmt.Fprintf(sb, "| Latest M-Score very high / high / moderate | %d / %d / %d |\n",
		forensic.WeightMScoreVeryHigh, forensic.WeightMScoreHigh, forensic.WeightMScoreModerate)
	fmt.Fprintf(sb, "| Deteriorating M-Score trend | %d |\n", forensic.WeightDeteriorating)
	fmt.Fprintf(sb, "| Each critical / high red flag | %d / %d |\n", forensic.WeightCritical, forensic.WeightHigh)
	fmt.Fprintf(sb, "| More than two medium red flags | %d |\n", forensic.WeightManyMedium)
	fmt.Fprintf(sb, "| Weak cash conversion | %d |\n", forensic.WeightCashFlow)
	fmt.Fprintf(sb, "| Thin, non-improving net margin | %d |\n\n", forensic.WeightMargins)
	fmt.Fprintf(sb, "Levels: %d+ VERY HIGH, %d+ HIGH, %d+ MODERATE, otherwise LOW.\n\n---\n",
		forensic.VeryHighFloor, forensic.HighFloor, forensic.ModerateFloor)
}

func (b *mdBuilder) limitations(sb *strings.Builder) {
	fmt.Fprintf(sb, "## LIMITATIONS AND DISCLAIMERS\n\n")
	fmt.Fprintf(sb, "1. **Public information only.** The analysis relies on XBRL facts filed with the SEC.\n")
	fmt.Fprintf(sb, "2. **Historical data.** Past statements do not predict future manipulation.\n")
	fmt.Fprintf(sb, "3. **Model accuracy.** The M-Score misclassifies a meaningful share of companies in both directions.\n")
	fmt.Fprintf(sb, "4. **SG&A estimate.** XBRL facts rarely carry SG&A directly, so SGAI uses an estimate "+
		"(gross profit less operating income, or a fixed share of revenue). Treat SGAI as indicative.\n")
	fmt.Fprintf(sb, "5. **Industry context.** Normal ranges differ by industry and business model.\n")
	if b.a.Diagnostics.Benford.TotalCount > 0 {
		fmt.Fprintf(sb, "6. **Benford diagnostic.** First-digit conformity (%s, MAD %.4f over %d values) is informational only.\n",
			b.a.Diagnostics.Benford.Level, b.a.Diagnostics.Benford.MAD, b.a.Diagnostics.Benford.TotalCount)
	}
	fmt.Fprintf(sb, "\nThis report is a screening tool, not an audit. Findings need review by qualified professionals.\n\n")
	fmt.Fprintf(sb, "---\n\n*Generated %s*\n", b.r.GeneratedAt.Format("January 2, 2006 at 15:04 MST"))
}
