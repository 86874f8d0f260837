package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/redflags"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatHTML     = "html"
)

var extensions = map[string]string{
	FormatText:     "txt",
	FormatMarkdown: "md",
	FormatJSON:     "json",
	FormatHTML:     "html",
}

// JSON is the indented plain-map form of the result.
func JSON(r *pipeline.Result) ([]byte, error) {
	m, err := r.ToMap()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// Render produces the report in the requested format.
func Render(r *pipeline.Result, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return []byte(Text(r)), nil
	case FormatMarkdown, "md":
		return []byte(Markdown(r)), nil
	case FormatJSON:
		return JSON(r)
	case FormatHTML:
		page, err := HTML(r)
		return []byte(page), err
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

// Save writes the report to dir as <TICKER>_<timestamp>.<ext> and returns the path.
func Save(r *pipeline.Result, format, dir string) (string, error) {
	format = strings.ToLower(format)
	if format == "md" {
		format = FormatMarkdown
	}
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("unsupported report format %q", format)
	}

	data, err := Render(r, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", r.Ticker(), r.GeneratedAt.Format("20060102_150405"), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Text is the console summary.
func Text(r *pipeline.Result) string {
	a := r.Assessment
	var sb strings.Builder
	line := strings.Repeat("=", 70)

	fmt.Fprintf(&sb, "%s\nFORENSIC ACCOUNTING ANALYSIS: %s\n%s\n\n", line, r.Ticker(), line)
	if r.Company != nil {
		fmt.Fprintf(&sb, "Company:  %s\n", r.Company.Name)
		if r.Company.SICDescription != "" {
			fmt.Fprintf(&sb, "Industry: %s\n", r.Company.SICDescription)
		}
	}
	fmt.Fprintf(&sb, "Periods:  %d\n\n", a.Periods)

	fmt.Fprintf(&sb, "Risk Level: %s\nRisk Score: %d/100\n\n", a.RiskLevel, a.RiskScore)

	fmt.Fprintf(&sb, "Beneish M-Scores:\n")
	if len(a.BeneishScores) == 0 {
		fmt.Fprintf(&sb, "  (none computed)\n")
	}
	for _, s := range a.BeneishScores {
		fmt.Fprintf(&sb, "  %s: %7.3f  %s\n", s.Period, s.MScore, s.Interpretation.RiskLevel)
	}
	for _, s := range a.Skipped {
		fmt.Fprintf(&sb, "  %s: skipped (%s)\n", s.Period, s.Reason)
	}

	fmt.Fprintf(&sb, "\nRed Flags: %d (", len(a.RedFlags))
	for i, sev := range redflags.AllSeverities {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d %s", a.SeverityCounts[sev], strings.ToLower(sev.String()))
	}
	sb.WriteString(")\n")
	for _, f := range a.RedFlags {
		fmt.Fprintf(&sb, "  [%s] %s\n", f.Severity, f.Title)
	}

	if len(a.RiskFactors) > 0 {
		fmt.Fprintf(&sb, "\nRisk Factors:\n")
		for _, f := range a.RiskFactors {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}

	fmt.Fprintf(&sb, "\nRecommendation: %s\n%s\n", a.Recommendation, line)
	return sb.String()
}
