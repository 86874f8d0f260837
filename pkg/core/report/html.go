package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/redflags"
	"forensic_accounting/pkg/core/utils"
	"forensic_accounting/pkg/models"
)

const stylesheet = `body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;max-width:960px;margin:2em auto;padding:0 1em;color:#222;line-height:1.5}
table{border-collapse:collapse;margin:1em 0}th,td{border:1px solid #ccc;padding:.3em .7em}th{background:#f4f4f4}
code{padding:.1em .3em;border-radius:3px;background:#eee}
.severity-critical,.risk-very-high{background:#c0392b;color:#fff;font-weight:bold}
.severity-high,.risk-high{background:#e67e22;color:#fff}
.severity-medium,.risk-moderate{background:#f1c40f}
.severity-low,.risk-low{background:#27ae60;color:#fff}`

// HTML renders the Markdown report as a standalone page with severity and risk cells styled.
func HTML(r *pipeline.Result) (string, error) {
	body, err := utils.RenderMarkdown(Markdown(r))
	if err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse report html: %w", err)
	}
	tagCells(doc)

	inner, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialize report html: %w", err)
	}

	title := html.EscapeString(fmt.Sprintf("Forensic Accounting Report: %s", r.Ticker()))
	var sb strings.Builder
	fmt.Fprintf(&sb, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n<style>\n%s\n</style>\n</head>\n", title, stylesheet)
	fmt.Fprintf(&sb, "<body class=\"%s\">\n%s\n</body>\n</html>\n", cssClass("risk", r.Assessment.RiskLevel.String()), inner)
	return sb.String(), nil
}

// tagCells adds a CSS class to table cells and inline code holding a severity or risk level name.
func tagCells(doc *goquery.Document) {
	severities := make(map[string]bool, len(redflags.AllSeverities))
	for _, s := range redflags.AllSeverities {
		severities[s.String()] = true
	}
	levels := make(map[string]bool, len(models.AllRiskLevels))
	for _, l := range models.AllRiskLevels {
		levels[l.String()] = true
	}

	doc.Find("td, code").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch {
		case severities[text]:
			s.AddClass(cssClass("severity", text))
		case levels[text]:
			s.AddClass(cssClass("risk", text))
		}
	})
}

func cssClass(prefix, name string) string {
	return prefix + "-" + strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}
