// Package redflags runs a fixed battery of heuristic accounting checks over an annual series.
package redflags

import (
	"fmt"
)

// Severity is ordered: Low < Medium < High < Critical.
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

// AllSeverities lists severities from most to least severe, the order reports use.
var AllSeverities = []Severity{Critical, High, Medium, Low}

var severityNames = map[Severity]string{
	Low:      "Low",
	Medium:   "Medium",
	High:     "High",
	Critical: "Critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity maps a display name back to its severity.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if n == name {
			return s, nil
		}
	}
	return Low, fmt.Errorf("unknown severity %q", name)
}

// MarshalText also covers map keys in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(name), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Category groups findings by the area of the statements they concern.
type Category int

const (
	RevenueQuality Category = iota
	EarningsQuality
	Liquidity
	AssetQuality
	FinancialRisk
	Profitability
)

// AllCategories lists every category.
var AllCategories = []Category{RevenueQuality, EarningsQuality, Liquidity, AssetQuality, FinancialRisk, Profitability}

var categoryNames = map[Category]string{
	RevenueQuality:  "Revenue Quality",
	EarningsQuality: "Earnings Quality",
	Liquidity:       "Liquidity",
	AssetQuality:    "Asset Quality",
	FinancialRisk:   "Financial Risk",
	Profitability:   "Profitability",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory maps a display name back to its category.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return RevenueQuality, fmt.Errorf("unknown category %q", name)
}

func (c Category) MarshalText() ([]byte, error) {
	name, ok := categoryNames[c]
	if !ok {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(name), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Finding is one detected concern with its numeric evidence.
type Finding struct {
	Rule            RuleID             `json:"rule"`
	Category        Category           `json:"category"`
	Severity        Severity           `json:"severity"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Metrics         map[string]float64 `json:"metrics"`
	Implications    []string           `json:"implications"`
	Recommendations []string           `json:"recommendations"`
}

// CountBySeverity tallies findings per severity. Every severity is present, possibly zero.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(AllSeverities))
	for _, s := range AllSeverities {
		counts[s] = 0
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// CountByCategory tallies findings per category. Only categories that fired appear.
func CountByCategory(findings []Finding) map[Category]int {
	counts := make(map[Category]int)
	for _, f := range findings {
		counts[f.Category]++
	}
	return counts
}
