package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInsufficientHistory is returned when a series has fewer than two annual periods.
var ErrInsufficientHistory = errors.New("at least 2 annual periods are required")

// Field names one standardized financial fact.
type Field string

const (
	Revenues                    Field = "Revenues"
	CostOfRevenue               Field = "CostOfRevenue"
	GrossProfit                 Field = "GrossProfit"
	OperatingIncome             Field = "OperatingIncome"
	NetIncome                   Field = "NetIncome"
	DepreciationAndAmortization Field = "DepreciationAndAmortization"
	Assets                      Field = "Assets"
	CurrentAssets               Field = "CurrentAssets"
	Cash                        Field = "Cash"
	AccountsReceivable          Field = "AccountsReceivable"
	Inventory                   Field = "Inventory"
	PropertyPlantEquipment      Field = "PropertyPlantEquipment"
	Liabilities                 Field = "Liabilities"
	CurrentLiabilities          Field = "CurrentLiabilities"
	AccountsPayable             Field = "AccountsPayable"
	LongTermDebt                Field = "LongTermDebt"
	StockholdersEquity          Field = "StockholdersEquity"
	OperatingCashFlow           Field = "OperatingCashFlow"
	InvestingCashFlow           Field = "InvestingCashFlow"
	FinancingCashFlow           Field = "FinancingCashFlow"
)

// AllFields lists the vocabulary in display order (income statement, balance sheet, cash flow).
var AllFields = []Field{
	Revenues, CostOfRevenue, GrossProfit, OperatingIncome, NetIncome, DepreciationAndAmortization,
	Assets, CurrentAssets, Cash, AccountsReceivable, Inventory, PropertyPlantEquipment,
	Liabilities, CurrentLiabilities, AccountsPayable, LongTermDebt, StockholdersEquity,
	OperatingCashFlow, InvestingCashFlow, FinancingCashFlow,
}

var knownFields = func() map[Field]bool {
	m := make(map[Field]bool, len(AllFields))
	for _, f := range AllFields {
		m[f] = true
	}
	return m
}()

// IsKnown reports whether f belongs to the vocabulary.
func (f Field) IsKnown() bool {
	return knownFields[f]
}

// =============================================================================
// ANNUAL METRICS
// =============================================================================

// AnnualMetrics is one fiscal year of standardized facts.
// The zero value is an empty record; values are only set through NewAnnualMetrics
// or JSON decoding, so a constructed record never changes.
type AnnualMetrics struct {
	FiscalYearEnd string
	Form          string
	values        map[Field]float64
}

// NewAnnualMetrics copies values so later changes to the caller's map are not observed.
func NewAnnualMetrics(fiscalYearEnd, form string, values map[Field]float64) AnnualMetrics {
	copied := make(map[Field]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return AnnualMetrics{FiscalYearEnd: fiscalYearEnd, Form: form, values: copied}
}

// Get returns the value for f, or 0 when it was not reported.
func (m AnnualMetrics) Get(f Field) float64 {
	return m.values[f]
}

// Has reports whether f was reported for this period.
func (m AnnualMetrics) Has(f Field) bool {
	_, ok := m.values[f]
	return ok
}

// Missing returns the subset of fields that are absent, in argument order.
func (m AnnualMetrics) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if !m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Values returns a copy of the reported values.
func (m AnnualMetrics) Values() map[Field]float64 {
	out := make(map[Field]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Label is the period label used in logs and reports.
func (m AnnualMetrics) Label() string {
	if m.FiscalYearEnd == "" {
		return "Unknown"
	}
	return m.FiscalYearEnd
}

// MarshalJSON writes a flat object: the two labels plus every reported field.
func (m AnnualMetrics) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.values)+2)
	flat["fiscal_year_end"] = m.FiscalYearEnd
	flat["form"] = m.Form
	for k, v := range m.values {
		flat[string(k)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON accepts the flat object written by MarshalJSON.
// Keys outside the vocabulary are rejected so that typos surface instead of reading as zero.
func (m *AnnualMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	values := make(map[Field]float64, len(raw))
	var end, form string
	for k, v := range raw {
		switch k {
		case "fiscal_year_end":
			if err := json.Unmarshal(v, &end); err != nil {
				return fmt.Errorf("fiscal_year_end: %w", err)
			}
		case "form":
			if err := json.Unmarshal(v, &form); err != nil {
				return fmt.Errorf("form: %w", err)
			}
		default:
			f := Field(k)
			if !f.IsKnown() {
				return fmt.Errorf("unknown metric field %q", k)
			}
			var val *float64
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if val != nil {
				values[f] = *val
			}
		}
	}

	*m = AnnualMetrics{FiscalYearEnd: end, Form: form, values: values}
	return nil
}

// =============================================================================
// SERIES
// =============================================================================

// Series is a company's annual history ordered newest first.
// Every current/prior comparison relies on adjacent elements, so order matters.
type Series []AnnualMetrics

// Validate checks that the series can support at least one year-over-year comparison.
func (s Series) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientHistory, len(s))
	}
	return nil
}

// SortNewestFirst orders periods by fiscal-year-end label, descending.
// ISO dates compare correctly as strings.
func (s Series) SortNewestFirst() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].FiscalYearEnd > s[j].FiscalYearEnd
	})
}

// Values collects every reported number in the series, in period then vocabulary order.
func (s Series) Values() []float64 {
	var out []float64
	for _, m := range s {
		for _, f := range AllFields {
			if m.Has(f) {
				out = append(out, m.Get(f))
			}
		}
	}
	return out
}

// CompanyInfo identifies the filer behind a series.
type CompanyInfo struct {
	Ticker         string `json:"ticker"`
	CIK            string `json:"cik"`
	Name           string `json:"name"`
	SIC            string `json:"sic,omitempty"`
	SICDescription string `json:"sic_description,omitempty"`
}
