package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/models"
)

// xbrlTags lists candidate us-gaap tags per field, in order of preference.
// The first tag with annual USD data wins.
var xbrlTags = map[models.Field][]string{
	// Income Statement
	models.Revenues: {"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax",
		"SalesRevenueNet", "RevenueFromContractWithCustomer"},
	models.CostOfRevenue:               {"CostOfRevenue", "CostOfGoodsAndServicesSold", "CostOfGoodsSold"},
	models.GrossProfit:                 {"GrossProfit"},
	models.OperatingIncome:             {"OperatingIncomeLoss"},
	models.NetIncome:                   {"NetIncomeLoss", "ProfitLoss"},
	models.DepreciationAndAmortization: {"DepreciationDepletionAndAmortization", "DepreciationAndAmortization"},

	// Balance Sheet
	models.Assets:                 {"Assets"},
	models.CurrentAssets:          {"AssetsCurrent"},
	models.Cash:                   {"CashAndCashEquivalentsAtCarryingValue", "Cash"},
	models.AccountsReceivable:     {"AccountsReceivableNetCurrent", "AccountsReceivableNet"},
	models.Inventory:              {"InventoryNet"},
	models.PropertyPlantEquipment: {"PropertyPlantAndEquipmentNet"},
	models.Liabilities:            {"Liabilities"},
	models.CurrentLiabilities:     {"LiabilitiesCurrent"},
	models.AccountsPayable:        {"AccountsPayableCurrent"},
	models.LongTermDebt:           {"LongTermDebt", "LongTermDebtNoncurrent"},
	models.StockholdersEquity: {"StockholdersEquity",
		"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"},

	// Cash Flow Statement
	models.OperatingCashFlow: {"NetCashProvidedByUsedInOperatingActivities"},
	models.InvestingCashFlow: {"NetCashProvidedByUsedInInvestingActivities"},
	models.FinancingCashFlow: {"NetCashProvidedByUsedInFinancingActivities"},
}

var annualForms = map[string]bool{"10-K": true, "10-K/A": true}

// Duration facts outside this window are quarters or multi-year totals.
const (
	minAnnualDays = 330
	maxAnnualDays = 400
)

// annualFact is the value chosen for one fiscal-year end.
type annualFact struct {
	val   float64
	form  string
	filed string
}

// ExtractAnnualMetrics builds a newest-first series from companyfacts.
// Periods are the fiscal-year ends of Revenues (or Assets when no revenue tag is reported),
// limited to years. When several filings report the same period, the latest filing wins.
func ExtractAnnualMetrics(facts *CompanyFacts, years int) models.Series {
	if facts == nil {
		return nil
	}
	gaap := facts.Facts["us-gaap"]
	if len(gaap) == 0 {
		return nil
	}

	byField := make(map[models.Field]map[string]annualFact, len(xbrlTags))
	for field, tags := range xbrlTags {
		for _, tag := range tags {
			concept, ok := gaap[tag]
			if !ok {
				continue
			}
			if values := annualValues(concept.Units["USD"]); len(values) > 0 {
				byField[field] = values
				break
			}
		}
	}

	reference := byField[models.Revenues]
	if len(reference) == 0 {
		reference = byField[models.Assets]
	}
	if len(reference) == 0 {
		return nil
	}

	ends := make([]string, 0, len(reference))
	for end := range reference {
		ends = append(ends, end)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ends)))
	if years > 0 && len(ends) > years {
		ends = ends[:years]
	}

	series := make(models.Series, 0, len(ends))
	for _, end := range ends {
		values := make(map[models.Field]float64)
		for field, perEnd := range byField {
			if f, ok := perEnd[end]; ok {
				values[field] = f.val
			}
		}
		series = append(series, models.NewAnnualMetrics(end, reference[end].form, values))
	}
	return series
}

// annualValues keeps 10-K facts that cover a full year (or a point in time) and
// resolves duplicates per period end in favor of the latest filing.
func annualValues(facts []Fact) map[string]annualFact {
	out := make(map[string]annualFact)
	for _, f := range facts {
		if !annualForms[f.Form] || f.End == "" {
			continue
		}
		if f.Start != "" && !isAnnualSpan(f.Start, f.End) {
			continue
		}
		if prev, ok := out[f.End]; ok && prev.filed > f.Filed {
			continue
		}
		out[f.End] = annualFact{val: f.Val, form: f.Form, filed: f.Filed}
	}
	return out
}

func isAnnualSpan(start, end string) bool {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return false
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return false
	}
	days := e.Sub(s).Hours() / 24
	return days >= minAnnualDays && days <= maxAnnualDays
}

// =============================================================================
// FULL FETCH
// =============================================================================

// FetchSeries resolves a ticker and returns its company profile and up to years annual periods.
// Fewer than two periods is ErrNoFinancialData. Missing submissions data only degrades the profile.
func (c *EDGARClient) FetchSeries(ctx context.Context, ticker string, years int) (*models.CompanyInfo, models.Series, error) {
	op := logger.StartOperation(ctx, "ingest.fetch_series", "ticker", ticker, "years", years)
	ctx = op.Context()

	cik, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		op.EndWithError(err)
		return nil, nil, err
	}

	facts, err := c.FetchCompanyFacts(ctx, cik)
	if err != nil {
		op.EndWithError(err)
		return nil, nil, err
	}

	info := &models.CompanyInfo{
		Ticker: strings.ToUpper(ticker),
		CIK:    cik,
		Name:   facts.EntityName,
	}
	if sub, err := c.FetchCompanyInfo(ctx, cik); err != nil {
		logger.Warn(ctx, "Company submissions unavailable", "cik", cik, "error", err)
		info.SIC = "Unknown"
		info.SICDescription = "Unknown"
	} else {
		info.SIC = sub.SIC
		info.SICDescription = sub.SICDescription
		if info.Name == "" {
			info.Name = sub.Name
		}
	}
	if info.Name == "" {
		info.Name = "Unknown"
	}

	series := ExtractAnnualMetrics(facts, years)
	if len(series) < 2 {
		err := fmt.Errorf("%w: %s has %d annual period(s)", ErrNoFinancialData, info.Ticker, len(series))
		op.EndWithError(err)
		return nil, nil, err
	}

	logger.Info(ctx, "Financial data retrieved", "ticker", info.Ticker, "company", info.Name, "periods", len(series))
	op.End("periods", len(series))
	return info, series, nil
}
