package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/models"
)

const testCIK = "0000000042"

func fixtureFacts() CompanyFacts {
	duration := func(start, end string, val float64, form, filed string) Fact {
		return Fact{Start: start, End: end, Val: val, Form: form, Filed: filed}
	}
	instant := func(end string, val float64) Fact {
		return Fact{End: end, Val: val, Form: "10-K", Filed: "2025-02-01"}
	}

	return CompanyFacts{
		CIK:        42,
		EntityName: "Acme Widgets Inc",
		Facts: map[string]map[string]Concept{
			"us-gaap": {
				"Revenues": {Units: map[string][]Fact{"USD": {
					duration("2024-01-01", "2024-12-31", 1200, "10-K", "2025-02-01"),
					duration("2023-01-01", "2023-12-31", 1100, "10-K", "2024-02-01"),
					duration("2023-01-01", "2023-12-31", 1105, "10-K", "2025-02-01"), // restated
					duration("2022-01-01", "2022-12-31", 1000, "10-K", "2023-02-01"),
					duration("2024-10-01", "2024-12-31", 330, "10-K", "2025-02-01"), // fourth quarter
					duration("2024-01-01", "2024-09-30", 870, "10-Q", "2024-11-01"),
				}}},
				"SalesRevenueNet": {Units: map[string][]Fact{"USD": {
					duration("2024-01-01", "2024-12-31", 9999, "10-K", "2025-02-01"),
				}}},
				"Assets": {Units: map[string][]Fact{"USD": {
					instant("2024-12-31", 2400),
					instant("2023-12-31", 2200),
					instant("2022-12-31", 2000),
				}}},
				"ProfitLoss": {Units: map[string][]Fact{"USD": {
					duration("2024-01-01", "2024-12-31", 120, "10-K", "2025-02-01"),
					duration("2023-01-01", "2023-12-31", 110, "10-K", "2024-02-01"),
				}}},
				"InventoryNet": {Units: map[string][]Fact{"EUR": {
					instant("2024-12-31", 50),
				}}},
			},
		},
	}
}

type fakeSEC struct {
	*httptest.Server
	mu    sync.Mutex
	hits  map[string]int
	agent string
}

func newFakeSEC(t *testing.T, submissionsStatus int) *fakeSEC {
	f := &fakeSEC{hits: make(map[string]int)}
	mux := http.NewServeMux()

	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Write([]byte(`{"0":{"cik_str":42,"ticker":"ACME","title":"Acme Widgets Inc"},` +
			`"1":{"cik_str":7,"ticker":"NOXB","title":"No XBRL Corp"}}`))
	})
	mux.HandleFunc("/api/xbrl/companyfacts/CIK"+testCIK+".json", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		json.NewEncoder(gz).Encode(fixtureFacts())
	})
	mux.HandleFunc("/submissions/CIK"+testCIK+".json", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if submissionsStatus != http.StatusOK {
			w.WriteHeader(submissionsStatus)
			return
		}
		w.Write([]byte(`{"cik":"42","name":"Acme Widgets","sic":"3590","sicDescription":"Misc Industrial Machinery"}`))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeSEC) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	f.agent = r.Header.Get("User-Agent")
}

func (f *fakeSEC) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeSEC) client(opts ClientOptions) *EDGARClient {
	opts.DataBaseURL = f.URL
	opts.WWWBaseURL = f.URL
	opts.RequestsPerSecond = 1000
	return NewEDGARClient(opts)
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, cik string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[cik]
	return p, ok, nil
}

func (m *memoryCache) Set(_ context.Context, cik string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[cik] = payload
	return nil
}

func TestLookupCIK(t *testing.T) {
	sec := newFakeSEC(t, http.StatusOK)
	c := sec.client(ClientOptions{UserAgent: "Test Agent test@example.org"})
	ctx := context.Background()

	cik, err := c.LookupCIK(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, testCIK, cik)

	_, err = c.LookupCIK(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrTickerNotFound)

	assert.Equal(t, 1, sec.count("/files/company_tickers.json"))
	assert.Equal(t, "Test Agent test@example.org", sec.agent)
}

func TestFetchSeries(t *testing.T) {
	sec := newFakeSEC(t, http.StatusOK)

	var mu sync.Mutex
	observed := map[string]int{}
	c := sec.client(ClientOptions{Observer: func(endpoint string, status int) {
		mu.Lock()
		defer mu.Unlock()
		observed[endpoint]++
		assert.Equal(t, http.StatusOK, status)
	}})

	info, series, err := c.FetchSeries(context.Background(), "acme", 2)
	require.NoError(t, err)

	assert.Equal(t, "ACME", info.Ticker)
	assert.Equal(t, testCIK, info.CIK)
	assert.Equal(t, "Acme Widgets Inc", info.Name)
	assert.Equal(t, "Misc Industrial Machinery", info.SICDescription)

	require.Len(t, series, 2)
	assert.Equal(t, "2024-12-31", series[0].FiscalYearEnd)
	assert.Equal(t, "10-K", series[0].Form)
	assert.Equal(t, 1200.0, series[0].Get(models.Revenues))
	assert.Equal(t, 2400.0, series[0].Get(models.Assets))
	assert.Equal(t, 120.0, series[0].Get(models.NetIncome))
	assert.False(t, series[0].Has(models.Inventory))

	assert.Equal(t, "2023-12-31", series[1].FiscalYearEnd)
	assert.Equal(t, 1105.0, series[1].Get(models.Revenues))
	assert.Equal(t, 110.0, series[1].Get(models.NetIncome))

	assert.Equal(t, map[string]int{EndpointTickers: 1, EndpointCompanyFacts: 1, EndpointSubmissions: 1}, observed)
}

func TestFetchSeriesToleratesMissingSubmissions(t *testing.T) {
	sec := newFakeSEC(t, http.StatusInternalServerError)
	info, series, err := sec.client(ClientOptions{}).FetchSeries(context.Background(), "ACME", 5)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", info.SIC)
	assert.Len(t, series, 3)
}

func TestFetchSeriesWithoutFacts(t *testing.T) {
	sec := newFakeSEC(t, http.StatusOK)
	_, _, err := sec.client(ClientOptions{}).FetchSeries(context.Background(), "NOXB", 5)
	assert.ErrorIs(t, err, ErrNoFinancialData)

	_, _, err = sec.client(ClientOptions{}).FetchSeries(context.Background(), "NOPE", 5)
	assert.ErrorIs(t, err, ErrTickerNotFound)
}

func TestFetchCompanyFactsUsesCache(t *testing.T) {
	sec := newFakeSEC(t, http.StatusOK)
	cache := &memoryCache{data: map[string][]byte{}}
	c := sec.client(ClientOptions{Cache: cache})
	ctx := context.Background()

	first, err := c.FetchCompanyFacts(ctx, "42")
	require.NoError(t, err)
	second, err := c.FetchCompanyFacts(ctx, testCIK)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, sec.count("/api/xbrl/companyfacts/CIK"+testCIK+".json"))
	assert.Contains(t, cache.data, testCIK)
}

func TestExtractAnnualMetricsFallsBackToAssets(t *testing.T) {
	facts := fixtureFacts()
	gaap := facts.Facts["us-gaap"]
	delete(gaap, "Revenues")
	delete(gaap, "SalesRevenueNet")

	series := ExtractAnnualMetrics(&facts, 0)
	require.Len(t, series, 3)
	assert.Equal(t, "2022-12-31", series[2].FiscalYearEnd)
	assert.False(t, series[0].Has(models.Revenues))

	assert.Empty(t, ExtractAnnualMetrics(&CompanyFacts{}, 5))
	assert.Empty(t, ExtractAnnualMetrics(nil, 5))
}

func TestPadCIK(t *testing.T) {
	assert.Equal(t, "0000320193", PadCIK("320193"))
	assert.Equal(t, "0000320193", PadCIK("0000320193"))
}

func TestRequestsAreTraced(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithConfig(logger.LogConfig{Level: "WARN", Format: "json", TracingEnabled: true, Output: &buf}))
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text"}) })

	sec := newFakeSEC(t, http.StatusOK)
	_, err := sec.client(ClientOptions{}).LookupCIK(context.Background(), "ACME")
	require.NoError(t, err)
	require.NoError(t, logger.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"sec.get"`)
	assert.Contains(t, buf.String(), EndpointTickers)
}
