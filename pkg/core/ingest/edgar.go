// Package ingest retrieves annual financial facts from SEC EDGAR and reads offline series files.
// API Documentation: https://www.sec.gov/developer
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"forensic_accounting/pkg/core/logger"
)

const (
	// SEC EDGAR API hosts
	DefaultDataBaseURL = "https://data.sec.gov"
	DefaultWWWBaseURL  = "https://www.sec.gov"

	submissionsPath  = "/submissions/CIK%s.json"
	companyFactsPath = "/api/xbrl/companyfacts/CIK%s.json"
	tickersPath      = "/files/company_tickers.json"

	// Required User-Agent per SEC guidelines
	DefaultUserAgent = "ForensicAccounting/1.0 (research@example.com)"

	// SEC allows 10 requests per second; stay just under.
	DefaultRequestsPerSecond = 9.0
)

// Endpoint labels passed to the RequestObserver.
const (
	EndpointTickers      = "tickers"
	EndpointSubmissions  = "submissions"
	EndpointCompanyFacts = "companyfacts"
)

var (
	// ErrTickerNotFound is returned when the ticker is absent from SEC's mapping file.
	ErrTickerNotFound = errors.New("ticker not found in SEC database")
	// ErrNoFinancialData is returned when a company has too little annual XBRL data to analyze.
	ErrNoFinancialData = errors.New("no usable financial data")
)

// RequestObserver is told about every SEC request. Status is 0 when the request never completed.
type RequestObserver func(endpoint string, status int)

// FactsCache stores raw companyfacts payloads keyed by 10-digit CIK.
type FactsCache interface {
	Get(ctx context.Context, cik string) ([]byte, bool, error)
	Set(ctx context.Context, cik string, payload []byte) error
}

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// SECCompanyInfo is the subset of the submissions response used here.
type SECCompanyInfo struct {
	CIK            string   `json:"cik"`
	EntityType     string   `json:"entityType"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Name           string   `json:"name"`
	Tickers        []string `json:"tickers"`
	Exchanges      []string `json:"exchanges"`
}

// CompanyFacts is the XBRL companyfacts document.
type CompanyFacts struct {
	CIK        int                           `json:"cik"`
	EntityName string                        `json:"entityName"`
	Facts      map[string]map[string]Concept `json:"facts"` // taxonomy -> tag
}

// Concept is one XBRL tag with its reported values, grouped by unit.
type Concept struct {
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Units       map[string][]Fact `json:"units"`
}

// Fact is one reported value. Start is empty for balance-sheet (instant) facts.
type Fact struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	Frame string  `json:"frame,omitempty"`
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// ClientOptions configures an EDGARClient. Zero values fall back to the defaults above.
type ClientOptions struct {
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	DataBaseURL       string
	WWWBaseURL        string
	HTTPClient        *http.Client
	Cache             FactsCache
	Observer          RequestObserver
}

// EDGARClient handles SEC EDGAR API requests. Requests are spaced by a shared limiter,
// so one client may be used from several goroutines.
type EDGARClient struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	userAgent   string
	dataBaseURL string
	wwwBaseURL  string
	cache       FactsCache
	observer    RequestObserver

	mu      sync.Mutex
	tickers map[string]string // upper-case ticker -> 10-digit CIK
}

// NewEDGARClient creates a new SEC EDGAR API client.
func NewEDGARClient(opts ClientOptions) *EDGARClient {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DataBaseURL == "" {
		opts.DataBaseURL = DefaultDataBaseURL
	}
	if opts.WWWBaseURL == "" {
		opts.WWWBaseURL = DefaultWWWBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &EDGARClient{
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		userAgent:   opts.UserAgent,
		dataBaseURL: strings.TrimRight(opts.DataBaseURL, "/"),
		wwwBaseURL:  strings.TrimRight(opts.WWWBaseURL, "/"),
		cache:       opts.Cache,
		observer:    opts.Observer,
	}
}

// PadCIK zero-pads a CIK to the 10 digits the API expects.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(strings.TrimSpace(cik), "0"))
}

// LookupCIK finds the CIK for a ticker using SEC's company_tickers.json.
// The mapping is downloaded once per client.
func (c *EDGARClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrTickerNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tickers == nil {
		body, err := c.get(ctx, EndpointTickers, c.wwwBaseURL+tickersPath)
		if err != nil {
			return "", fmt.Errorf("failed to fetch ticker mapping: %w", err)
		}

		// Response structure: { "0": {"cik_str": 320193, "ticker": "AAPL", "title": "..."}, ... }
		var mapping map[string]struct {
			CIK    int    `json:"cik_str"`
			Ticker string `json:"ticker"`
			Title  string `json:"title"`
		}
		if err := json.Unmarshal(body, &mapping); err != nil {
			return "", fmt.Errorf("failed to parse ticker mapping: %w", err)
		}

		c.tickers = make(map[string]string, len(mapping))
		for _, entry := range mapping {
			c.tickers[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
		}
	}

	cik, ok := c.tickers[ticker]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	return cik, nil
}

// FetchCompanyInfo retrieves company submission data from SEC EDGAR.
func (c *EDGARClient) FetchCompanyInfo(ctx context.Context, cik string) (*SECCompanyInfo, error) {
	body, err := c.get(ctx, EndpointSubmissions, c.dataBaseURL+fmt.Sprintf(submissionsPath, PadCIK(cik)))
	if err != nil {
		return nil, err
	}

	var info SECCompanyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse SEC response: %w", err)
	}
	return &info, nil
}

// FetchCompanyFacts retrieves the XBRL companyfacts document, consulting the cache first.
// A company without XBRL facts (404) is reported as ErrNoFinancialData.
func (c *EDGARClient) FetchCompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error) {
	cik = PadCIK(cik)

	if c.cache != nil {
		payload, ok, err := c.cache.Get(ctx, cik)
		if err != nil {
			logger.Warn(ctx, "Facts cache read failed", "cik", cik, "error", err)
		} else if ok {
			logger.Debug(ctx, "Facts cache hit", "cik", cik)
			return decodeFacts(payload)
		}
	}

	body, err := c.get(ctx, EndpointCompanyFacts, c.dataBaseURL+fmt.Sprintf(companyFactsPath, cik))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: no XBRL facts for CIK %s", ErrNoFinancialData, cik)
		}
		return nil, err
	}

	facts, err := decodeFacts(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cik, body); err != nil {
			logger.Warn(ctx, "Facts cache write failed", "cik", cik, "error", err)
		}
	}
	return facts, nil
}

func decodeFacts(payload []byte) (*CompanyFacts, error) {
	var facts CompanyFacts
	if err := json.Unmarshal(payload, &facts); err != nil {
		return nil, fmt.Errorf("failed to parse companyfacts: %w", err)
	}
	return &facts, nil
}

// StatusError is a non-200 response from SEC.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("SEC API returned status %d for %s", e.Code, e.URL)
}

// get performs a rate-limited GET and returns the decoded body.
func (c *EDGARClient) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	ctx, span := logger.StartSpan(ctx, "sec.get", trace.WithAttributes(attribute.String("sec.endpoint", endpoint)))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// SEC requires User-Agent header
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0)
		return nil, fmt.Errorf("SEC API request failed: %w", err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip response: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	logger.Debug(ctx, "SEC request completed", "endpoint", endpoint, "bytes", len(body))
	return body, nil
}

func (c *EDGARClient) observe(endpoint string, status int) {
	if c.observer != nil {
		c.observer(endpoint, status)
	}
}
