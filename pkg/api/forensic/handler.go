// Package forensic provides HTTP API handlers for forensic assessments.
package forensic

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"forensic_accounting/pkg/core/ingest"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/report"
	"forensic_accounting/pkg/core/utils"
	"forensic_accounting/pkg/models"
)

const maxBodyBytes = 4 << 20

// AssessRequest names a ticker to fetch or carries the periods inline.
type AssessRequest struct {
	Ticker  string              `json:"ticker"`
	Years   int                 `json:"years" validate:"omitempty,gte=2,lte=20"`
	Company *models.CompanyInfo `json:"company,omitempty"`
	Periods models.Series       `json:"periods,omitempty"`
}

// Handler holds dependencies for forensic endpoints
type Handler struct {
	Runner       *pipeline.Runner
	DefaultYears int
	validate     *validator.Validate
}

// NewHandler creates a new forensic handler
func NewHandler(runner *pipeline.Runner, defaultYears int) *Handler {
	if defaultYears < 2 {
		defaultYears = 5
	}
	return &Handler{
		Runner:       runner,
		DefaultYears: defaultYears,
		validate:     validator.New(),
	}
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleAssess handles POST /api/forensic/assess
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req AssessRequest
	if _, err := utils.SmartParse(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result *pipeline.Result
	switch {
	case len(req.Periods) > 0:
		req.Periods.SortNewestFirst()
		result, err = h.Runner.RunForSeries(r.Context(), req.Company, req.Periods)
	case strings.TrimSpace(req.Ticker) != "":
		result, err = h.Runner.RunForTicker(r.Context(), strings.TrimSpace(req.Ticker), h.years(req.Years))
	default:
		http.Error(w, "Either ticker or periods is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := report.JSON(result)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// HandleReport handles GET /api/forensic/report?ticker=&years=&format=markdown|html|json
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	ticker := strings.TrimSpace(q.Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	years := h.DefaultYears
	if s := q.Get("years"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 2 || n > 20 {
			http.Error(w, "years must be an integer between 2 and 20", http.StatusBadRequest)
			return
		}
		years = n
	}

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = report.FormatMarkdown
	}
	contentType, ok := contentTypes[format]
	if !ok {
		http.Error(w, fmt.Sprintf("Unsupported format: %s", format), http.StatusBadRequest)
		return
	}

	result, err := h.Runner.RunForTicker(r.Context(), ticker, years)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := report.Render(result, format)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

var contentTypes = map[string]string{
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatHTML:     "text/html; charset=utf-8",
	report.FormatJSON:     "application/json",
	report.FormatText:     "text/plain; charset=utf-8",
}

func (h *Handler) years(requested int) int {
	if requested > 0 {
		return requested
	}
	return h.DefaultYears
}

// fail maps pipeline errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ingest.ErrTickerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientHistory), errors.Is(err, ingest.ErrNoFinancialData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoSource):
		status = http.StatusServiceUnavailable
	default:
		var se *ingest.StatusError
		if errors.As(err, &se) {
			status = http.StatusBadGateway
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "Forensic request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Warn(r.Context(), "Forensic request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}
