package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"forensic_accounting/pkg/core/utils"
	"forensic_accounting/pkg/models"
)

// SeriesFile is the offline input format: a company profile plus annual periods.
// A bare array of periods is accepted too.
type SeriesFile struct {
	Company *models.CompanyInfo `json:"company,omitempty"`
	Periods models.Series       `json:"periods"`
}

// ParseSeries decodes a series file. Hand-edited files with trailing commas, comments or
// unquoted keys are accepted. Periods are re-sorted newest first.
func ParseSeries(data []byte) (*models.CompanyInfo, models.Series, error) {
	var file SeriesFile
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		if _, err := utils.SmartParse(data, &file.Periods); err != nil {
			return nil, nil, fmt.Errorf("parse series: %w", err)
		}
	} else if _, err := utils.SmartParse(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse series: %w", err)
	}

	series := file.Periods
	series.SortNewestFirst()
	if err := series.Validate(); err != nil {
		return nil, nil, err
	}

	info := file.Company
	if info == nil {
		info = &models.CompanyInfo{}
	}
	if info.Name == "" {
		info.Name = "Unknown"
	}
	return info, series, nil
}

// LoadSeriesFile reads a series file. Without a ticker in the file, the file name is used.
func LoadSeriesFile(path string) (*models.CompanyInfo, models.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read series file: %w", err)
	}
	info, series, err := ParseSeries(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if info.Ticker == "" {
		base := filepath.Base(path)
		info.Ticker = strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return info, series, nil
}

// FileSource serves series from <Dir>/<TICKER>.json files.
type FileSource struct {
	Dir string
}

// FetchSeries loads the ticker's file and keeps the newest years periods (all when years <= 0).
func (s FileSource) FetchSeries(ctx context.Context, ticker string, years int) (*models.CompanyInfo, models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(s.Dir, strings.ToUpper(ticker)+".json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: no series file for %s", ErrTickerNotFound, strings.ToUpper(ticker))
	}

	info, series, err := LoadSeriesFile(path)
	if err != nil {
		return nil, nil, err
	}
	if years > 0 && len(series) > years {
		series = series[:years]
	}
	return info, series, nil
}
