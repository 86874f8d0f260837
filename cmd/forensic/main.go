package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"forensic_accounting/pkg/core/config"
	"forensic_accounting/pkg/core/ingest"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/pipeline"
	"forensic_accounting/pkg/core/report"
	"forensic_accounting/pkg/models"
)

const (
	exitOK       = 0
	exitError    = 1
	exitHighRisk = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", config.DefaultPath, "Path to YAML config")
		ticker     = flag.String("ticker", "", "Ticker to fetch from SEC EDGAR")
		input      = flag.String("input", "", "Series file (JSON) to analyze instead of fetching")
		years      = flag.Int("years", 0, "Annual periods to analyze (default from config, 5)")
		format     = flag.String("format", "", "Report format: text, markdown, json, html")
		output     = flag.String("output", "", "Directory to save the report in")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitError
	}
	if err := logger.InitWithConfig(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logger.Shutdown(context.Background())

	if *years == 0 {
		*years = cfg.SEC.Years
	}
	if *format == "" {
		*format = cfg.Report.Format
	}

	result, err := assess(ctx, cfg, *ticker, *input, *years)
	if err != nil {
		logger.ErrorWithErr(ctx, "Assessment failed", err, "ticker", *ticker, "input", *input)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	fmt.Print(report.Text(result))

	if !strings.EqualFold(*format, report.FormatText) || *output != "" {
		dir := *output
		if dir == "" {
			dir = cfg.Report.OutputDir
		}
		path, err := report.Save(result, *format, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "report: %v\n", err)
			return exitError
		}
		fmt.Printf("\nReport saved to %s\n", path)
	}

	if result.Assessment.RiskLevel.AtLeast(models.RiskHigh) {
		return exitHighRisk
	}
	return exitOK
}

func assess(ctx context.Context, cfg *config.Config, ticker, input string, years int) (*pipeline.Result, error) {
	if input != "" {
		info, series, err := ingest.LoadSeriesFile(input)
		if err != nil {
			return nil, err
		}
		if ticker != "" {
			info.Ticker = strings.ToUpper(ticker)
		}
		if years > 0 && len(series) > years {
			series = series[:years]
		}
		return pipeline.NewRunner(nil, nil).RunForSeries(ctx, info, series)
	}

	if ticker == "" {
		flag.Usage()
		return nil, errors.New("either -ticker or -input is required")
	}

	runner, cleanup := pipeline.NewEDGARRunner(ctx, cfg, nil)
	defer cleanup()
	return runner.RunForTicker(ctx, ticker, years)
}
