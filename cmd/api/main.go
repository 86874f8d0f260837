package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forensic_accounting/pkg/api/forensic"
	"forensic_accounting/pkg/core/config"
	"forensic_accounting/pkg/core/logger"
	"forensic_accounting/pkg/core/metrics"
	"forensic_accounting/pkg/core/pipeline"
)

func main() {
	configPath := os.Getenv("FORENSIC_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}

	// Load config (also reads .env)
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("[FATAL] Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithConfig(cfg.Log); err != nil {
		fmt.Printf("[FATAL] Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder(true)
	runner, cleanup := pipeline.NewEDGARRunner(ctx, cfg, recorder)
	defer cleanup()

	mux := http.NewServeMux()

	// Forensic endpoints
	forensicHandler := forensic.NewHandler(runner, cfg.SEC.Years)
	mux.HandleFunc("/api/forensic/assess", forensicHandler.HandleAssess)
	mux.HandleFunc("/api/forensic/report", forensicHandler.HandleReport)

	// Prometheus
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("API server starting on %s...\n", cfg.API.Addr)
	fmt.Println("  - POST /api/forensic/assess  ({\"ticker\",\"years\"} or {\"company\",\"periods\"})")
	fmt.Println("  - GET  /api/forensic/report  (?ticker=&years=&format=markdown|html|json|text)")
	fmt.Println("  - GET  /metrics")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		logger.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
