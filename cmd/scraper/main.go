package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bmansouri/go-lead-scraper/config"
	"github.com/bmansouri/go-lead-scraper/fetch"
	"github.com/bmansouri/go-lead-scraper/harvest"
	"github.com/bmansouri/go-lead-scraper/models"
	"github.com/bmansouri/go-lead-scraper/pipeline"
	"github.com/bmansouri/go-lead-scraper/resolver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	outputDefault := "data"
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		outputDefault = value
	}
	formatDefault := "csv"
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		formatDefault = value
	}
	metricsDefault := ""
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	sector := flag.String("sector", "", "Sector key (e.g. 'europages_wine' or 'yellowpages_uae')")
	category := flag.String("category", "", "Category for yellowpages sectors (e.g. 'event-management')")
	configPath := flag.String("config", "", "Sector configuration file (default chosen by sector)")
	skipEmails := flag.Bool("skip-emails", false, "Run profile and link extraction only")
	outputDir := flag.String("output-dir", outputDefault, "Directory for output artifacts")
	outputFormat := flag.String("format", formatDefault, "Output format: csv, json, sqlite, or dual")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if *sector == "" {
		slog.Error("sector is required")
		os.Exit(1)
	}

	path := *configPath
	if path == "" {
		if strings.Contains(*sector, "yellowpages") {
			path = "config/yellowpages-uae.yaml"
		} else {
			path = "config/sectors.yaml"
		}
	}

	sectors, err := config.Load(path)
	if err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	cfg, err := sectors.Sector(*sector)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if strings.Contains(*sector, "yellowpages") {
		if *category == "" {
			slog.Error("category must be provided for yellowpages sectors")
			os.Exit(1)
		}
		cfg.Category = *category
	}

	slug := sectorSlug(*sector)
	if strings.Contains(*sector, "yellowpages") {
		slug = *category
	}
	slog.Info("starting crawl",
		slog.String("sector", *sector),
		slog.String("slug", slug),
		slog.Int("pages", cfg.MaxPages),
	)

	metrics := fetch.NewMetrics()
	session, err := fetch.NewSession(cfg, metrics, logger)
	if err != nil {
		slog.Error("initialising fetch session", slog.Any("error", err))
		os.Exit(1)
	}
	limiter := fetch.NewJitterLimiter(cfg.MinDelay(), cfg.MaxDelay())

	writer, err := createWriter(strings.ToLower(*outputFormat), *outputDir, slug)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing in-flight work")
	}()

	var metricsServer *http.Server
	if *metricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    *metricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", *metricsAddr))
	}

	res := resolver.ForSector(*sector, cfg, session, limiter, logger)
	harvester, err := harvest.New(cfg, session, limiter, metrics, logger)
	if err != nil {
		slog.Error("initialising harvester", slog.Any("error", err))
		os.Exit(1)
	}

	runner := pipeline.NewRunner(cfg, res, harvester, writer, session, metrics, logger)
	runner.SkipEmails = *skipEmails

	result, err := runner.Run(ctx)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, *outputDir)
}

func sectorSlug(key string) string {
	if _, suffix, ok := strings.Cut(key, "_"); ok {
		return suffix
	}
	return key
}

func createWriter(format, outputDir, slug string) (pipeline.OutputWriter, error) {
	switch format {
	case "csv":
		return pipeline.NewCSVOutput(outputDir, slug), nil
	case "json":
		return pipeline.NewJSONOutput(outputDir, slug), nil
	case "sqlite":
		return pipeline.NewSQLiteOutput(outputDir, slug)
	case "dual":
		return pipeline.NewDualOutput(outputDir, slug), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, outputDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	duration := result.EndTime.Sub(result.StartTime)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}

	fmt.Printf("  Profiles:      %d\n", result.ProfileCount)
	fmt.Printf("  Raw emails:    %d\n", result.RawEmails)
	fmt.Printf("  Clean emails:  %d\n", result.CleanEmails)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output dir:    %s\n", outputDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
