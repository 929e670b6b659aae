package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"signal-lab/internal/backtest"
	"signal-lab/internal/config"
	"signal-lab/internal/domain"
	"signal-lab/internal/logging"
	"signal-lab/internal/marketdata"
	"signal-lab/internal/observability"
	"signal-lab/internal/reporting"
	"signal-lab/internal/storage"
	chstore "signal-lab/internal/storage/clickhouse"
	"signal-lab/internal/storage/migrations"
	"signal-lab/internal/tracing"
	"signal-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (defaults when empty)")
	candlesPath := flag.String("candles", "", "CSV file with decision-timeframe candles (required)")
	htfPath := flag.String("htf", "", "Optional CSV file with higher-timeframe candles")
	symbol := flag.String("symbol", "", "Symbol name (defaults to the candles file name)")
	scenarioName := flag.String("scenario", "", "Scenario override: optimistic, realistic, pessimistic, degraded")
	compare := flag.Bool("compare", false, "Run realistic, pessimistic and degraded scenarios and report sensitivity")

	// Output
	format := flag.String("format", "markdown", "Output format: markdown, json, csv")
	outPath := flag.String("out", "", "Write output to file instead of stdout")
	persist := flag.Bool("persist", false, "Persist results to ClickHouse (storage.clickhouse_dsn)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	verifyRun := flag.String("verify-run", "", "Re-run a persisted run ID over --candles and report divergences")

	flag.Parse()

	_ = godotenv.Load()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *scenarioName != "" {
		cfg.Scenario = config.ScenarioConfig{Name: *scenarioName}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	for _, w := range warnings {
		logger.Warn("config adjusted", zap.String("detail", w))
	}

	if *candlesPath == "" {
		logger.Fatal("--candles is required")
	}
	if *format != "markdown" && *format != "json" && *format != "csv" {
		logger.Fatal("invalid --format", zap.String("format", *format))
	}

	shutdownTracing, err := tracing.Setup(cfg.Tracing, nil)
	if err != nil {
		logger.Fatal("setup tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if *metricsAddr != "" {
		srv := startMetricsServer(*metricsAddr, logger)
		defer srv.Close()
	}

	// Load candles
	candles, err := marketdata.LoadCandles(*candlesPath)
	if err != nil {
		logger.Fatal("load candles", zap.Error(err))
	}
	var htf []domain.Candle
	if *htfPath != "" {
		if htf, err = marketdata.LoadCandles(*htfPath); err != nil {
			logger.Fatal("load htf candles", zap.Error(err))
		}
	}
	if *symbol == "" {
		*symbol = marketdata.SymbolFromPath(*candlesPath)
	}

	// Optional persistence
	var store storage.BacktestResultStore
	if *persist || *verifyRun != "" {
		if cfg.Storage.ClickhouseDSN == "" {
			logger.Fatal("--persist and --verify-run require storage.clickhouse_dsn or " + config.EnvClickhouseDSN)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal("clickhouse migrations", zap.Error(err))
		}
		defer conn.Close()
		store = chstore.NewBacktestResultStore(conn)
	}

	if *verifyRun != "" {
		if err := verifyOne(ctx, cfg, store, logger, *verifyRun, candles, htf); err != nil {
			logger.Fatal("verification failed", zap.String("run_id", *verifyRun), zap.Error(err))
		}
		return
	}

	scenarios := []string{cfg.Scenario.Name}
	if *compare {
		scenarios = []string{domain.ScenarioRealistic, domain.ScenarioPessimistic, domain.ScenarioDegraded}
	}

	results := make(map[string]*domain.BacktestResult, len(scenarios))
	for _, name := range scenarios {
		run := cfg
		if *compare {
			run.Scenario = config.ScenarioConfig{Name: name}
		}
		result, err := runOne(ctx, run, store, logger, *symbol, candles, htf)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("backtest cancelled")
				os.Exit(130)
			}
			logger.Fatal("backtest failed", zap.String("scenario", name), zap.Error(err))
		}
		results[name] = result
	}

	out, err := render(*format, scenarios, results, *symbol, *compare)
	if err != nil {
		logger.Fatal("render output", zap.Error(err))
	}
	if *outPath == "" {
		fmt.Print(out)
		return
	}
	if err := os.WriteFile(*outPath, []byte(out), 0o644); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
	logger.Info("output written", zap.String("path", *outPath))
}

func runOne(ctx context.Context, cfg config.Config, store storage.BacktestResultStore, logger *zap.Logger, symbol string, candles, htf []domain.Candle) (*domain.BacktestResult, error) {
	btCfg, err := cfg.BacktestConfig()
	if err != nil {
		return nil, err
	}
	h, err := backtest.NewHarness(backtest.Options{
		Config:    btCfg,
		Engine:    cfg.EngineConfig(),
		Predictor: cfg.NewPredictor(),
		Store:     store,
		Logger:    logger.With(zap.String("scenario", btCfg.Scenario.ScenarioID)),
	})
	if err != nil {
		return nil, err
	}
	result, err := h.Run(ctx, symbol, candles, htf)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Info("run already persisted", zap.String("symbol", symbol))
		return result, nil
	}
	return result, err
}

// verifyOne replays runID with a non-persisting harness and compares it with
// the stored result.
func verifyOne(ctx context.Context, cfg config.Config, store storage.BacktestResultStore, logger *zap.Logger, runID string, candles, htf []domain.Candle) error {
	btCfg, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}
	h, err := backtest.NewHarness(backtest.Options{
		Config:    btCfg,
		Engine:    cfg.EngineConfig(),
		Predictor: cfg.NewPredictor(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{Store: store, Harness: h})
	res, err := v.VerifyRun(ctx, runID, candles, htf)
	if err != nil {
		return err
	}
	for _, d := range res.Divergences {
		logger.Warn("divergence", zap.String("detail", d.String()))
	}
	if !res.Match {
		return fmt.Errorf("%d divergences", len(res.Divergences))
	}
	logger.Info("run reproduced exactly", zap.String("run_id", runID))
	return nil
}

func render(format string, scenarios []string, results map[string]*domain.BacktestResult, symbol string, compare bool) (string, error) {
	switch format {
	case "json":
		var v any = results[scenarios[0]]
		if compare {
			v = results
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "csv":
		if !compare {
			return reporting.RenderTradesCSV(results[scenarios[0]]), nil
		}
		rows := make([]reporting.RunRow, 0, len(scenarios))
		for _, s := range scenarios {
			rows = append(rows, reporting.NewRunRow(results[s]))
		}
		return reporting.RenderRunsCSV(rows), nil
	}

	if !compare {
		return reporting.RenderMarkdown(results[scenarios[0]]), nil
	}
	rep := &reporting.Report{
		GeneratedAt:         time.Now().UTC(),
		ScenarioSensitivity: []reporting.ScenarioSensitivityRow{reporting.CompareScenarios(symbol, results)},
	}
	for _, s := range scenarios {
		rep.Runs = append(rep.Runs, reporting.NewRunRow(results[s]))
	}
	return reporting.RenderReport(rep), nil
}

// startMetricsServer serves /health and /metrics until closed.
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
