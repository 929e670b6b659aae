package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signal-lab/internal/config"
	"signal-lab/internal/domain"
	"signal-lab/internal/logging"
	"signal-lab/internal/marketdata"
	"signal-lab/internal/notify"
	"signal-lab/internal/observability"
	"signal-lab/internal/scan"
	sig "signal-lab/internal/signal"
	"signal-lab/internal/simulation"
	"signal-lab/internal/storage"
	"signal-lab/internal/storage/memory"
	"signal-lab/internal/storage/migrations"
	pgstore "signal-lab/internal/storage/postgres"
	"signal-lab/internal/storage/redisstore"
	"signal-lab/internal/tracing"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (defaults when empty)")
	dataDir := flag.String("data-dir", "", "Directory of <SYMBOL>.csv candle files (required)")
	htfDir := flag.String("htf-dir", "", "Optional directory of higher-timeframe <SYMBOL>.csv files")
	asOf := flag.String("as-of", "", "Score the last bar at or before this RFC 3339 time (latest bar when empty)")
	walk := flag.Bool("walk", false, "Score every bar up to --as-of instead of only the last one")
	concurrency := flag.Int("concurrency", 8, "Symbols scored in parallel")
	linger := flag.Duration("linger", 0, "Keep serving metrics for this long after the scan")
	flag.Parse()

	_ = godotenv.Load()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
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

	if *dataDir == "" {
		logger.Fatal("--data-dir is required")
	}
	var asOfMs int64
	if *asOf != "" {
		t, err := time.Parse(time.RFC3339, *asOf)
		if err != nil {
			logger.Fatal("invalid --as-of", zap.Error(err))
		}
		asOfMs = t.UnixMilli()
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
		s := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", s.String()))
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer srv.Close()
	}

	data, err := loadSeries(*dataDir, *htfDir)
	if err != nil {
		logger.Fatal("load candles", zap.Error(err))
	}
	logger.Info("loaded candles", zap.Int("symbols", len(data)))

	// Shared state
	var (
		cooldowns  storage.CooldownStore       = memory.NewCooldownStore()
		tradeStore storage.SimulatedTradeStore = memory.NewSimulatedTradeStore()
		sinks      []notify.Named
	)

	if cfg.Storage.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		cooldowns = redisstore.NewCooldownStore(rdb, redisstore.Options{
			KeyPrefix: cfg.Storage.KeyPrefix,
			KeyTTL:    24 * time.Hour,
		})
		if cfg.Notify.Redis {
			sinks = append(sinks, notify.Named{
				Name: "redis",
				Sink: notify.NewRedisPublisher(rdb, cfg.Storage.KeyPrefix, logger),
			})
		}
	} else if cfg.Notify.Redis {
		logger.Warn("notify.redis enabled without storage.redis_addr, skipping")
	}

	if cfg.Notify.WebSocketURL != "" {
		ws := notify.NewWebSocketPublisher(notify.WebSocketOptions{
			URL:          cfg.Notify.WebSocketURL,
			WriteTimeout: cfg.Notify.WriteTimeout,
			Logger:       logger,
		})
		defer ws.Close()
		sinks = append(sinks, notify.Named{Name: "websocket", Sink: ws})
	}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, pgstore.Options{
			DSN:             cfg.Storage.PostgresDSN,
			MaxConns:        int32(cfg.Simulation.Workers) + 1,
			ApplicationName: "signal-lab-scan",
		})
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal("postgres migrations", zap.Error(err))
		}
		tradeStore = pgstore.NewSimulatedTradeStore(pool)
	}

	// Engine and background replay
	predictor := cfg.NewPredictor()
	engine := sig.NewEngine(sig.Options{
		Config:    cfg.EngineConfig(),
		Predictor: predictor,
		Cooldowns: cooldowns,
		Logger:    logger,
	})

	simCfg, err := cfg.SimulatorConfig()
	if err != nil {
		logger.Fatal("simulator config", zap.Error(err))
	}
	policy, err := cfg.Overflow()
	if err != nil {
		logger.Fatal("simulation overflow", zap.Error(err))
	}
	simPool := simulation.NewPool(simulation.PoolOptions{
		Workers:   cfg.Simulation.Workers,
		QueueSize: cfg.Simulation.QueueSize,
		Policy:    policy,
		Runner: simulation.NewRunner(simulation.RunnerOptions{
			Simulator:  simulation.NewSimulator(simCfg),
			TradeStore: tradeStore,
			Feedback:   predictor,
			Logger:     logger,
		}),
		OnResult: func(r simulation.Result) {
			if r.Err != nil && errors.Is(r.Err, storage.ErrDuplicateKey) {
				logger.Debug("trade already recorded", zap.String("signal_id", r.Job.Decision.SignalID))
			}
		},
		Logger: logger,
	})
	simPool.Start(ctx)

	scanner, err := scan.NewScanner(scan.Options{
		Engine:      engine,
		Sink:        notify.NewMulti(logger, sinks...),
		Pool:        simPool,
		Concurrency: *concurrency,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("create scanner", zap.Error(err))
	}

	summary, err := scanner.Scan(ctx, data, scan.Request{AsOfMs: asOfMs, Walk: *walk})
	simPool.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("scan failed", zap.Error(err))
	}

	stats := simPool.Stats()
	logger.Info("scan finished",
		zap.Int("symbols", summary.Symbols),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("directional", summary.Directional),
		zap.Int("published", summary.Published),
		zap.Int("publish_failed", summary.PublishFailed),
		zap.Int("submitted", summary.Submitted),
		zap.Int("submit_failed", summary.SubmitFailed),
		zap.Int64("simulated", stats.Completed),
		zap.Int64("simulation_failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped),
		zap.Bool("predictor_trained", predictor.IsTrained()),
	)

	if *linger > 0 && ctx.Err() == nil {
		logger.Info("lingering for metrics scrape", zap.Duration("for", *linger))
		select {
		case <-ctx.Done():
		case <-time.After(*linger):
		}
	}
}

func loadSeries(dataDir, htfDir string) (map[string]scan.Series, error) {
	ltf, err := marketdata.LoadDir(dataDir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]scan.Series, len(ltf))
	for symbol, candles := range ltf {
		s := scan.Series{Candles: candles}
		if htfDir != "" {
			if s.HTF, err = loadOptional(filepath.Join(htfDir, symbol+".csv")); err != nil {
				return nil, err
			}
		}
		out[symbol] = s
	}
	return out, nil
}

func loadOptional(path string) ([]domain.Candle, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return marketdata.LoadCandles(path)
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
