package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"signal-lab/internal/config"
	"signal-lab/internal/reporting"
	chstore "signal-lab/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (defaults when empty)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	symbols := flag.String("symbols", "", "Comma-separated symbols to include (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}

	// Validate flags
	list := splitSymbols(*symbols)
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --symbols is required")
		os.Exit(1)
	}
	if cfg.Storage.ClickhouseDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: --clickhouse-dsn or %s is required\n", config.EnvClickhouseDSN)
		os.Exit(1)
	}

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	rep, err := reporting.NewGenerator(chstore.NewBacktestResultStore(conn)).Generate(ctx, list)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	files := map[string]string{
		"BACKTEST_REPORT.md": reporting.RenderReport(rep),
		"BACKTEST_RUNS.csv":  reporting.RenderRunsCSV(rep.Runs),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Report generated for %d runs:\n", len(rep.Runs))
	fmt.Printf("  - %s/BACKTEST_REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/BACKTEST_RUNS.csv\n", *outputDir)
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
