package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/statarb/config"
	"github.com/alejandrodnm/statarb/internal/adapters/csvdata"
	"github.com/alejandrodnm/statarb/internal/adapters/notify"
	"github.com/alejandrodnm/statarb/internal/adapters/storage"
	"github.com/alejandrodnm/statarb/internal/application/batch"
	"github.com/alejandrodnm/statarb/internal/optimizer"
	"github.com/alejandrodnm/statarb/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full per-pair table (default: compact 1-line)")
	fetch := flag.Bool("fetch", false, "download price history from Binance before optimizing")
	fetchOnly := flag.Bool("fetch-only", false, "download price history and exit")
	top := flag.Int("top", 0, "symbols to download with -fetch (overrides config)")
	days := flag.Int("days", 0, "days of history to download with -fetch (overrides config)")
	noDB := flag.Bool("no-db", false, "do not archive the run in SQLite")
	history := flag.Int("history", 0, "print the last N archived runs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if err := applyOverrides(cfg, cliOverrides{
		verbose: *verbose,
		format:  *logFormat,
		top:     *top,
		days:    *days,
	}); err != nil {
		slog.Error("invalid command-line flags", "err", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(*table)

	if *history > 0 {
		os.Exit(printHistory(ctx, cfg, notifier, *history))
	}

	slog.Info("statarb starting",
		"config", *configPath,
		"pairs_file", cfg.Data.PairsFile,
		"price_dir", cfg.Data.PriceDir,
		"grid_size", cfg.Grid().Size(),
		"fee_pct", cfg.Fee(),
		"fetch", *fetch || *fetchOnly,
	)

	prices := csvdata.NewPriceStore(cfg.Data.PriceDir)

	if *fetch || *fetchOnly {
		if err := runFetch(ctx, cfg, prices); err != nil {
			slog.Error("history download failed", "err", err)
			os.Exit(1)
		}
		if *fetchOnly {
			return
		}
	}

	opt, err := optimizer.New(optimizer.Config{
		Grid:      cfg.Grid(),
		FeePct:    cfg.Fee(),
		MinTrades: cfg.MinTrades(),
		Workers:   cfg.Optimizer.Workers,
	})
	if err != nil {
		slog.Error("invalid optimizer config", "err", err)
		os.Exit(1)
	}
	runner := optimizer.NewRunner(optimizer.RunnerConfig{
		MinHistory:  cfg.Optimizer.MinHistory,
		PairWorkers: cfg.Optimizer.PairWorkers,
		Default:     cfg.DefaultParams(),
	}, opt, prices)

	// nil interface, no un *SQLiteStorage nil: el batch comprueba runs != nil
	var runs ports.RunStore
	if !*noDB {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
		runs = store
	}

	b := batch.New(
		csvdata.NewPairsFile(cfg.Data.PairsFile),
		runner,
		storage.NewJSONStore(cfg.Output.StrategiesPath),
		runs,
		notifier,
	)

	report, err := b.RunOnce(ctx)
	if err != nil {
		slog.Error("optimizer run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("statarb finished",
		"run_id", report.RunID,
		"records", len(report.Records()),
		"output", cfg.Output.StrategiesPath,
	)
}

// cliOverrides son los flags que pisan valores de la configuración.
type cliOverrides struct {
	verbose bool
	format  string
	top     int
	days    int
}

// applyOverrides aplica los flags sobre cfg y la vuelve a validar.
func applyOverrides(cfg *config.Config, o cliOverrides) error {
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if o.format != "" {
		cfg.Log.Format = o.format
	}
	if o.top > 0 {
		cfg.Fetch.TopN = o.top
	}
	if o.days > 0 {
		cfg.Fetch.LookbackDays = o.days
	}
	return cfg.Validate()
}

// printHistory imprime las últimas n ejecuciones archivadas y devuelve el exit code.
func printHistory(ctx context.Context, cfg *config.Config, notifier *notify.Console, n int) int {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		return 1
	}
	defer store.Close()

	runs, err := store.GetRuns(ctx, n)
	if err != nil {
		slog.Error("failed to read run history", "err", err)
		return 1
	}
	notifier.PrintRuns(runs)
	return 0
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
