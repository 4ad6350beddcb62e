package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/statarb/config"
	"github.com/alejandrodnm/statarb/internal/adapters/binance"
	"github.com/alejandrodnm/statarb/internal/history"
	"github.com/alejandrodnm/statarb/internal/ports"
)

// runFetch descarga el histórico de los símbolos más líquidos al directorio de precios.
func runFetch(ctx context.Context, cfg *config.Config, writer ports.SeriesWriter) error {
	slog.Info("=== FETCH: downloading price history ===",
		"top", cfg.Fetch.TopN,
		"days", cfg.Fetch.LookbackDays,
		"interval", cfg.Fetch.Interval,
	)

	client := binance.NewClient(cfg.API.BinanceBase, cfg.Fetch.Interval, cfg.Fetch.RatePerSec)
	res, err := history.NewDownloader(client, writer).DownloadTop(ctx, cfg.Fetch.TopN, cfg.Lookback())
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	slog.Info("fetch complete", "saved", len(res.Saved), "failed", len(res.Failed))
	if len(res.Saved) == 0 {
		return fmt.Errorf("fetch: no symbol could be downloaded")
	}
	return nil
}
