// Package history descarga el universo de símbolos y guarda su histórico de cierres.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/statarb/internal/ports"
)

// Downloader orquesta fetcher → writer símbolo a símbolo. El rate limit lo pone
// el fetcher, así que no tiene sentido paralelizar.
type Downloader struct {
	fetcher ports.HistoryFetcher
	writer  ports.SeriesWriter
}

// Result resume una descarga.
type Result struct {
	Saved  []string
	Failed map[string]error
}

// NewDownloader crea un Downloader con las dependencias inyectadas.
func NewDownloader(fetcher ports.HistoryFetcher, writer ports.SeriesWriter) *Downloader {
	return &Downloader{fetcher: fetcher, writer: writer}
}

// DownloadTop selecciona los n símbolos más líquidos y descarga sus últimos `lookback`.
func (d *Downloader) DownloadTop(ctx context.Context, n int, lookback time.Duration) (Result, error) {
	symbols, err := d.fetcher.TopSymbols(ctx, n)
	if err != nil {
		return Result{}, fmt.Errorf("history.DownloadTop: %w", err)
	}
	if len(symbols) == 0 {
		return Result{}, fmt.Errorf("history.DownloadTop: exchange returned no symbols")
	}
	slog.Info("universe selected", "symbols", len(symbols), "first", symbols[0])

	to := time.Now().UTC()
	return d.Download(ctx, symbols, to.Add(-lookback), to)
}

// Download descarga y guarda cada símbolo. Un símbolo que falla no aborta el
// resto; solo la cancelación del contexto corta la descarga.
func (d *Downloader) Download(ctx context.Context, symbols []string, from, to time.Time) (Result, error) {
	res := Result{Failed: make(map[string]error)}

	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("history.Download: %w", err)
		}

		series, err := d.fetcher.FetchCloses(ctx, sym, from, to)
		if err == nil && series.Len() == 0 {
			err = errors.New("no bars in range")
		}
		if err == nil {
			err = d.writer.SaveSeries(ctx, series)
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("history.Download: %w", ctx.Err())
			}
			slog.Warn("symbol download failed", "symbol", sym, "err", err)
			res.Failed[sym] = err
			continue
		}

		res.Saved = append(res.Saved, sym)
		slog.Info("symbol saved",
			"symbol", sym,
			"bars", series.Len(),
			"progress", fmt.Sprintf("%d/%d", i+1, len(symbols)),
		)
	}
	return res, nil
}
