package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// HistoryFetcher descarga histórico de cierres desde el exchange.
type HistoryFetcher interface {
	// TopSymbols devuelve los n símbolos más líquidos por volumen en 24h.
	TopSymbols(ctx context.Context, n int) ([]string, error)

	// FetchCloses descarga los cierres de symbol en [from, to].
	FetchCloses(ctx context.Context, symbol string, from, to time.Time) (domain.PriceSeries, error)
}
