package ports

import (
	"context"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// PriceSource carga el histórico de cierres de un símbolo.
type PriceSource interface {
	// LoadSeries devuelve la serie ordenada por tiempo ascendente.
	// Devuelve un error que envuelve domain.ErrMissingSeries si no hay datos.
	LoadSeries(ctx context.Context, symbol string) (domain.PriceSeries, error)
}

// SeriesWriter persiste el histórico descargado de un símbolo.
type SeriesWriter interface {
	SaveSeries(ctx context.Context, series domain.PriceSeries) error
}
