package ports

import (
	"context"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// PairSource obtiene los pares candidatos (leg1, leg2, hedge_ratio).
type PairSource interface {
	// LoadPairs devuelve los pares en el orden en que deben procesarse.
	LoadPairs(ctx context.Context) ([]domain.Pair, error)
}
