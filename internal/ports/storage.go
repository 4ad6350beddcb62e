package ports

import (
	"context"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// StrategyStore persiste los StrategyRecord de una ejecución.
type StrategyStore interface {
	// SaveStrategies escribe los registros en orden, reemplazando por completo
	// cualquier salida anterior.
	SaveStrategies(ctx context.Context, records []domain.StrategyRecord) error
}

// RunStore guarda el histórico de ejecuciones y el resultado de cada par.
type RunStore interface {
	// SaveRun persiste el resumen de la ejecución y una fila por par.
	SaveRun(ctx context.Context, report domain.RunReport) error

	// GetRuns devuelve las últimas ejecuciones, la más reciente primero.
	GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// GetPairResults devuelve los resultados por par de una ejecución.
	GetPairResults(ctx context.Context, runID string) ([]domain.PairResult, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
