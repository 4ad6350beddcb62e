// Package batch orquesta una ejecución completa del optimizador:
// pares → grid search por par → strategies.json + histórico + consola.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
	"github.com/alejandrodnm/statarb/internal/ports"
)

// PairOptimizer procesa un batch de pares. Lo implementa *optimizer.Runner;
// se inyecta desde cmd/ para que el batch no dependa del motor concreto.
type PairOptimizer interface {
	Run(ctx context.Context, pairs []domain.Pair) domain.RunReport
}

// Batch es el orquestador de una ejecución.
type Batch struct {
	pairs      ports.PairSource
	optimizer  PairOptimizer
	strategies ports.StrategyStore
	runs       ports.RunStore // opcional
	notifier   ports.Notifier
}

// New crea un Batch con todas las dependencias inyectadas. runs puede ser nil
// (sin histórico de ejecuciones).
func New(
	pairs ports.PairSource,
	optimizer PairOptimizer,
	strategies ports.StrategyStore,
	runs ports.RunStore,
	notifier ports.Notifier,
) *Batch {
	return &Batch{
		pairs:      pairs,
		optimizer:  optimizer,
		strategies: strategies,
		runs:       runs,
		notifier:   notifier,
	}
}

// RunOnce ejecuta el batch completo y devuelve el reporte.
//
// Solo dos cosas abortan la ejecución: no poder leer los pares y no poder
// escribir los StrategyRecord. El histórico y la notificación son best-effort.
// Si el contexto se cancela a mitad no se toca la salida anterior.
func (b *Batch) RunOnce(ctx context.Context) (domain.RunReport, error) {
	start := time.Now()

	pairs, err := b.pairs.LoadPairs(ctx)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("batch.RunOnce: load pairs: %w", err)
	}
	slog.Info("pairs loaded", "pairs", len(pairs))

	report := b.optimizer.Run(ctx, pairs)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch.RunOnce: %w", err)
	}

	records := report.Records()
	if err := b.strategies.SaveStrategies(ctx, records); err != nil {
		return report, fmt.Errorf("batch.RunOnce: save strategies: %w", err)
	}

	if b.runs != nil {
		if err := b.runs.SaveRun(ctx, report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	if err := b.notifier.Notify(ctx, report); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("batch complete",
		"run_id", report.RunID,
		"pairs", len(pairs),
		"records", len(records),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return report, nil
}
