package optimizer

// concurrent.go — paralelismo en dos niveles.
//
//   - Dentro de un par: el grid se parte en bloques contiguos, uno por worker.
//     Cada worker escribe solo en sus posiciones del slice de resultados, así que
//     no hay locks y el orden canónico se conserva para la reducción.
//   - Entre pares: worker pool acotado; cada par escribe su resultado en el
//     índice de entrada, de modo que la salida no depende del scheduling.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// evaluateConcurrent simula todas las combinaciones del grid en paralelo.
func evaluateConcurrent(
	grid domain.Grid,
	spread []float64,
	z [][]float64,
	feePct float64,
	workers int,
) ([]Candidate, error) {
	size := grid.Size()
	out := make([]Candidate, size)
	if size == 0 {
		return out, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, size)
	chunk := (size + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < size; lo += chunk {
		hi := min(lo+chunk, size)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("optimizer.evaluate: %w: panic in [%d,%d): %v",
						domain.ErrSimulationFailure, lo, hi, r)
				}
			}()
			for i := lo; i < hi; i++ {
				p, wi := grid.At(i)
				out[i] = Candidate{
					Index:  i,
					Params: p,
					Result: domain.Simulate(spread, z[wi], p, feePct),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// processPairsConcurrent procesa todos los pares con un pool de `workers` goroutines.
// Los resultados quedan en el mismo orden que `pairs`.
//
// Si workers <= 0 usa runtime.NumCPU(); el tamaño de la matriz de z-scores
// (ventanas × longitud × 8 bytes) por par en vuelo es lo que limita la memoria.
func processPairsConcurrent(
	ctx context.Context,
	pairs []domain.Pair,
	workers int,
	process func(context.Context, domain.Pair) domain.PairResult,
) []domain.PairResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]domain.PairResult, len(pairs))
	workCh := make(chan int, len(pairs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				if err := ctx.Err(); err != nil {
					// cancelado: los pares que quedan en cola no se cargan
					results[idx] = domain.PairResult{
						Pair:    pairs[idx],
						Outcome: domain.OutcomeCancelled,
						Err:     fmt.Errorf("optimizer: %s not processed: %w", pairs[idx].Name(), err),
					}
					continue
				}
				results[idx] = process(ctx, pairs[idx])
			}
		}()
	}

	for idx := range pairs {
		workCh <- idx
	}
	close(workCh)
	wg.Wait()

	slog.Debug("concurrent pair processing complete",
		"pairs", len(pairs),
		"workers", workers,
	)
	return results
}
