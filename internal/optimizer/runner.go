package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/statarb/internal/domain"
	"github.com/alejandrodnm/statarb/internal/ports"
)

const defaultMinHistory = 500

// RunnerConfig controla el pipeline por par.
type RunnerConfig struct {
	MinHistory  int                 // longitud alineada mínima; por debajo el par se omite
	PairWorkers int                 // pares en vuelo a la vez (0 = NumCPU)
	Default     domain.ParameterSet // fallback cuando no hay candidato elegible
}

// Runner es el orquestador: carga precios, alinea, calcula el spread y los
// z-scores y delega la búsqueda en el Optimizer.
type Runner struct {
	cfg    RunnerConfig
	opt    *Optimizer
	prices ports.PriceSource
}

// NewRunner crea un Runner con todas las dependencias inyectadas.
func NewRunner(cfg RunnerConfig, opt *Optimizer, prices ports.PriceSource) *Runner {
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = defaultMinHistory
	}
	if cfg.Default == (domain.ParameterSet{}) {
		cfg.Default = domain.DefaultParameterSet
	}
	return &Runner{cfg: cfg, opt: opt, prices: prices}
}

// Run procesa todos los pares y devuelve el reporte de la ejecución.
// Un par que falla nunca aborta el batch.
func (r *Runner) Run(ctx context.Context, pairs []domain.Pair) domain.RunReport {
	report := domain.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	slog.Info("optimizer run starting",
		"run_id", report.RunID,
		"pairs", len(pairs),
		"grid_size", r.opt.cfg.Grid.Size(),
		"pair_workers", r.cfg.PairWorkers,
	)

	report.Results = processPairsConcurrent(ctx, pairs, r.cfg.PairWorkers, r.ProcessPair)
	report.FinishedAt = time.Now().UTC()

	slog.Info("optimizer run complete",
		"run_id", report.RunID,
		"optimized", report.Count(domain.OutcomeOptimized),
		"default", report.Count(domain.OutcomeDefault),
		"insufficient_data", report.Count(domain.OutcomeInsufficientData),
		"missing_series", report.Count(domain.OutcomeMissingSeries),
		"failed", report.Count(domain.OutcomeSimulationFailure),
		"duration", report.Duration().Round(time.Millisecond),
	)
	return report
}

// ProcessPair corre el pipeline completo de un par y clasifica el resultado.
func (r *Runner) ProcessPair(ctx context.Context, pair domain.Pair) (res domain.PairResult) {
	res.Pair = pair
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("optimizer.ProcessPair %s: %w: %v", pair.Name(), domain.ErrSimulationFailure, p)
			res.Record = nil
		}
		res.Outcome = domain.OutcomeOf(res.Err)
		if res.Outcome == domain.OutcomeDefault {
			// NoViableStrategy no es un error para el caller
			res.Err = nil
		}
		logPairResult(res)
	}()

	prices, err := r.loadAligned(ctx, pair)
	if err != nil {
		res.Err = err
		return res
	}
	res.Samples = prices.Len()
	if res.Samples < r.cfg.MinHistory {
		res.Err = fmt.Errorf("optimizer.ProcessPair %s: %w: %d < %d samples",
			pair.Name(), domain.ErrInsufficientData, res.Samples, r.cfg.MinHistory)
		return res
	}

	spread := domain.Spread(prices, pair.HedgeRatio)
	if i := firstNonFinite(spread); i >= 0 {
		res.Err = fmt.Errorf("optimizer.ProcessPair %s: %w: non-finite spread at index %d",
			pair.Name(), domain.ErrSimulationFailure, i)
		return res
	}

	z := domain.RollingZScores(spread, r.opt.Windows())
	sel, err := r.opt.Optimize(spread, z)
	res.Eligible = sel.Eligible

	switch {
	case err == nil:
		rec := domain.NewStrategyRecord(pair, sel.Best.Params)
		res.Record = &rec
		res.Result = sel.Best.Result
	case IsNoViable(err):
		rec := domain.NewStrategyRecord(pair, r.cfg.Default)
		res.Record = &rec
		res.Err = err
	default:
		res.Err = fmt.Errorf("optimizer.ProcessPair %s: %w", pair.Name(), err)
	}
	return res
}

// loadAligned carga ambas patas y las alinea. Cualquier fallo de carga cuenta
// como serie ausente.
func (r *Runner) loadAligned(ctx context.Context, pair domain.Pair) (domain.AlignedPrices, error) {
	s1, err := r.prices.LoadSeries(ctx, pair.Leg1)
	if err != nil {
		return domain.AlignedPrices{}, missing(pair, pair.Leg1, err)
	}
	s2, err := r.prices.LoadSeries(ctx, pair.Leg2)
	if err != nil {
		return domain.AlignedPrices{}, missing(pair, pair.Leg2, err)
	}
	return domain.Align(s1, s2), nil
}

func missing(pair domain.Pair, symbol string, err error) error {
	if errors.Is(err, domain.ErrMissingSeries) {
		return fmt.Errorf("optimizer.ProcessPair %s: load %s: %w", pair.Name(), symbol, err)
	}
	return fmt.Errorf("optimizer.ProcessPair %s: load %s: %w: %w", pair.Name(), symbol, domain.ErrMissingSeries, err)
}

func firstNonFinite(xs []float64) int {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}

func logPairResult(res domain.PairResult) {
	attrs := []any{
		"pair", res.Pair.Name(),
		"outcome", string(res.Outcome),
		"samples", res.Samples,
	}
	switch res.Outcome {
	case domain.OutcomeOptimized:
		attrs = append(attrs,
			"params", res.Record.Params().String(),
			"trades", res.Result.Trades,
			"pnl", fmt.Sprintf("%.4f", res.Result.PnL),
			"eligible", res.Eligible,
		)
		slog.Info("strategy found", attrs...)
	case domain.OutcomeDefault:
		slog.Info("no eligible parameters, using defaults", attrs...)
	case domain.OutcomeSimulationFailure:
		slog.Error("pair evaluation failed", append(attrs, "err", res.Err)...)
	default:
		slog.Warn("pair skipped", append(attrs, "err", res.Err)...)
	}
}
