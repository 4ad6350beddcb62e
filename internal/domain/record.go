package domain

import (
	"context"
	"errors"
	"time"
)

// Errores que clasifican el resultado de un par. NoViableStrategy no es un fallo:
// dispara la sustitución por DefaultParameterSet.
var (
	ErrInsufficientData  = errors.New("insufficient joint history")
	ErrMissingSeries     = errors.New("missing price series")
	ErrNoViableStrategy  = errors.New("no viable strategy")
	ErrSimulationFailure = errors.New("simulation failure")
)

// StrategyRecord es la salida persistida por par: identidad + parámetros elegidos.
type StrategyRecord struct {
	Leg1       string  `json:"leg1"`
	Leg2       string  `json:"leg2"`
	HedgeRatio float64 `json:"hedge_ratio"`
	Window     int     `json:"window"`
	EntryZ     float64 `json:"entry_z"`
	ExitZ      float64 `json:"exit_z"`
	StopZ      float64 `json:"stop_z"`
}

// NewStrategyRecord construye el registro de un par con los parámetros dados.
func NewStrategyRecord(p Pair, ps ParameterSet) StrategyRecord {
	return StrategyRecord{
		Leg1:       p.Leg1,
		Leg2:       p.Leg2,
		HedgeRatio: p.HedgeRatio,
		Window:     ps.Window,
		EntryZ:     ps.EntryZ,
		ExitZ:      ps.ExitZ,
		StopZ:      ps.StopZ,
	}
}

// Params devuelve el ParameterSet del registro.
func (r StrategyRecord) Params() ParameterSet {
	return ParameterSet{Window: r.Window, EntryZ: r.EntryZ, ExitZ: r.ExitZ, StopZ: r.StopZ}
}

// Outcome clasifica qué pasó con un par en una ejecución.
type Outcome string

const (
	OutcomeOptimized         Outcome = "optimized"
	OutcomeDefault           Outcome = "default"
	OutcomeInsufficientData  Outcome = "insufficient_data"
	OutcomeMissingSeries     Outcome = "missing_series"
	OutcomeSimulationFailure Outcome = "simulation_failure"
	OutcomeCancelled         Outcome = "cancelled" // la ejecución se canceló antes de procesar el par
)

// Emits devuelve true si el resultado produce un StrategyRecord.
func (o Outcome) Emits() bool {
	return o == OutcomeOptimized || o == OutcomeDefault
}

// OutcomeOf mapea un error del pipeline a su Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOptimized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, ErrNoViableStrategy):
		return OutcomeDefault
	case errors.Is(err, ErrMissingSeries):
		return OutcomeMissingSeries
	case errors.Is(err, ErrInsufficientData):
		return OutcomeInsufficientData
	default:
		return OutcomeSimulationFailure
	}
}

// PairResult es el resultado del pipeline para un par.
type PairResult struct {
	Pair     Pair
	Outcome  Outcome
	Record   *StrategyRecord // nil salvo en optimized/default
	Result   TradeResult     // del ganador; cero en default
	Samples  int             // longitud alineada
	Eligible int             // candidatos con trades >= min_trades
	Err      error
}

// RunReport resume una ejecución completa del optimizador.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []PairResult
}

// Records devuelve los StrategyRecord emitidos, en el orden de entrada de los pares.
func (r RunReport) Records() []StrategyRecord {
	out := make([]StrategyRecord, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Record != nil {
			out = append(out, *res.Record)
		}
	}
	return out
}

// Count devuelve cuántos pares terminaron con el outcome dado.
func (r RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Duration devuelve el tiempo total de la ejecución.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary son los conteos por outcome de una ejecución, tal como se archivan.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Pairs      int
	Optimized  int
	Defaulted  int
	Skipped    int // insufficient_data + missing_series
	Failed     int
}

// Summary resume el reporte.
func (r RunReport) Summary() RunSummary {
	return RunSummary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Pairs:      len(r.Results),
		Optimized:  r.Count(OutcomeOptimized),
		Defaulted:  r.Count(OutcomeDefault),
		Skipped:    r.Count(OutcomeInsufficientData) + r.Count(OutcomeMissingSeries),
		Failed:     r.Count(OutcomeSimulationFailure),
	}
}
