package optimizer

// optimizer.go — grid search de parámetros para un par.
//
// Cada combinación del grid se evalúa de forma independiente sobre datos
// compartidos e inmutables (spread + matriz de z-scores). La selección del
// ganador es un recorrido secuencial en orden canónico que solo reemplaza al
// mejor actual ante un PnL estrictamente mayor: el primer empate gana.

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/alejandrodnm/statarb/internal/domain"
)

const defaultMinTrades = 3

// Config contiene la configuración del optimizador. No hay estado global:
// todo lo que afecta al resultado entra por aquí.
type Config struct {
	Grid      domain.Grid
	FeePct    float64
	MinTrades int // umbral de elegibilidad (trades >= MinTrades); 0 = default
	Workers   int // goroutines para evaluar el grid (0 = NumCPU)
}

// Candidate es una combinación evaluada.
type Candidate struct {
	Index  int // posición canónica en el grid
	Params domain.ParameterSet
	Result domain.TradeResult
}

// Selection es el resultado de optimizar un par.
type Selection struct {
	Best      Candidate
	Eligible  int // candidatos con trades >= MinTrades
	Evaluated int
}

// Optimizer evalúa el grid completo y elige el mejor candidato elegible.
type Optimizer struct {
	cfg Config
}

// New crea un Optimizer validando el grid.
func New(cfg Config) (*Optimizer, error) {
	if err := cfg.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer.New: %w", err)
	}
	if cfg.MinTrades < 0 {
		return nil, fmt.Errorf("optimizer.New: min_trades %d must not be negative", cfg.MinTrades)
	}
	if cfg.MinTrades == 0 {
		cfg.MinTrades = defaultMinTrades
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Optimizer{cfg: cfg}, nil
}

// Config devuelve la configuración efectiva (con defaults aplicados).
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Windows devuelve las ventanas del grid, en el orden de las filas que espera Optimize.
func (o *Optimizer) Windows() []int {
	return o.cfg.Grid.Windows
}

// Evaluate corre el simulador para todas las combinaciones y devuelve los
// resultados indexados por posición canónica.
//
// z debe tener una fila por ventana del grid, cada una de la longitud de spread.
func (o *Optimizer) Evaluate(spread []float64, z [][]float64) ([]Candidate, error) {
	if len(z) != len(o.cfg.Grid.Windows) {
		return nil, fmt.Errorf("optimizer.Evaluate: %w: %d z-score rows for %d windows",
			domain.ErrSimulationFailure, len(z), len(o.cfg.Grid.Windows))
	}
	for k, row := range z {
		if len(row) != len(spread) {
			return nil, fmt.Errorf("optimizer.Evaluate: %w: z-score row %d has %d points, spread has %d",
				domain.ErrSimulationFailure, k, len(row), len(spread))
		}
	}
	return evaluateConcurrent(o.cfg.Grid, spread, z, o.cfg.FeePct, o.cfg.Workers)
}

// Optimize evalúa el grid y devuelve el ganador. Si ningún candidato llega a
// MinTrades devuelve domain.ErrNoViableStrategy; el caller decide el fallback.
func (o *Optimizer) Optimize(spread []float64, z [][]float64) (Selection, error) {
	cands, err := o.Evaluate(spread, z)
	if err != nil {
		return Selection{}, err
	}

	best, eligible := selectBest(cands, o.cfg.MinTrades)
	sel := Selection{Eligible: eligible, Evaluated: len(cands)}
	if best < 0 {
		return sel, domain.ErrNoViableStrategy
	}

	sel.Best = cands[best]
	if math.IsNaN(sel.Best.Result.PnL) || math.IsInf(sel.Best.Result.PnL, 0) {
		return sel, fmt.Errorf("optimizer.Optimize: %w: non-finite pnl for %s",
			domain.ErrSimulationFailure, sel.Best.Params)
	}
	return sel, nil
}

// selectBest recorre los candidatos en orden canónico. Un candidato reemplaza
// al mejor actual solo si su PnL es estrictamente mayor. Devuelve -1 si
// ninguno es elegible.
func selectBest(cands []Candidate, minTrades int) (best, eligible int) {
	best = -1
	for i, c := range cands {
		if c.Result.Trades < minTrades {
			continue
		}
		eligible++
		if best < 0 || c.Result.PnL > cands[best].Result.PnL {
			best = i
		}
	}
	return best, eligible
}

// IsNoViable indica si err significa "usar parámetros por defecto".
func IsNoViable(err error) bool {
	return errors.Is(err, domain.ErrNoViableStrategy)
}
