package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// repeatPattern repite spread/z `times` veces.
func repeatPattern(spread, z []float64, times int) ([]float64, []float64) {
	var s, zz []float64
	for i := 0; i < times; i++ {
		s = append(s, spread...)
		zz = append(zz, z...)
	}
	return s, zz
}

func newTestOptimizer(t *testing.T, grid domain.Grid, workers int) *Optimizer {
	t.Helper()
	o, err := New(Config{Grid: grid, FeePct: 0.001, MinTrades: 3, Workers: workers})
	require.NoError(t, err)
	return o
}

func TestNew_InvalidGrid(t *testing.T) {
	_, err := New(Config{Grid: domain.Grid{Windows: []int{60}}})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	o, err := New(Config{Grid: domain.Grid{
		Windows: []int{1}, EntryZs: []float64{2}, ExitZs: []float64{0}, StopZs: []float64{4},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, o.Config().MinTrades)
	assert.Greater(t, o.Config().Workers, 0)
}

func TestNew_NegativeMinTrades(t *testing.T) {
	_, err := New(Config{
		Grid: domain.Grid{
			Windows: []int{1}, EntryZs: []float64{2}, ExitZs: []float64{0}, StopZs: []float64{4},
		},
		MinTrades: -1,
	})
	assert.ErrorContains(t, err, "min_trades -1")
}

func TestOptimize_TieBreakPrefersEarlierCanonical(t *testing.T) {
	// z salta de +3 directamente a -1: exit 0.25 y exit 0 cierran en el mismo punto
	spread, z := repeatPattern([]float64{0, 5, 1, 0}, []float64{0, 3, -1, 0}, 4)

	grid := domain.Grid{
		Windows: []int{1},
		EntryZs: []float64{2},
		ExitZs:  []float64{0.25, 0},
		StopZs:  []float64{4},
	}
	sel, err := newTestOptimizer(t, grid, 2).Optimize(spread, [][]float64{z})
	require.NoError(t, err)

	assert.Equal(t, 2, sel.Eligible)
	assert.Equal(t, 0, sel.Best.Index)
	assert.Equal(t, 0.25, sel.Best.Params.ExitZ)
	assert.Equal(t, 4, sel.Best.Result.Trades)

	// mismo grid con la lista de exits invertida: ahora gana exit 0
	grid.ExitZs = []float64{0, 0.25}
	sel, err = newTestOptimizer(t, grid, 2).Optimize(spread, [][]float64{z})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sel.Best.Params.ExitZ)
}

func TestOptimize_StrictlyGreaterReplaces(t *testing.T) {
	spread, z := repeatPattern([]float64{0, 5, 1, 0}, []float64{0, 2.5, -1, 0}, 4)

	grid := domain.Grid{
		Windows: []int{1},
		EntryZs: []float64{3, 2}, // entry 3 nunca dispara
		ExitZs:  []float64{0},
		StopZs:  []float64{4},
	}
	sel, err := newTestOptimizer(t, grid, 1).Optimize(spread, [][]float64{z})
	require.NoError(t, err)

	assert.Equal(t, 1, sel.Eligible)
	assert.Equal(t, 2.0, sel.Best.Params.EntryZ)
	assert.InDelta(t, 4*((5-1)-0.001*1), sel.Best.Result.PnL, 1e-12)
}

func TestOptimize_NoViableStrategy(t *testing.T) {
	spread, z := repeatPattern([]float64{0, 5, 1, 0}, []float64{0, 3, -1, 0}, 2)

	grid := domain.Grid{Windows: []int{1}, EntryZs: []float64{2}, ExitZs: []float64{0}, StopZs: []float64{4}}
	sel, err := newTestOptimizer(t, grid, 1).Optimize(spread, [][]float64{z})

	require.ErrorIs(t, err, domain.ErrNoViableStrategy)
	assert.True(t, IsNoViable(err))
	assert.Equal(t, 0, sel.Eligible)
	assert.Equal(t, 1, sel.Evaluated)
}

func TestOptimize_NegativePnLStillEligible(t *testing.T) {
	// short que siempre pierde: entra en 1, sale en 5
	spread, z := repeatPattern([]float64{0, 1, 5, 0}, []float64{0, 3, -1, 0}, 3)

	grid := domain.Grid{Windows: []int{1}, EntryZs: []float64{2}, ExitZs: []float64{0}, StopZs: []float64{4}}
	sel, err := newTestOptimizer(t, grid, 1).Optimize(spread, [][]float64{z})

	require.NoError(t, err)
	assert.Less(t, sel.Best.Result.PnL, 0.0)
}

func TestOptimize_MismatchedMatrix(t *testing.T) {
	grid := domain.Grid{Windows: []int{1, 2}, EntryZs: []float64{2}, ExitZs: []float64{0}, StopZs: []float64{4}}
	o := newTestOptimizer(t, grid, 1)

	_, err := o.Optimize([]float64{1, 2, 3}, [][]float64{{0, 0, 0}})
	assert.ErrorIs(t, err, domain.ErrSimulationFailure)

	_, err = o.Optimize([]float64{1, 2, 3}, [][]float64{{0, 0, 0}, {0, 0}})
	assert.ErrorIs(t, err, domain.ErrSimulationFailure)
}

func TestEvaluate_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	spread := make([]float64, 2000)
	level := 0.0
	for i := range spread {
		level = 0.97*level + rng.NormFloat64()
		spread[i] = level
	}

	grid := domain.Grid{
		Windows: []int{30, 60, 120, 240, 360},
		EntryZs: []float64{1.5, 2.0, 2.5, 3.0},
		ExitZs:  []float64{0.0, 0.25, 0.5},
		StopZs:  []float64{4.0, 5.0, 8.0},
	}
	z := domain.RollingZScores(spread, grid.Windows)

	seq, err := newTestOptimizer(t, grid, 1).Evaluate(spread, z)
	require.NoError(t, err)
	require.Len(t, seq, grid.Size())

	for _, workers := range []int{2, 3, 7, 64, 1000} {
		par, err := newTestOptimizer(t, grid, workers).Evaluate(spread, z)
		require.NoError(t, err)
		assert.Equal(t, seq, par, "workers=%d", workers)
	}

	// cada candidato coincide con una simulación directa
	for i, p := range grid.All() {
		want := domain.Simulate(spread, z[i/36], p, 0.001)
		assert.Equal(t, want, seq[i].Result)
		assert.Equal(t, i, seq[i].Index)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	spread := make([]float64, 1500)
	level := 0.0
	for i := range spread {
		level = 0.9*level + rng.NormFloat64()
		spread[i] = level
	}

	grid := domain.Grid{
		Windows: []int{30, 60},
		EntryZs: []float64{1.5, 2.0},
		ExitZs:  []float64{0, 0.5},
		StopZs:  []float64{4, 8},
	}
	z := domain.RollingZScores(spread, grid.Windows)

	first, err1 := newTestOptimizer(t, grid, 4).Optimize(spread, z)
	second, err2 := newTestOptimizer(t, grid, 3).Optimize(spread, z)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestSelectBest(t *testing.T) {
	cands := []Candidate{
		{Result: domain.TradeResult{PnL: 100, Trades: 2}}, // no elegible
		{Result: domain.TradeResult{PnL: 5, Trades: 3}},
		{Result: domain.TradeResult{PnL: 7, Trades: 4}},
		{Result: domain.TradeResult{PnL: 7, Trades: 9}}, // empate: gana el anterior
		{Result: domain.TradeResult{PnL: -1, Trades: 3}},
	}

	best, eligible := selectBest(cands, 3)
	assert.Equal(t, 2, best)
	assert.Equal(t, 4, eligible)

	best, eligible = selectBest(cands, 10)
	assert.Equal(t, -1, best)
	assert.Equal(t, 0, eligible)

	best, _ = selectBest(nil, 3)
	assert.Equal(t, -1, best)
}
