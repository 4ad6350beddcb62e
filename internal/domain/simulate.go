package domain

import "math"

// PositionState es el estado de la máquina de posiciones del simulador.
type PositionState int8

const (
	Flat PositionState = iota
	ShortSpread
	LongSpread
)

// String implementa fmt.Stringer.
func (s PositionState) String() string {
	switch s {
	case ShortSpread:
		return "SHORT_SPREAD"
	case LongSpread:
		return "LONG_SPREAD"
	default:
		return "FLAT"
	}
}

// TradeResult es el resultado de una pasada completa del simulador.
type TradeResult struct {
	PnL    float64
	Trades int
}

// Simulate recorre spread/z una vez, desde t = p.Window hasta el final, y acumula
// el PnL realizado y el número de trades cerrados.
//
//	FLAT  → SHORT  si z >  entry            (entry_price = s)
//	FLAT  → LONG   si z < -entry            (entry_price = s)
//	SHORT → FLAT   si z <  exit  || z >  stop   pnl += (entry - s) - fee·|s|
//	LONG  → FLAT   si z > -exit  || z < -stop   pnl += (s - entry) - fee·|s|
//
// El fee se cobra una sola vez, al cerrar, sobre |s|. Una posición abierta al
// final de la serie no se cierra ni cuenta.
//
// z es la fila de z-scores de la ventana p.Window y debe tener la misma longitud que spread.
func Simulate(spread, z []float64, p ParameterSet, feePct float64) TradeResult {
	var (
		state      = Flat
		entryPrice float64
		res        TradeResult
	)

	n := min(len(spread), len(z))
	for t := max(p.Window, 0); t < n; t++ {
		zt, s := z[t], spread[t]

		switch state {
		case Flat:
			if zt > p.EntryZ {
				state, entryPrice = ShortSpread, s
			} else if zt < -p.EntryZ {
				state, entryPrice = LongSpread, s
			}
		case ShortSpread:
			if zt < p.ExitZ || zt > p.StopZ {
				res.PnL += (entryPrice - s) - feePct*math.Abs(s)
				res.Trades++
				state = Flat
			}
		case LongSpread:
			if zt > -p.ExitZ || zt < -p.StopZ {
				res.PnL += (s - entryPrice) - feePct*math.Abs(s)
				res.Trades++
				state = Flat
			}
		}
	}
	return res
}
