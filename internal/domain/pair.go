package domain

import (
	"fmt"
	"time"
)

// Pair identifica dos activos y el hedge ratio que lleva el precio de Leg2
// a la escala de Leg1. Es inmutable una vez cargado.
type Pair struct {
	Leg1       string
	Leg2       string
	HedgeRatio float64
}

// Name devuelve el identificador legible "LEG1/LEG2".
func (p Pair) Name() string {
	return p.Leg1 + "/" + p.Leg2
}

// Bar es un cierre de vela.
type Bar struct {
	Time  time.Time
	Close float64
}

// PriceSeries es el histórico de cierres de un símbolo, ordenado por tiempo ascendente.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// Len devuelve el número de velas.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// AlignedPrices son dos vectores de precios de igual longitud sobre timestamps compartidos.
type AlignedPrices struct {
	Times []time.Time
	Leg1  []float64
	Leg2  []float64
}

// Len devuelve el número de filas alineadas.
func (a AlignedPrices) Len() int {
	return len(a.Times)
}

// Align une dos series por timestamp: outer join, forward-fill y luego descarta
// las filas donde alguna de las dos patas todavía no tiene precio.
//
// Ambas series deben venir ordenadas ascendentemente y sin timestamps duplicados.
func Align(s1, s2 PriceSeries) AlignedPrices {
	n := len(s1.Bars) + len(s2.Bars)
	out := AlignedPrices{
		Times: make([]time.Time, 0, n),
		Leg1:  make([]float64, 0, n),
		Leg2:  make([]float64, 0, n),
	}

	var (
		i, j         int
		last1, last2 float64
		has1, has2   bool
	)
	for i < len(s1.Bars) || j < len(s2.Bars) {
		var ts time.Time
		switch {
		case j >= len(s2.Bars) || (i < len(s1.Bars) && s1.Bars[i].Time.Before(s2.Bars[j].Time)):
			ts = s1.Bars[i].Time
			last1, has1 = s1.Bars[i].Close, true
			i++
		case i >= len(s1.Bars) || s2.Bars[j].Time.Before(s1.Bars[i].Time):
			ts = s2.Bars[j].Time
			last2, has2 = s2.Bars[j].Close, true
			j++
		default: // mismo timestamp en ambas
			ts = s1.Bars[i].Time
			last1, has1 = s1.Bars[i].Close, true
			last2, has2 = s2.Bars[j].Close, true
			i++
			j++
		}

		if !has1 || !has2 {
			continue
		}
		out.Times = append(out.Times, ts)
		out.Leg1 = append(out.Leg1, last1)
		out.Leg2 = append(out.Leg2, last2)
	}
	return out
}

// Spread calcula spread[t] = leg1[t] - hedgeRatio × leg2[t].
// Siempre devuelve un slice nuevo; nunca modifica la entrada.
func Spread(prices AlignedPrices, hedgeRatio float64) []float64 {
	out := make([]float64, len(prices.Leg1))
	for t := range prices.Leg1 {
		out[t] = prices.Leg1[t] - hedgeRatio*prices.Leg2[t]
	}
	return out
}

// String implementa fmt.Stringer.
func (p Pair) String() string {
	return fmt.Sprintf("%s (hr=%.6f)", p.Name(), p.HedgeRatio)
}
