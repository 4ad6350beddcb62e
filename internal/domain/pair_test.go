package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minute(i int) time.Time {
	return time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
}

func series(symbol string, points map[int]float64, order []int) PriceSeries {
	s := PriceSeries{Symbol: symbol}
	for _, i := range order {
		s.Bars = append(s.Bars, Bar{Time: minute(i), Close: points[i]})
	}
	return s
}

func TestAlign_OuterJoinForwardFillIntersect(t *testing.T) {
	// leg1 empieza antes; leg2 tiene un hueco en el minuto 3
	s1 := series("A", map[int]float64{0: 10, 1: 11, 2: 12, 3: 13, 4: 14}, []int{0, 1, 2, 3, 4})
	s2 := series("B", map[int]float64{2: 20, 4: 24, 5: 25}, []int{2, 4, 5})

	a := Align(s1, s2)

	require.Equal(t, 4, a.Len())
	assert.Equal(t, []time.Time{minute(2), minute(3), minute(4), minute(5)}, a.Times)
	assert.Equal(t, []float64{12, 13, 14, 14}, a.Leg1) // forward-fill en 5
	assert.Equal(t, []float64{20, 20, 24, 25}, a.Leg2) // forward-fill en 3
}

func TestAlign_NoOverlapBeforeBothStart(t *testing.T) {
	s1 := series("A", map[int]float64{0: 1, 1: 2}, []int{0, 1})

	a := Align(s1, PriceSeries{Symbol: "B"})
	assert.Equal(t, 0, a.Len())
}

func TestAlign_IdenticalTimestamps(t *testing.T) {
	s1 := series("A", map[int]float64{0: 1, 1: 2, 2: 3}, []int{0, 1, 2})
	s2 := series("B", map[int]float64{0: 4, 1: 5, 2: 6}, []int{0, 1, 2})

	a := Align(s1, s2)
	assert.Equal(t, []float64{1, 2, 3}, a.Leg1)
	assert.Equal(t, []float64{4, 5, 6}, a.Leg2)
}

func TestSpread(t *testing.T) {
	a := AlignedPrices{
		Times: []time.Time{minute(0), minute(1)},
		Leg1:  []float64{100, 110},
		Leg2:  []float64{10, 12},
	}

	s := Spread(a, 2.5)
	assert.Equal(t, []float64{75, 80}, s)
	assert.Equal(t, []float64{100, 110}, a.Leg1, "input must not be mutated")
}

func TestPair_Name(t *testing.T) {
	p := Pair{Leg1: "ETHUSDT", Leg2: "BTCUSDT", HedgeRatio: 0.05}
	assert.Equal(t, "ETHUSDT/BTCUSDT", p.Name())
	assert.Contains(t, p.String(), "hr=0.050000")
}
