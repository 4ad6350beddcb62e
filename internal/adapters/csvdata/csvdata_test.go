package csvdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/statarb/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPriceStore_LoadSeries(t *testing.T) {
	dir := t.TempDir()
	// desordenado, con un duplicado y columnas extra
	writeFile(t, filepath.Join(dir, "BTCUSDT.csv"), strings.Join([]string{
		"open_time,open,close,volume",
		"1704067320000,1,42010.5,3",
		"1704067200000,1,42000,3",
		"1704067260000,1,42005,3",
		"1704067320000,1,42011,3",
	}, "\n")+"\n")

	s, err := NewPriceStore(dir).LoadSeries(context.Background(), "btcusdt")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", s.Symbol)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, time.UnixMilli(1704067200000).UTC(), s.Bars[0].Time)
	assert.Equal(t, 42000.0, s.Bars[0].Close)
	assert.Equal(t, 42005.0, s.Bars[1].Close)
	assert.Equal(t, 42011.0, s.Bars[2].Close, "duplicate keeps the last row")
}

func TestPriceStore_MissingSeries(t *testing.T) {
	dir := t.TempDir()
	store := NewPriceStore(dir)

	_, err := store.LoadSeries(context.Background(), "NOPEUSDT")
	assert.ErrorIs(t, err, domain.ErrMissingSeries)

	writeFile(t, filepath.Join(dir, "EMPTYUSDT.csv"), "open_time,close\n")
	_, err = store.LoadSeries(context.Background(), "EMPTYUSDT")
	assert.ErrorIs(t, err, domain.ErrMissingSeries)
}

func TestPriceStore_BadRows(t *testing.T) {
	dir := t.TempDir()
	store := NewPriceStore(dir)

	writeFile(t, filepath.Join(dir, "AUSDT.csv"), "open_time,close\n1704067200000,abc\n")
	_, err := store.LoadSeries(context.Background(), "AUSDT")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMissingSeries)
	assert.Contains(t, err.Error(), "line 2")

	writeFile(t, filepath.Join(dir, "BUSDT.csv"), "time,price\n1,2\n")
	_, err = store.LoadSeries(context.Background(), "BUSDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open_time")
}

func TestPriceStore_SaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prices")
	store := NewPriceStore(dir)
	ctx := context.Background()

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in := domain.PriceSeries{Symbol: "ETHUSDT", Bars: []domain.Bar{
		{Time: t0.Add(2 * time.Minute), Close: 3402.17},
		{Time: t0, Close: 3400.01},
		{Time: t0.Add(time.Minute), Close: 3401.5},
		{Time: t0.Add(time.Minute), Close: 3401.75},
	}}
	require.NoError(t, store.SaveSeries(ctx, in))

	// la entrada no se modifica
	assert.Equal(t, t0.Add(2*time.Minute), in.Bars[0].Time)

	out, err := store.LoadSeries(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{3400.01, 3401.75, 3402.17},
		[]float64{out.Bars[0].Close, out.Bars[1].Close, out.Bars[2].Close})
	assert.Equal(t, t0, out.Bars[0].Time)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPriceStore_SaveEmptySymbol(t *testing.T) {
	assert.Error(t, NewPriceStore(t.TempDir()).SaveSeries(context.Background(), domain.PriceSeries{}))
}

func TestPairsFile_LoadPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cointegrated_pairs.csv")
	writeFile(t, path, strings.Join([]string{
		"leg1,leg2,hedge_ratio,p_value,half_life,correlation",
		"ENAUSDT,LINKUSDT,0.0416,0.01,120,0.91",
		"dotusdt, btcusdt ,12.5,0.02,300,0.88",
	}, "\n")+"\n")

	pairs, err := NewPairsFile(path).LoadPairs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Pair{
		{Leg1: "ENAUSDT", Leg2: "LINKUSDT", HedgeRatio: 0.0416},
		{Leg1: "DOTUSDT", Leg2: "BTCUSDT", HedgeRatio: 12.5},
	}, pairs)
}

func TestPairsFile_ColumnOrderDoesNotMatter(t *testing.T) {
	pairs, err := readPairs(strings.NewReader("hedge_ratio,leg2,leg1\n2,B,A\n"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Pair{{Leg1: "A", Leg2: "B", HedgeRatio: 2}}, pairs)
}

func TestPairsFile_Errors(t *testing.T) {
	_, err := NewPairsFile(filepath.Join(t.TempDir(), "missing.csv")).LoadPairs(context.Background())
	assert.Error(t, err)

	_, err = readPairs(strings.NewReader("leg1,leg2\nA,B\n"))
	assert.ErrorContains(t, err, "hedge_ratio")

	_, err = readPairs(strings.NewReader("leg1,leg2,hedge_ratio\nA,,1\n"))
	assert.ErrorContains(t, err, "empty symbol")

	_, err = readPairs(strings.NewReader("leg1,leg2,hedge_ratio\nA,B,NaN\n"))
	assert.ErrorContains(t, err, "non-finite")

	pairs, err := readPairs(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
