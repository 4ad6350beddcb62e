// Package csvdata lee y escribe los datos de entrada del optimizador en CSV:
// el histórico de cierres por símbolo y la tabla de pares candidatos.
package csvdata

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/statarb/internal/domain"
)

const (
	colOpenTime = "open_time" // Unix ms
	colClose    = "close"
)

// PriceStore guarda un CSV por símbolo en dir: <dir>/<SYMBOL>.csv.
// Implementa ports.PriceSource y ports.SeriesWriter.
type PriceStore struct {
	dir string
}

// NewPriceStore crea un store sobre dir. El directorio se crea al escribir.
func NewPriceStore(dir string) *PriceStore {
	return &PriceStore{dir: dir}
}

// Path devuelve la ruta del archivo de un símbolo.
func (s *PriceStore) Path(symbol string) string {
	return filepath.Join(s.dir, strings.ToUpper(symbol)+".csv")
}

// LoadSeries lee el histórico de symbol, ordenado y sin timestamps repetidos
// (ante duplicados gana la última fila). Si el archivo no existe o no tiene
// filas devuelve un error que envuelve domain.ErrMissingSeries.
func (s *PriceStore) LoadSeries(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: %w", symbol, err)
	}

	path := s.Path(symbol)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: %w", symbol, domain.ErrMissingSeries)
	}
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: open: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: empty file: %w", symbol, domain.ErrMissingSeries)
	}
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: read header: %w", symbol, err)
	}
	cols, err := columnIndex(header, colOpenTime, colClose)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: %w", symbol, err)
	}
	iTime, iClose := cols[0], cols[1]

	series := domain.PriceSeries{Symbol: strings.ToUpper(symbol)}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: line %d: %w", symbol, line, err)
		}

		ms, err := strconv.ParseInt(strings.TrimSpace(rec[iTime]), 10, 64)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: line %d: open_time: %w", symbol, line, err)
		}
		closeP, err := strconv.ParseFloat(strings.TrimSpace(rec[iClose]), 64)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: line %d: close: %w", symbol, line, err)
		}
		series.Bars = append(series.Bars, domain.Bar{Time: time.UnixMilli(ms).UTC(), Close: closeP})
	}

	if len(series.Bars) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("csvdata.LoadSeries %s: no rows: %w", symbol, domain.ErrMissingSeries)
	}
	series.Bars = normalizeBars(series.Bars)
	return series, nil
}

// SaveSeries escribe la serie completa reemplazando el archivo anterior.
func (s *PriceStore) SaveSeries(ctx context.Context, series domain.PriceSeries) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("csvdata.SaveSeries %s: %w", series.Symbol, err)
	}
	if series.Symbol == "" {
		return fmt.Errorf("csvdata.SaveSeries: empty symbol")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csvdata.SaveSeries %s: mkdir: %w", series.Symbol, err)
	}

	path := s.Path(series.Symbol)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvdata.SaveSeries %s: create temp: %w", series.Symbol, err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriterSize(tmp, 1<<20)
	w := csv.NewWriter(bw)
	_ = w.Write([]string{colOpenTime, colClose})
	for _, b := range normalizeBars(slices.Clone(series.Bars)) {
		_ = w.Write([]string{
			strconv.FormatInt(b.Time.UnixMilli(), 10),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("csvdata.SaveSeries %s: write: %w", series.Symbol, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("csvdata.SaveSeries %s: flush: %w", series.Symbol, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvdata.SaveSeries %s: close: %w", series.Symbol, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csvdata.SaveSeries %s: rename: %w", series.Symbol, err)
	}
	return nil
}

// normalizeBars ordena por tiempo y colapsa timestamps repetidos quedándose
// con la última aparición. Modifica bars.
func normalizeBars(bars []domain.Bar) []domain.Bar {
	slices.SortStableFunc(bars, func(a, b domain.Bar) int {
		return a.Time.Compare(b.Time)
	})
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// columnIndex busca las columnas pedidas en el header (sin distinguir mayúsculas).
func columnIndex(header []string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = slices.IndexFunc(header, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), name)
		})
		if idx[i] < 0 {
			return nil, fmt.Errorf("missing column %q in header %v", name, header)
		}
	}
	return idx, nil
}
