package csvdata

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// PairsFile lee la tabla de pares candidatos (leg1, leg2, hedge_ratio).
// Las columnas se buscan por nombre; cualquier otra (p_value, half_life, ...) se ignora.
// Implementa ports.PairSource.
type PairsFile struct {
	path string
}

// NewPairsFile crea un PairSource sobre path.
func NewPairsFile(path string) *PairsFile {
	return &PairsFile{path: path}
}

// LoadPairs devuelve los pares en el orden del archivo.
func (p *PairsFile) LoadPairs(ctx context.Context) ([]domain.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("csvdata.LoadPairs: %w", err)
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("csvdata.LoadPairs: open %q: %w", p.path, err)
	}
	defer f.Close()

	return readPairs(f)
}

func readPairs(src io.Reader) ([]domain.Pair, error) {
	r := csv.NewReader(bufio.NewReader(src))
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvdata.LoadPairs: read header: %w", err)
	}
	cols, err := columnIndex(header, "leg1", "leg2", "hedge_ratio")
	if err != nil {
		return nil, fmt.Errorf("csvdata.LoadPairs: %w", err)
	}

	var pairs []domain.Pair
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvdata.LoadPairs: line %d: %w", line, err)
		}

		leg1 := strings.ToUpper(strings.TrimSpace(rec[cols[0]]))
		leg2 := strings.ToUpper(strings.TrimSpace(rec[cols[1]]))
		if leg1 == "" || leg2 == "" {
			return nil, fmt.Errorf("csvdata.LoadPairs: line %d: empty symbol", line)
		}
		hr, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[2]]), 64)
		if err != nil {
			return nil, fmt.Errorf("csvdata.LoadPairs: line %d: hedge_ratio: %w", line, err)
		}
		if math.IsNaN(hr) || math.IsInf(hr, 0) {
			return nil, fmt.Errorf("csvdata.LoadPairs: line %d: non-finite hedge_ratio", line)
		}

		pairs = append(pairs, domain.Pair{Leg1: leg1, Leg2: leg2, HedgeRatio: hr})
	}
	return pairs, nil
}
