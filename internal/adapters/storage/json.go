package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// JSONStore implementa ports.StrategyStore escribiendo un array JSON indentado.
// Cada SaveStrategies reemplaza el archivo completo: se escribe a un temporal en
// el mismo directorio y luego se renombra, así un lector nunca ve un archivo a medias.
type JSONStore struct {
	path string
}

// NewJSONStore crea un store que escribe en path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path devuelve la ruta de salida.
func (s *JSONStore) Path() string {
	return s.path
}

// SaveStrategies escribe los registros en el orden dado. Una lista vacía produce `[]`.
func (s *JSONStore) SaveStrategies(ctx context.Context, records []domain.StrategyRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage.SaveStrategies: %w", err)
	}
	if records == nil {
		records = []domain.StrategyRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.SaveStrategies: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage.SaveStrategies: mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage.SaveStrategies: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op tras el rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.SaveStrategies: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.SaveStrategies: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("storage.SaveStrategies: rename to %q: %w", s.path, err)
	}
	return nil
}

// LoadStrategies lee un archivo escrito por SaveStrategies.
func (s *JSONStore) LoadStrategies(ctx context.Context) ([]domain.StrategyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadStrategies: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadStrategies: read %q: %w", s.path, err)
	}
	var records []domain.StrategyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage.LoadStrategies: decode %q: %w", s.path, err)
	}
	return records, nil
}
