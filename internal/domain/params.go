package domain

import (
	"errors"
	"fmt"
)

// ParameterSet es una combinación de parámetros de la regla de trading.
// Window está en la unidad nativa de las velas; los umbrales en desviaciones estándar.
// No se impone orden entre entry/exit/stop, aunque lo esperable es stop > entry > exit >= 0.
type ParameterSet struct {
	Window int
	EntryZ float64
	ExitZ  float64
	StopZ  float64
}

// DefaultParameterSet se usa cuando ningún candidato del grid es elegible.
var DefaultParameterSet = ParameterSet{Window: 60, EntryZ: 2.0, ExitZ: 0.0, StopZ: 4.0}

// String implementa fmt.Stringer.
func (p ParameterSet) String() string {
	return fmt.Sprintf("w=%d entry=%.2f exit=%.2f stop=%.2f", p.Window, p.EntryZ, p.ExitZ, p.StopZ)
}

// Grid es el producto cartesiano finito de candidatos.
//
// El orden canónico es window → entry → exit → stop (de fuera hacia dentro),
// recorriendo cada lista en el orden configurado. El desempate del optimizador
// depende de este orden.
type Grid struct {
	Windows []int
	EntryZs []float64
	ExitZs  []float64
	StopZs  []float64
}

// Size devuelve el número de combinaciones.
func (g Grid) Size() int {
	return len(g.Windows) * len(g.EntryZs) * len(g.ExitZs) * len(g.StopZs)
}

// At devuelve la combinación en la posición canónica i, junto con el índice de
// su ventana dentro de Windows (para indexar la matriz de z-scores).
func (g Grid) At(i int) (ParameterSet, int) {
	ns, nx, ne := len(g.StopZs), len(g.ExitZs), len(g.EntryZs)

	si := i % ns
	i /= ns
	xi := i % nx
	i /= nx
	ei := i % ne
	wi := i / ne

	return ParameterSet{
		Window: g.Windows[wi],
		EntryZ: g.EntryZs[ei],
		ExitZ:  g.ExitZs[xi],
		StopZ:  g.StopZs[si],
	}, wi
}

// All enumera todas las combinaciones en orden canónico.
func (g Grid) All() []ParameterSet {
	out := make([]ParameterSet, 0, g.Size())
	for _, w := range g.Windows {
		for _, en := range g.EntryZs {
			for _, ex := range g.ExitZs {
				for _, st := range g.StopZs {
					out = append(out, ParameterSet{Window: w, EntryZ: en, ExitZ: ex, StopZ: st})
				}
			}
		}
	}
	return out
}

// Validate comprueba que el grid sea utilizable. Es un error de configuración,
// no de un par concreto.
func (g Grid) Validate() error {
	var errs []error
	if len(g.Windows) == 0 {
		errs = append(errs, errors.New("windows is empty"))
	}
	if len(g.EntryZs) == 0 {
		errs = append(errs, errors.New("entry_zs is empty"))
	}
	if len(g.ExitZs) == 0 {
		errs = append(errs, errors.New("exit_zs is empty"))
	}
	if len(g.StopZs) == 0 {
		errs = append(errs, errors.New("stop_zs is empty"))
	}
	for _, w := range g.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("window %d must be positive", w))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("domain.Grid.Validate: %w", errors.Join(errs...))
	}
	return nil
}
