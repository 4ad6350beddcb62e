package ports

import (
	"context"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// Notifier presenta el resultado de una ejecución al usuario.
type Notifier interface {
	// Notify muestra el resumen de la ejecución.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, report domain.RunReport) error
}
