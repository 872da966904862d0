package ledger

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de almacenamiento,
// pasando repositorios atados a esa transacción. Garantiza que la lectura del
// stock, la verificación, la escritura de la nueva cantidad y el append del
// movimiento sean indivisibles frente a cualquier operación concurrente
// sobre el mismo Item.
//
// Si la adquisición del bloqueo excede el límite del adaptador, Run devuelve
// domain.ErrBusy y el caso de uso reintenta con backoff acotado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		movementRepo repository.StockMovementRepository,
	) error) error
}
