package orders

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con los repos de
// órdenes, items y movimientos atados a ella. Receive la necesita completa:
// actualizar la línea, apendizar el movimiento y ajustar el stock deben ser
// una sola unidad atómica — nunca puede quedar stock acreditado sin línea
// actualizada, ni al revés.
type TxRunner interface {
	RunPurchase(ctx context.Context, fn func(
		orderRepo repository.OrderRepository,
		itemRepo repository.ItemRepository,
		movementRepo repository.StockMovementRepository,
	) error) error
}
