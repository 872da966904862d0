package memory

import (
	"context"

	"github.com/tu-usuario/stock-ledger/internal/application/ledger"
	"github.com/tu-usuario/stock-ledger/internal/application/orders"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)
var _ orders.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks contra el Store con semántica transaccional:
// los repos que recibe el callback bufferizan sus escrituras en un journal
// que se aplica completo al commit o se descarta si fn devuelve error.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run transacción del ledger: repos de items y movimientos.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: r.store}
	itemRepo := &ItemRepo{store: r.store, tx: tx}
	movementRepo := &StockMovementRepo{store: r.store, tx: tx}
	if err := fn(itemRepo, movementRepo); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// RunPurchase transacción del motor de órdenes: repos de órdenes, items y
// movimientos (Receive necesita los tres como unidad atómica).
func (r *TxRunner) RunPurchase(ctx context.Context, fn func(
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: r.store}
	orderRepo := &OrderRepo{store: r.store, tx: tx}
	itemRepo := &ItemRepo{store: r.store, tx: tx}
	movementRepo := &StockMovementRepo{store: r.store, tx: tx}
	if err := fn(orderRepo, itemRepo, movementRepo); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}
