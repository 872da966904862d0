package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/stock-ledger/internal/application/ledger"
	"github.com/tu-usuario/stock-ledger/internal/application/orders"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner and orders.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)
var _ orders.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con
// lock_timeout acotado: la contención persistente sale como domain.ErrBusy,
// nunca como una espera indefinida.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción del ledger, ejecuta fn con repos atados a la tx
// y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	itemRepo := NewItemRepository(tx)
	movementRepo := NewStockMovementRepository(tx)

	if err := fn(itemRepo, movementRepo); err != nil {
		if isLockContention(err) {
			return domain.ErrBusy
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isLockContention(err) {
			return domain.ErrBusy
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunPurchase inicia una transacción con repos de órdenes, items y
// movimientos (para Receive y demás operaciones del motor de órdenes).
func (r *TxRunner) RunPurchase(ctx context.Context, fn func(
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	orderRepo := NewOrderRepository(tx)
	itemRepo := NewItemRepository(tx)
	movementRepo := NewStockMovementRepository(tx)

	if err := fn(orderRepo, itemRepo, movementRepo); err != nil {
		if isLockContention(err) {
			return domain.ErrBusy
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isLockContention(err) {
			return domain.ErrBusy
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
