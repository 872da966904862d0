package query

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// StockQueryUseCase vistas derivadas de solo lectura sobre catálogo, ledger
// y órdenes. Cada consulta es función pura del estado confirmado al momento
// de la llamada: sin efectos, sin capa de caché que pueda quedar obsoleta.
type StockQueryUseCase struct {
	itemRepo     repository.ItemRepository
	movementRepo repository.StockMovementRepository
	orderRepo    repository.OrderRepository
}

// NewStockQueryUseCase construye la fachada de consultas.
func NewStockQueryUseCase(
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
	orderRepo repository.OrderRepository,
) *StockQueryUseCase {
	return &StockQueryUseCase{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		orderRepo:    orderRepo,
	}
}

// LowStockItems devuelve los items activos con stock en o bajo su umbral
// mínimo.
func (uc *StockQueryUseCase) LowStockItems(ctx context.Context) ([]*entity.Item, error) {
	return uc.itemRepo.ListLowStock()
}

// StockValuation devuelve la valorización total del stock de items activos
// (Σ cantidad × costo unitario).
func (uc *StockQueryUseCase) StockValuation(ctx context.Context) (decimal.Decimal, error) {
	return uc.itemRepo.TotalStockValue()
}

// MovementHistory devuelve el historial de movimientos de un item, más
// recientes primero.
func (uc *StockQueryUseCase) MovementHistory(ctx context.Context, itemID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return uc.movementRepo.ListByItem(itemID, from, to, limit, offset)
}

// OpenOrders devuelve el backlog: órdenes que no están en received ni
// cancelled, más recientes primero.
func (uc *StockQueryUseCase) OpenOrders(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	return uc.orderRepo.ListOpen(limit, offset)
}

// DashboardSummary agregados del tablero de inventario.
type DashboardSummary struct {
	TotalActiveItems int64
	LowStockCount    int64
	TotalStockValue  decimal.Decimal
	RecentMovements  []*entity.StockMovement
}

// Dashboard arma el resumen general: conteo de items activos, alertas de
// stock bajo, valorización total y últimos movimientos.
func (uc *StockQueryUseCase) Dashboard(ctx context.Context, recentLimit int) (*DashboardSummary, error) {
	total, err := uc.itemRepo.CountActive()
	if err != nil {
		return nil, err
	}
	lowStock, err := uc.itemRepo.ListLowStock()
	if err != nil {
		return nil, err
	}
	value, err := uc.itemRepo.TotalStockValue()
	if err != nil {
		return nil, err
	}
	recent, err := uc.movementRepo.ListRecent(recentLimit)
	if err != nil {
		return nil, err
	}
	return &DashboardSummary{
		TotalActiveItems: total,
		LowStockCount:    int64(len(lowStock)),
		TotalStockValue:  value,
		RecentMovements:  recent,
	}, nil
}
