package repository

import (
	"time"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia para el ledger de
// movimientos (DIP). Append-only: no hay Update ni Delete.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	// ListByItem devuelve los movimientos de un item, más recientes primero.
	ListByItem(itemID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	// ListRecent devuelve los últimos movimientos globales (dashboard).
	ListRecent(limit int) ([]*entity.StockMovement, error)
	CountByItem(itemID string) (int64, error)
}
