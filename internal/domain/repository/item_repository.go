package repository

import (
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item (DIP).
// GetByID/GetBySKU devuelven (nil, nil) si no existe.
// UpdateMetadata nunca escribe quantity_in_stock: ese campo es propiedad
// exclusiva del ledger y solo se muta con UpdateQuantity dentro de una
// transacción que también registra el movimiento.
type ItemRepository interface {
	Create(item *entity.Item) error
	GetByID(id string) (*entity.Item, error)
	GetBySKU(sku string) (*entity.Item, error)
	// GetForUpdate bloquea la fila del item para la transacción en curso
	// (SELECT FOR UPDATE o equivalente). Serializa los escritores por item.
	GetForUpdate(id string) (*entity.Item, error)
	UpdateMetadata(item *entity.Item) error
	UpdateQuantity(id string, quantity int64) error
	SetActive(id string, active bool) error
	ListActive(limit, offset int) ([]*entity.Item, error)
	// ListLowStock devuelve los items activos con stock en o bajo el umbral.
	ListLowStock() ([]*entity.Item, error)
	// TotalStockValue suma cantidad × costo unitario sobre los items activos.
	TotalStockValue() (decimal.Decimal, error)
	CountActive() (int64, error)
}
