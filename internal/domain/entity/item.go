package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unidades de medida permitidas para un Item.
const (
	UnitPieces = "pieces"
	UnitKg     = "kg"
	UnitLiters = "liters"
	UnitMeters = "meters"
	UnitBoxes  = "boxes"
)

// ValidUnit verifica que la unidad de medida sea una de las permitidas.
func ValidUnit(u string) bool {
	switch u {
	case UnitPieces, UnitKg, UnitLiters, UnitMeters, UnitBoxes:
		return true
	}
	return false
}

// Item representa un artículo del catálogo (SKU único).
// QuantityInStock solo lo muta el ledger mediante movimientos; ningún otro
// componente escribe ese campo.
type Item struct {
	ID                string
	SKU               string // código único
	Name              string
	Description       string
	CategoryID        string
	SupplierID        string // opcional
	UnitPrice         decimal.Decimal // costo unitario
	SellingPrice      decimal.Decimal // precio de venta
	QuantityInStock   int64 // nunca negativo, propiedad del ledger
	MinimumStockLevel int64 // umbral de alerta de stock bajo
	UnitOfMeasurement string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CreatedBy         string
}

// IsLowStock indica si el stock está en o por debajo del umbral mínimo.
func (i *Item) IsLowStock() bool {
	return i.QuantityInStock <= i.MinimumStockLevel
}

// StockValue calcula el valor del stock en mano (cantidad × costo unitario).
func (i *Item) StockValue() decimal.Decimal {
	return decimal.NewFromInt(i.QuantityInStock).Mul(i.UnitPrice)
}

// ProfitMargin calcula el margen porcentual ((venta − costo) / costo × 100).
// Devuelve 0 si el costo unitario es 0.
func (i *Item) ProfitMargin() decimal.Decimal {
	if i.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return i.SellingPrice.Sub(i.UnitPrice).Div(i.UnitPrice).Mul(hundred)
}
