package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// Caso 1: stock por debajo, en y por encima del umbral mínimo.
func TestItem_IsLowStock(t *testing.T) {
	item := &entity.Item{MinimumStockLevel: 10}

	item.QuantityInStock = 5
	assert.True(t, item.IsLowStock(), "bajo el umbral debe alertar")

	item.QuantityInStock = 10
	assert.True(t, item.IsLowStock(), "exactamente en el umbral también alerta")

	item.QuantityInStock = 11
	assert.False(t, item.IsLowStock(), "sobre el umbral no alerta")
}

// Caso 2: valorización = cantidad × costo unitario.
func TestItem_StockValue(t *testing.T) {
	item := &entity.Item{
		QuantityInStock: 45,
		UnitPrice:       decimal.RequireFromString("3.50"),
	}
	assert.True(t, item.StockValue().Equal(decimal.RequireFromString("157.50")),
		"valor esperado 157.50, obtenido %s", item.StockValue())
}

// Caso 3: margen porcentual sobre el costo; costo 0 devuelve 0 en lugar de dividir.
func TestItem_ProfitMargin(t *testing.T) {
	item := &entity.Item{
		UnitPrice:    decimal.NewFromInt(100),
		SellingPrice: decimal.NewFromInt(150),
	}
	assert.True(t, item.ProfitMargin().Equal(decimal.NewFromInt(50)),
		"margen esperado 50%%, obtenido %s", item.ProfitMargin())

	free := &entity.Item{UnitPrice: decimal.Zero, SellingPrice: decimal.NewFromInt(10)}
	assert.True(t, free.ProfitMargin().IsZero(), "costo 0 no debe dividir")
}

// Caso 4: unidades de medida permitidas.
func TestValidUnit(t *testing.T) {
	for _, u := range []string{"pieces", "kg", "liters", "meters", "boxes"} {
		assert.True(t, entity.ValidUnit(u), "unidad %q debe ser válida", u)
	}
	assert.False(t, entity.ValidUnit("toneladas"))
	assert.False(t, entity.ValidUnit(""))
}
