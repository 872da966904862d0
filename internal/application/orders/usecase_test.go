package orders_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/stock-ledger/internal/application/ledger"
	"github.com/tu-usuario/stock-ledger/internal/application/orders"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/purchase"
	"github.com/tu-usuario/stock-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type engine struct {
	uc    *orders.OrderUseCase
	store *memory.Store
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	store := memory.NewStore()
	txRunner := memory.NewTxRunner(store)
	ledgerUC := ledger.NewRecordMovementUseCase(txRunner)
	uc := orders.NewOrderUseCase(
		txRunner,
		memory.NewOrderRepository(store),
		memory.NewItemRepository(store),
		ledgerUC,
	)
	return &engine{uc: uc, store: store}
}

func (e *engine) seedItem(t *testing.T, sku string, qty int64) *entity.Item {
	t.Helper()
	item := &entity.Item{
		ID:                uuid.New().String(),
		SKU:               sku,
		Name:              "Resma " + sku,
		CategoryID:        "papeleria",
		UnitPrice:         decimal.NewFromInt(12),
		SellingPrice:      decimal.NewFromInt(18),
		QuantityInStock:   qty,
		MinimumStockLevel: 10,
		UnitOfMeasurement: entity.UnitPieces,
		IsActive:          true,
	}
	require.NoError(t, memory.NewItemRepository(e.store).Create(item))
	return item
}

func (e *engine) stockOf(t *testing.T, itemID string) int64 {
	t.Helper()
	item, err := memory.NewItemRepository(e.store).GetByID(itemID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.QuantityInStock
}

func (e *engine) statusOf(t *testing.T, orderID string) string {
	t.Helper()
	order, err := memory.NewOrderRepository(e.store).GetByID(orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order.Status
}

func (e *engine) lineOf(t *testing.T, lineID string) *entity.OrderLine {
	t.Helper()
	line, err := memory.NewOrderRepository(e.store).GetLineByID(lineID)
	require.NoError(t, err)
	require.NotNil(t, line)
	return line
}

// placedOrder crea una orden con las cantidades indicadas y la lleva a ordered.
func (e *engine) placedOrder(t *testing.T, quantities ...int64) (*entity.Order, []*entity.OrderLine, []*entity.Item) {
	t.Helper()
	ctx := context.Background()
	order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
	require.NoError(t, err)

	var lines []*entity.OrderLine
	var items []*entity.Item
	for i, q := range quantities {
		item := e.seedItem(t, fmt.Sprintf("PAP-%03d", i+1), 0)
		line, err := e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
			ItemID:          item.ID,
			QuantityOrdered: q,
			UnitPrice:       decimal.NewFromInt(12),
		})
		require.NoError(t, err)
		lines = append(lines, line)
		items = append(items, item)
	}
	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusApproved))
	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusOrdered))
	return order, lines, items
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests CreateOrder
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: numeración PO-YYYYMMDD-NNN consecutiva dentro del día.
func TestCreateOrder_Numeracion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	today := time.Now().Format("20060102")

	for i := 1; i <= 3; i++ {
		order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("PO-%s-%03d", today, i), order.OrderNumber)
		assert.Equal(t, entity.OrderStatusPending, order.Status, "toda orden nace pending")
	}

	_, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "proveedor obligatorio")
}

// Caso 2: creadores concurrentes nunca producen números duplicados.
func TestCreateOrder_Concurrente(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
			if assert.NoError(t, err) {
				numbers <- order.OrderNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for num := range numbers {
		assert.False(t, seen[num], "número duplicado: %s", num)
		seen[num] = true
		_, _, ok := purchase.ParseOrderNumber(num)
		assert.True(t, ok, "número mal formado: %s", num)
	}
	assert.Len(t, seen, n)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests AddLine
// ──────────────────────────────────────────────────────────────────────────────

// Caso 3: líneas sobre órdenes pending/approved; validación de entradas.
func TestAddLine(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	item := e.seedItem(t, "PAP-100", 0)

	order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
	require.NoError(t, err)

	line, err := e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: item.ID, QuantityOrdered: 12, UnitPrice: decimal.RequireFromString("2.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), line.QuantityReceived, "la línea nace sin recepciones")

	// También sobre approved
	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusApproved))
	_, err = e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: item.ID, QuantityOrdered: 8, UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	total, err := e.uc.TotalAmount(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("110")),
		"12×2.50 + 8×10 = 110, obtenido %s", total)

	// Entradas inválidas
	_, err = e.uc.AddLine(ctx, order.ID, orders.AddLineInput{ItemID: item.ID, QuantityOrdered: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: item.ID, QuantityOrdered: 5, UnitPrice: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: uuid.New().String(), QuantityOrdered: 5,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "item inexistente")

	_, err = e.uc.AddLine(ctx, uuid.New().String(), orders.AddLineInput{
		ItemID: item.ID, QuantityOrdered: 5,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "orden inexistente")
}

// Caso 4: con la orden colocada, las líneas quedan congeladas.
func TestAddLine_LineasCongeladas(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, _, items := e.placedOrder(t, 10)

	_, err := e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: items[0].ID, QuantityOrdered: 5, UnitPrice: decimal.NewFromInt(12),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Transition
// ──────────────────────────────────────────────────────────────────────────────

// Caso 5: transiciones válidas e inválidas de la máquina de estados.
func TestTransition(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
	require.NoError(t, err)

	// Saltarse approved no está permitido
	err = e.uc.Transition(ctx, order.ID, entity.OrderStatusOrdered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, entity.OrderStatusPending, e.statusOf(t, order.ID), "el estado no debe cambiar")

	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusApproved))
	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusOrdered))
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID))

	// Estado objetivo desconocido
	err = e.uc.Transition(ctx, order.ID, "shipped")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// cancelled es alcanzable desde cualquier estado no terminal, y es terminal
	require.NoError(t, e.uc.Transition(ctx, order.ID, entity.OrderStatusCancelled))
	err = e.uc.Transition(ctx, order.ID, entity.OrderStatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "cancelled es terminal")

	err = e.uc.Transition(ctx, uuid.New().String(), entity.OrderStatusApproved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Caso 6: la transición explícita a received exige todas las líneas completas.
func TestTransition_RecibidaConLineasPendientes(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, lines, _ := e.placedOrder(t, 12, 8)

	// Recepción parcial: la primera línea completa, la segunda pendiente
	_, err := e.uc.Receive(ctx, lines[0].ID, 12, "almacenista")
	require.NoError(t, err)

	err = e.uc.Transition(ctx, order.ID, entity.OrderStatusReceived)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "con líneas pendientes no se cierra")
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Receive
// ──────────────────────────────────────────────────────────────────────────────

// Caso 7: recepción parcial y total; al completarse todas las líneas la orden
// se promueve sola a received y el stock refleja lo recibido.
func TestReceive_ParcialYTotal(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, lines, items := e.placedOrder(t, 12, 8)

	mov, err := e.uc.Receive(ctx, lines[0].ID, 5, "almacenista")
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeIn, mov.Type)
	assert.Equal(t, order.OrderNumber, mov.Reference, "el movimiento referencia el número de orden")
	assert.Equal(t, int64(5), e.stockOf(t, items[0].ID))
	assert.Equal(t, int64(5), e.lineOf(t, lines[0].ID).QuantityReceived)
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID), "con pendientes sigue abierta")

	_, err = e.uc.Receive(ctx, lines[0].ID, 7, "almacenista")
	require.NoError(t, err)
	assert.Equal(t, int64(12), e.lineOf(t, lines[0].ID).QuantityReceived)
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID), "falta la segunda línea")

	_, err = e.uc.Receive(ctx, lines[1].ID, 8, "almacenista")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReceived, e.statusOf(t, order.ID),
		"todas las líneas completas promueven la orden")
	assert.Equal(t, int64(12), e.stockOf(t, items[0].ID))
	assert.Equal(t, int64(8), e.stockOf(t, items[1].ID))

	// Orden ya terminal: no se recibe más
	_, err = e.uc.Receive(ctx, lines[0].ID, 1, "almacenista")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// Caso 8: recibir más de lo pendiente se rechaza sin tocar nada.
func TestReceive_SobreRecepcion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, lines, items := e.placedOrder(t, 10)

	_, err := e.uc.Receive(ctx, lines[0].ID, 4, "almacenista")
	require.NoError(t, err)

	_, err = e.uc.Receive(ctx, lines[0].ID, 7, "almacenista")
	assert.ErrorIs(t, err, domain.ErrOverReceipt, "4 + 7 > 10")
	assert.Equal(t, int64(4), e.lineOf(t, lines[0].ID).QuantityReceived)
	assert.Equal(t, int64(4), e.stockOf(t, items[0].ID))
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID))
}

// Caso 9: solo se recibe mercancía de órdenes approved u ordered.
func TestReceive_EstadoInvalido(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	item := e.seedItem(t, "PAP-200", 0)

	order, err := e.uc.CreateOrder(ctx, orders.CreateOrderInput{SupplierID: "prov-1"})
	require.NoError(t, err)
	line, err := e.uc.AddLine(ctx, order.ID, orders.AddLineInput{
		ItemID: item.ID, QuantityOrdered: 10, UnitPrice: decimal.NewFromInt(12),
	})
	require.NoError(t, err)

	_, err = e.uc.Receive(ctx, line.ID, 5, "almacenista")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "pending no admite recepciones")
	assert.Equal(t, int64(0), e.stockOf(t, item.ID))

	_, err = e.uc.Receive(ctx, line.ID, 0, "almacenista")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = e.uc.Receive(ctx, uuid.New().String(), 5, "almacenista")
	assert.ErrorIs(t, err, domain.ErrNotFound, "línea inexistente")
}

// Caso 10: un fallo a mitad de la recepción no deja mutación parcial en
// línea, stock ni estado de la orden.
func TestReceive_FalloEsAtomico(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, lines, items := e.placedOrder(t, 10)

	falla := errors.New("disco lleno")
	e.store.MovementCreateHook = func(*entity.StockMovement) error { return falla }

	_, err := e.uc.Receive(ctx, lines[0].ID, 10, "almacenista")
	require.ErrorIs(t, err, falla)
	assert.Equal(t, int64(0), e.lineOf(t, lines[0].ID).QuantityReceived, "la línea no debe avanzar")
	assert.Equal(t, int64(0), e.stockOf(t, items[0].ID), "el stock no debe subir")
	assert.Equal(t, entity.OrderStatusOrdered, e.statusOf(t, order.ID), "la orden no debe cerrarse")

	// Reintento sin fallo: misma recepción, ahora completa y cerrando la orden
	e.store.MovementCreateHook = nil
	_, err = e.uc.Receive(ctx, lines[0].ID, 10, "almacenista")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReceived, e.statusOf(t, order.ID))
	assert.Equal(t, int64(10), e.stockOf(t, items[0].ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Get
// ──────────────────────────────────────────────────────────────────────────────

// Caso 11: Get arma la orden con sus líneas.
func TestGet(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	order, lines, _ := e.placedOrder(t, 12, 8)

	got, err := e.uc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, lines[0].ID, got.Lines[0].ID, "las líneas conservan el orden de inserción")

	_, err = e.uc.Get(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
