package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/application/ledger"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/purchase"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// Política de reintento: colisiones de número de orden y contención
// transitoria (domain.ErrBusy) se reintentan acotadamente, nunca en bucle.
const (
	maxNumberAttempts = 5
	maxBusyAttempts   = 3
	baseBackoff       = 25 * time.Millisecond
)

// OrderUseCase motor de órdenes de compra: ciclo de vida
// pending → approved → ordered → received (cancelled desde cualquier estado
// no terminal), líneas congeladas una vez colocada la orden, y recepción de
// mercancía que delega el alta de stock al ledger en la misma transacción.
type OrderUseCase struct {
	txRunner  TxRunner
	orderRepo repository.OrderRepository
	itemRepo  repository.ItemRepository
	ledgerUC  *ledger.RecordMovementUseCase
}

// NewOrderUseCase construye el motor de órdenes.
func NewOrderUseCase(
	txRunner TxRunner,
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	ledgerUC *ledger.RecordMovementUseCase,
) *OrderUseCase {
	return &OrderUseCase{
		txRunner:  txRunner,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		ledgerUC:  ledgerUC,
	}
}

// CreateOrderInput datos para crear una orden de compra.
type CreateOrderInput struct {
	SupplierID           string
	ExpectedDeliveryDate *time.Time
	Notes                string
	ActorID              string
}

// CreateOrder crea una orden en estado pending con número PO-YYYYMMDD-NNN.
// El consecutivo sale de la secuencia monótona por día del repositorio; si
// aun así el insert choca con un número existente (ErrDuplicate), se pide un
// consecutivo nuevo y se reintenta, nunca se produce un duplicado silencioso.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	if in.SupplierID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		seq, err := uc.orderRepo.NextOrderNumber(now)
		if err != nil {
			return nil, err
		}
		order := &entity.Order{
			ID:                   uuid.New().String(),
			OrderNumber:          purchase.FormatOrderNumber(now, seq),
			SupplierID:           in.SupplierID,
			Status:               entity.OrderStatusPending,
			OrderDate:            now,
			ExpectedDeliveryDate: in.ExpectedDeliveryDate,
			Notes:                in.Notes,
			CreatedBy:            in.ActorID,
		}
		err = uc.orderRepo.Create(order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// AddLineInput datos para agregar una línea a una orden.
type AddLineInput struct {
	ItemID          string
	QuantityOrdered int64
	// UnitPrice queda congelado en la línea, independiente del precio
	// actual del item.
	UnitPrice decimal.Decimal
}

// AddLine agrega una línea a una orden en estado pending o approved.
// Con la orden ya colocada (ordered) o terminal, las líneas están congeladas.
func (uc *OrderUseCase) AddLine(ctx context.Context, orderID string, in AddLineInput) (*entity.OrderLine, error) {
	if in.QuantityOrdered <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.UnitPrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	var line *entity.OrderLine
	err := uc.runBusyRetry(ctx, func() error {
		return uc.txRunner.RunPurchase(ctx, func(
			orderRepo repository.OrderRepository,
			itemRepo repository.ItemRepository,
			_ repository.StockMovementRepository,
		) error {
			order, err := orderRepo.GetForUpdate(orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return domain.ErrNotFound
			}
			if order.LinesFrozen() {
				return domain.ErrInvalidState
			}
			item, err := itemRepo.GetByID(in.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrNotFound
			}
			line = &entity.OrderLine{
				ID:              uuid.New().String(),
				OrderID:         order.ID,
				ItemID:          item.ID,
				QuantityOrdered: in.QuantityOrdered,
				UnitPrice:       in.UnitPrice,
			}
			return orderRepo.AddLine(line)
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Transition mueve la orden al estado objetivo si la máquina de estados lo
// permite. La única promoción automática es a received (vía Receive); una
// transición explícita a received exige que todas las líneas estén
// completamente recibidas.
func (uc *OrderUseCase) Transition(ctx context.Context, orderID, target string) error {
	if !entity.ValidOrderStatus(target) {
		return domain.ErrInvalidInput
	}
	return uc.runBusyRetry(ctx, func() error {
		return uc.txRunner.RunPurchase(ctx, func(
			orderRepo repository.OrderRepository,
			_ repository.ItemRepository,
			_ repository.StockMovementRepository,
		) error {
			order, err := orderRepo.GetForUpdate(orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return domain.ErrNotFound
			}
			if !entity.CanTransitionTo(order.Status, target) {
				return domain.ErrInvalidTransition
			}
			if target == entity.OrderStatusReceived {
				lines, err := orderRepo.ListLines(order.ID)
				if err != nil {
					return err
				}
				order.Lines = lines
				if !order.FullyReceived() {
					return domain.ErrInvalidState
				}
			}
			return orderRepo.UpdateStatus(order.ID, target)
		})
	})
}

// Receive registra la llegada de mercancía contra una línea: incrementa
// quantity_received, delega al ledger el movimiento "in" (referencia = número
// de orden) y, si con esto todas las líneas quedan completas, promueve la
// orden a received — todo dentro de una sola transacción. Un fallo en
// cualquier paso deja línea, orden y stock exactamente como estaban.
func (uc *OrderUseCase) Receive(ctx context.Context, lineID string, quantity int64, actorID string) (*entity.StockMovement, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	// Lectura fuera de la tx solo para conocer la orden; dentro de la tx se
	// relee con la fila de la orden bloqueada (orden primero, item después:
	// orden fija de bloqueo para evitar deadlocks).
	peek, err := uc.orderRepo.GetLineByID(lineID)
	if err != nil {
		return nil, err
	}
	if peek == nil {
		return nil, domain.ErrNotFound
	}

	var movement *entity.StockMovement
	err = uc.runBusyRetry(ctx, func() error {
		return uc.txRunner.RunPurchase(ctx, func(
			orderRepo repository.OrderRepository,
			itemRepo repository.ItemRepository,
			movementRepo repository.StockMovementRepository,
		) error {
			order, err := orderRepo.GetForUpdate(peek.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return domain.ErrNotFound
			}
			// Solo se recibe mercancía de una orden aprobada o colocada
			if order.Status != entity.OrderStatusApproved && order.Status != entity.OrderStatusOrdered {
				return domain.ErrInvalidState
			}
			line, err := orderRepo.GetLineByID(lineID)
			if err != nil {
				return err
			}
			if line == nil {
				return domain.ErrNotFound
			}
			if line.QuantityReceived+quantity > line.QuantityOrdered {
				return domain.ErrOverReceipt
			}

			if err := orderRepo.UpdateLineReceived(line.ID, line.QuantityReceived+quantity); err != nil {
				return err
			}
			mov, err := uc.ledgerUC.RecordMovementInTx(itemRepo, movementRepo, ledger.MovementInput{
				ItemID:    line.ItemID,
				Type:      entity.MovementTypeIn,
				Quantity:  quantity,
				Reference: order.OrderNumber,
				Notes:     "recepción de orden de compra",
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}

			// Promoción automática: refleja un hecho derivable, no una
			// decisión del caller
			lines, err := orderRepo.ListLines(order.ID)
			if err != nil {
				return err
			}
			for _, l := range lines {
				if l.ID == line.ID {
					l.QuantityReceived = line.QuantityReceived + quantity
				}
			}
			order.Lines = lines
			if order.FullyReceived() {
				if err := orderRepo.UpdateStatus(order.ID, entity.OrderStatusReceived); err != nil {
					return err
				}
			}
			movement = mov
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// Get obtiene una orden con sus líneas.
func (uc *OrderUseCase) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.orderRepo.ListLines(order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return order, nil
}

// TotalAmount recalcula el total de la orden sobre sus líneas actuales.
func (uc *OrderUseCase) TotalAmount(ctx context.Context, orderID string) (decimal.Decimal, error) {
	order, err := uc.Get(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return order.TotalAmount(), nil
}

// runBusyRetry reintenta ante domain.ErrBusy con backoff exponencial acotado.
func (uc *OrderUseCase) runBusyRetry(ctx context.Context, fn func() error) error {
	backoff := baseBackoff
	var err error
	for attempt := 0; attempt < maxBusyAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrBusy) {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}
