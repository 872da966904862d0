package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

// Política de reintento ante contención transitoria (domain.ErrBusy).
const (
	maxAttempts = 3
	baseBackoff = 25 * time.Millisecond
)

// RecordMovementUseCase es la única autoridad que muta Item.QuantityInStock.
// Cada Record exitoso apendiza un movimiento al ledger y ajusta la cantidad
// del item en la misma transacción; en caso de error no queda ni movimiento
// ni cambio de cantidad.
type RecordMovementUseCase struct {
	txRunner TxRunner
}

// NewRecordMovementUseCase construye el caso de uso.
func NewRecordMovementUseCase(txRunner TxRunner) *RecordMovementUseCase {
	return &RecordMovementUseCase{txRunner: txRunner}
}

// MovementInput entrada para registrar un movimiento de stock.
// Para in/out, Quantity es la cantidad movida (positiva).
// Para adjustment, Quantity es el valor absoluto contado (no un delta):
// el stock queda en max(0, Quantity).
type MovementInput struct {
	ItemID    string
	Type      string // in, out, adjustment
	Quantity  int64
	Reference string
	Notes     string
	ActorID   string
}

// Record registra un movimiento de forma atómica respecto al Item:
// bloquea la fila del item, aplica la regla según tipo, escribe la nueva
// cantidad y apendiza el movimiento — todo en una sola transacción.
//
// Reglas por tipo:
//   - in:  nueva = actual + cantidad (sin tope superior)
//   - out: falla con ErrInsufficientStock si cantidad > actual
//   - adjustment: nueva = max(0, cantidad); se registra incluso si la
//     cantidad contada coincide con la actual (evento de auditoría válido)
func (uc *RecordMovementUseCase) Record(ctx context.Context, input MovementInput) (*entity.StockMovement, error) {
	if input.ItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch input.Type {
	case entity.MovementTypeIn, entity.MovementTypeOut:
		if input.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	case entity.MovementTypeAdjustment:
		if input.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
	default:
		return nil, domain.ErrInvalidInput
	}

	var movement *entity.StockMovement
	err := runWithRetry(ctx, func() error {
		return uc.txRunner.Run(ctx, func(
			itemRepo repository.ItemRepository,
			movementRepo repository.StockMovementRepository,
		) error {
			mov, err := applyMovement(itemRepo, movementRepo, input)
			if err != nil {
				return err
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

// applyMovement ejecuta la sección crítica con los repos atados a la tx.
// Reutilizado por el motor de órdenes para la recepción de mercancía, que
// comparte transacción con la actualización de la línea.
func applyMovement(
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
	input MovementInput,
) (*entity.StockMovement, error) {
	// Bloquea la fila del item: serializa lectura-verificación-escritura
	item, err := itemRepo.GetForUpdate(input.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	var newQuantity int64
	switch input.Type {
	case entity.MovementTypeIn:
		newQuantity = item.QuantityInStock + input.Quantity
	case entity.MovementTypeOut:
		if input.Quantity > item.QuantityInStock {
			return nil, domain.ErrInsufficientStock
		}
		newQuantity = item.QuantityInStock - input.Quantity
	case entity.MovementTypeAdjustment:
		newQuantity = input.Quantity
		if newQuantity < 0 {
			newQuantity = 0
		}
	}

	if err := itemRepo.UpdateQuantity(item.ID, newQuantity); err != nil {
		return nil, err
	}
	movement := &entity.StockMovement{
		ID:        uuid.New().String(),
		ItemID:    item.ID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Reference: input.Reference,
		Notes:     input.Notes,
		CreatedAt: time.Now(),
		CreatedBy: input.ActorID,
	}
	if err := movementRepo.Create(movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// RecordMovementInTx registra un movimiento usando repositorios ya atados a
// la transacción del caller (misma tx del motor de órdenes en Receive).
func (uc *RecordMovementUseCase) RecordMovementInTx(
	itemRepo repository.ItemRepository,
	movementRepo repository.StockMovementRepository,
	input MovementInput,
) (*entity.StockMovement, error) {
	switch input.Type {
	case entity.MovementTypeIn, entity.MovementTypeOut:
		if input.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	case entity.MovementTypeAdjustment:
		if input.Quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}
	default:
		return nil, domain.ErrInvalidInput
	}
	return applyMovement(itemRepo, movementRepo, input)
}

// runWithRetry reintenta ante domain.ErrBusy con backoff exponencial acotado.
// Cualquier otro error corta de inmediato; la contención persistente se
// devuelve al caller como ErrBusy en lugar de colgar.
func runWithRetry(ctx context.Context, fn func() error) error {
	backoff := baseBackoff
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
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
