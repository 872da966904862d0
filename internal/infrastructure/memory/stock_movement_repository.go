package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación en memoria del ledger (append-only).
type StockMovementRepo struct {
	store *Store
	tx    *memTx
}

// NewStockMovementRepository construye el adaptador sin transacción.
func NewStockMovementRepository(store *Store) *StockMovementRepo {
	return &StockMovementRepo{store: store}
}

// Create apendiza un movimiento al ledger.
func (r *StockMovementRepo) Create(movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	if hook := r.store.MovementCreateHook; hook != nil {
		if err := hook(movement); err != nil {
			return err
		}
	}
	c := cloneMovement(movement)
	apply := func() {
		r.store.movements = append(r.store.movements, c)
		r.store.movementByID[c.ID] = c
	}
	if r.tx != nil {
		r.tx.stage(apply)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	apply()
	return nil
}

// GetByID obtiene un movimiento por ID; (nil, nil) si no existe.
func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMovement(s.movementByID[id]), nil
}

// ListByItem movimientos de un item, más recientes primero.
func (r *StockMovementRepo) ListByItem(itemID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*entity.StockMovement
	// El slice interno está en orden de inserción; se recorre al revés
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if m.ItemID != itemID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		list = append(list, cloneMovement(m))
	}
	return paginate(list, limit, offset), nil
}

// ListRecent últimos movimientos globales.
func (r *StockMovementRepo) ListRecent(limit int) ([]*entity.StockMovement, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*entity.StockMovement
	for i := len(s.movements) - 1; i >= 0 && (limit <= 0 || len(list) < limit); i-- {
		list = append(list, cloneMovement(s.movements[i]))
	}
	return list, nil
}

// CountByItem cuenta los movimientos de un item.
func (r *StockMovementRepo) CountByItem(itemID string) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.movements {
		if m.ItemID == itemID {
			n++
		}
	}
	return n, nil
}
