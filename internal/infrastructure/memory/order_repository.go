package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación en memoria de OrderRepository.
type OrderRepo struct {
	store *Store
	tx    *memTx
}

// NewOrderRepository construye el adaptador sin transacción.
func NewOrderRepository(store *Store) *OrderRepo {
	return &OrderRepo{store: store}
}

// Create persiste la cabecera. La verificación de unicidad del número y el
// insert son un solo paso bajo el mutex del store (equivale al índice único
// de la tabla): dos creadores concurrentes con el mismo número ven
// ErrDuplicate, nunca un duplicado silencioso.
func (r *OrderRepo) Create(order *entity.Order) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orderNumbers[order.OrderNumber]; exists {
		return domain.ErrDuplicate
	}
	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrDuplicate
	}
	s.orders[order.ID] = cloneOrder(order)
	s.orderNumbers[order.OrderNumber] = order.ID
	return nil
}

// GetByID obtiene la cabecera por ID; (nil, nil) si no existe.
func (r *OrderRepo) GetByID(id string) (*entity.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrder(s.orders[id]), nil
}

// GetByNumber obtiene la cabecera por número de orden.
func (r *OrderRepo) GetByNumber(number string) (*entity.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.orderNumbers[number]
	if !ok {
		return nil, nil
	}
	return cloneOrder(s.orders[id]), nil
}

// GetForUpdate toma el bloqueo de la orden para la tx en curso. Serializa
// AddLine, Transition y Receive sobre la misma orden.
func (r *OrderRepo) GetForUpdate(id string) (*entity.Order, error) {
	if r.tx != nil {
		if err := r.tx.lockEntity("order:" + id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(id)
}

// UpdateStatus escribe el nuevo estado de la orden.
func (r *OrderRepo) UpdateStatus(id, status string) error {
	apply := func() {
		if order, ok := r.store.orders[id]; ok {
			order.Status = status
		}
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

// AddLine agrega una línea a su orden.
func (r *OrderRepo) AddLine(line *entity.OrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	c := cloneLine(line)
	apply := func() {
		r.store.lines[c.ID] = c
		r.store.linesByOrder[c.OrderID] = append(r.store.linesByOrder[c.OrderID], c.ID)
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

// GetLineByID obtiene una línea por ID; (nil, nil) si no existe.
func (r *OrderRepo) GetLineByID(id string) (*entity.OrderLine, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLine(s.lines[id]), nil
}

// UpdateLineReceived escribe la cantidad recibida acumulada de la línea.
func (r *OrderRepo) UpdateLineReceived(lineID string, quantityReceived int64) error {
	apply := func() {
		if line, ok := r.store.lines[lineID]; ok {
			line.QuantityReceived = quantityReceived
		}
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

// ListLines líneas de una orden en orden de inserción.
func (r *OrderRepo) ListLines(orderID string) ([]*entity.OrderLine, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.linesByOrder[orderID]
	list := make([]*entity.OrderLine, 0, len(ids))
	for _, id := range ids {
		if line, ok := s.lines[id]; ok {
			list = append(list, cloneLine(line))
		}
	}
	return list, nil
}

// ListOpen órdenes no terminales (backlog), más recientes primero.
func (r *OrderRepo) ListOpen(limit, offset int) ([]*entity.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*entity.Order
	for _, order := range s.orders {
		if order.Status != entity.OrderStatusReceived && order.Status != entity.OrderStatusCancelled {
			list = append(list, cloneOrder(order))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].OrderDate.After(list[j].OrderDate) })
	return paginate(list, limit, offset), nil
}

// NextOrderNumber consecutivo monótono por día calendario. El contador vive
// bajo su propio mutex: creadores concurrentes del mismo día reciben valores
// distintos siempre.
func (r *OrderRepo) NextOrderNumber(day time.Time) (int64, error) {
	key := day.Format("20060102")
	s := r.store
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.daySeq[key]++
	return s.daySeq[key], nil
}
