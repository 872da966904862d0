package memory

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación en memoria de ItemRepository. Fuera de una tx las
// escrituras se aplican de inmediato bajo el mutex del store; dentro de una
// tx se bufferizan en el journal.
type ItemRepo struct {
	store *Store
	tx    *memTx
}

// NewItemRepository construye el adaptador sin transacción (autocommit).
func NewItemRepository(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

// Create persiste un item nuevo; ErrDuplicate si el SKU ya existe.
func (r *ItemRepo) Create(item *entity.Item) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.skuIndex[item.SKU]; exists {
		return domain.ErrDuplicate
	}
	if _, exists := s.items[item.ID]; exists {
		return domain.ErrDuplicate
	}
	s.items[item.ID] = cloneItem(item)
	s.skuIndex[item.SKU] = item.ID
	return nil
}

// GetByID obtiene un item por ID; (nil, nil) si no existe.
func (r *ItemRepo) GetByID(id string) (*entity.Item, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItem(s.items[id]), nil
}

// GetBySKU obtiene un item por SKU; (nil, nil) si no existe.
func (r *ItemRepo) GetBySKU(sku string) (*entity.Item, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.skuIndex[sku]
	if !ok {
		return nil, nil
	}
	return cloneItem(s.items[id]), nil
}

// GetForUpdate toma el bloqueo del item para la tx en curso y devuelve el
// estado confirmado. Equivalente en memoria del SELECT FOR UPDATE.
func (r *ItemRepo) GetForUpdate(id string) (*entity.Item, error) {
	if r.tx != nil {
		if err := r.tx.lockEntity("item:" + id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(id)
}

// UpdateMetadata actualiza los metadatos; nunca toca quantity_in_stock.
func (r *ItemRepo) UpdateMetadata(item *entity.Item) error {
	c := cloneItem(item)
	apply := func() {
		current, ok := r.store.items[c.ID]
		if !ok {
			return
		}
		// La cantidad vigente se preserva: es propiedad del ledger
		c.QuantityInStock = current.QuantityInStock
		r.store.items[c.ID] = c
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

// UpdateQuantity escribe la nueva cantidad (solo el ledger llama esto, con
// la fila bloqueada).
func (r *ItemRepo) UpdateQuantity(id string, quantity int64) error {
	apply := func() {
		if item, ok := r.store.items[id]; ok {
			item.QuantityInStock = quantity
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

// SetActive activa/desactiva un item (soft delete).
func (r *ItemRepo) SetActive(id string, active bool) error {
	apply := func() {
		if item, ok := r.store.items[id]; ok {
			item.IsActive = active
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

// ListActive lista items activos ordenados por nombre, con paginación.
func (r *ItemRepo) ListActive(limit, offset int) ([]*entity.Item, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*entity.Item
	for _, item := range s.items {
		if item.IsActive {
			list = append(list, cloneItem(item))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return paginate(list, limit, offset), nil
}

// ListLowStock items activos con stock en o bajo el umbral, por nombre.
func (r *ItemRepo) ListLowStock() ([]*entity.Item, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*entity.Item
	for _, item := range s.items {
		if item.IsActive && item.IsLowStock() {
			list = append(list, cloneItem(item))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// TotalStockValue suma cantidad × costo unitario sobre items activos.
func (r *ItemRepo) TotalStockValue() (decimal.Decimal, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		if item.IsActive {
			total = total.Add(item.StockValue())
		}
	}
	return total, nil
}

// CountActive cuenta los items activos.
func (r *ItemRepo) CountActive() (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, item := range s.items {
		if item.IsActive {
			n++
		}
	}
	return n, nil
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
