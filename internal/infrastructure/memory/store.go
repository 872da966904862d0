package memory

import (
	"sync"
	"time"

	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// DefaultLockTimeout límite de espera por un bloqueo de entidad antes de
// devolver domain.ErrBusy (§ modelo de concurrencia: nada espera sin cota).
const DefaultLockTimeout = 2 * time.Second

// Store almacenamiento en memoria para el core. Implementa los mismos
// puertos que el adaptador PostgreSQL: bloqueo por entidad en lugar de
// SELECT FOR UPDATE, y un journal de escrituras que se aplica completo en el
// commit (o se descarta) en lugar de una transacción SQL. Lo usa la suite de
// tests y cualquier caller que embeba el core sin base de datos.
type Store struct {
	mu           sync.RWMutex
	items        map[string]*entity.Item
	skuIndex     map[string]string // sku → itemID
	movements    []*entity.StockMovement
	movementByID map[string]*entity.StockMovement
	orders       map[string]*entity.Order
	orderNumbers map[string]string // order_number → orderID
	lines        map[string]*entity.OrderLine
	linesByOrder map[string][]string

	seqMu  sync.Mutex
	daySeq map[string]int64 // YYYYMMDD → último consecutivo

	locks       keyedLocks
	lockTimeout time.Duration

	// MovementCreateHook instrumentación de inyección de fallos: si no es
	// nil se invoca antes de apendizar cada movimiento y su error aborta la
	// transacción completa. Solo para tests de atomicidad.
	MovementCreateHook func(*entity.StockMovement) error
}

// NewStore crea un almacenamiento en memoria vacío.
func NewStore() *Store {
	return &Store{
		items:        make(map[string]*entity.Item),
		skuIndex:     make(map[string]string),
		movementByID: make(map[string]*entity.StockMovement),
		orders:       make(map[string]*entity.Order),
		orderNumbers: make(map[string]string),
		lines:        make(map[string]*entity.OrderLine),
		linesByOrder: make(map[string][]string),
		daySeq:       make(map[string]int64),
		locks:        keyedLocks{m: make(map[string]*sync.Mutex)},
		lockTimeout:  DefaultLockTimeout,
	}
}

// SetLockTimeout ajusta el límite de espera por bloqueos (tests de contención).
func (s *Store) SetLockTimeout(d time.Duration) {
	s.lockTimeout = d
}

// keyedLocks un mutex por clave de entidad ("item:<id>", "order:<id>").
// Las entradas no se eliminan: el mapa queda acotado por el número de
// entidades vivas.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.m[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.m[key] = l
	return l
}

// acquire intenta tomar el bloqueo de la clave dentro del límite; si la
// contención persiste devuelve domain.ErrBusy en lugar de colgar.
func (k *keyedLocks) acquire(key string, timeout time.Duration) (*sync.Mutex, error) {
	l := k.get(key)
	deadline := time.Now().Add(timeout)
	for {
		if l.TryLock() {
			return l, nil
		}
		if time.Now().After(deadline) {
			return nil, domain.ErrBusy
		}
		time.Sleep(time.Millisecond)
	}
}

// memTx transacción en memoria: bloqueos adquiridos + journal de escrituras.
// Las escrituras se aplican todas juntas bajo store.mu en el commit; un error
// en cualquier paso descarta el journal completo, de modo que ningún error
// deja una mutación parcial visible.
type memTx struct {
	store   *Store
	locked  []*sync.Mutex
	journal []func()
}

func (t *memTx) lockEntity(key string) error {
	l, err := t.store.locks.acquire(key, t.store.lockTimeout)
	if err != nil {
		return err
	}
	t.locked = append(t.locked, l)
	return nil
}

func (t *memTx) stage(fn func()) {
	t.journal = append(t.journal, fn)
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	for _, fn := range t.journal {
		fn()
	}
	t.store.mu.Unlock()
	t.release()
}

func (t *memTx) rollback() {
	t.journal = nil
	t.release()
}

func (t *memTx) release() {
	// Liberar en orden inverso a la adquisición
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.locked[i].Unlock()
	}
	t.locked = nil
}

// ── clones: los repos nunca devuelven punteros al estado interno ─────────────

func cloneItem(i *entity.Item) *entity.Item {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = nil
	if o.ExpectedDeliveryDate != nil {
		d := *o.ExpectedDeliveryDate
		c.ExpectedDeliveryDate = &d
	}
	return &c
}

func cloneLine(l *entity.OrderLine) *entity.OrderLine {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
