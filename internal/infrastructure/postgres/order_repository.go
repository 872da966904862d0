package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/stock-ledger/internal/domain"
	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
	"github.com/tu-usuario/stock-ledger/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, order_number, supplier_id, status, order_date,
	expected_delivery_date, notes, created_by`

// OrderRepo implementación de OrderRepository sobre PostgreSQL (usable con
// pool o tx). Las líneas cascadean con la orden (ON DELETE CASCADE).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Create persiste la cabecera. El índice único sobre order_number convierte
// una colisión de numeración en ErrDuplicate, que el caller reintenta.
func (r *OrderRepo) Create(order *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		order.ID, order.OrderNumber, order.SupplierID, order.Status,
		order.OrderDate, order.ExpectedDeliveryDate, order.Notes,
		nullIfEmpty(order.CreatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera por ID; (nil, nil) si no existe.
func (r *OrderRepo) GetByID(id string) (*entity.Order, error) {
	return r.getOne(`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByNumber obtiene la cabecera por número de orden.
func (r *OrderRepo) GetByNumber(number string) (*entity.Order, error) {
	return r.getOne(`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
}

// GetForUpdate obtiene la orden y bloquea la fila (SELECT FOR UPDATE).
// Serializa AddLine, Transition y Receive sobre la misma orden; la fila de
// la orden se bloquea siempre antes que la del item (orden fija, sin deadlocks).
func (r *OrderRepo) GetForUpdate(id string) (*entity.Order, error) {
	return r.getOne(`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) getOne(query string, arg any) (*entity.Order, error) {
	var o entity.Order
	var createdBy *string
	err := r.q.QueryRow(context.Background(), query, arg).Scan(
		&o.ID, &o.OrderNumber, &o.SupplierID, &o.Status, &o.OrderDate,
		&o.ExpectedDeliveryDate, &o.Notes, &createdBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if createdBy != nil {
		o.CreatedBy = *createdBy
	}
	return &o, nil
}

// UpdateStatus escribe el nuevo estado de la orden.
func (r *OrderRepo) UpdateStatus(id, status string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// AddLine persiste una línea de la orden.
func (r *OrderRepo) AddLine(line *entity.OrderLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO order_lines (id, order_id, item_id, quantity_ordered, unit_price, quantity_received)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.OrderID, line.ItemID, line.QuantityOrdered,
		line.UnitPrice, line.QuantityReceived,
	)
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

// GetLineByID obtiene una línea por ID; (nil, nil) si no existe.
func (r *OrderRepo) GetLineByID(id string) (*entity.OrderLine, error) {
	query := `
		SELECT id, order_id, item_id, quantity_ordered, unit_price, quantity_received
		FROM order_lines WHERE id = $1`
	var l entity.OrderLine
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&l.ID, &l.OrderID, &l.ItemID, &l.QuantityOrdered, &l.UnitPrice, &l.QuantityReceived,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order line: %w", err)
	}
	return &l, nil
}

// UpdateLineReceived escribe la cantidad recibida acumulada. El CHECK
// quantity_received <= quantity_ordered de la tabla respalda la validación
// del caso de uso.
func (r *OrderRepo) UpdateLineReceived(lineID string, quantityReceived int64) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE order_lines SET quantity_received = $2 WHERE id = $1`,
		lineID, quantityReceived,
	)
	if err != nil {
		return fmt.Errorf("update order line received: %w", err)
	}
	return nil
}

// ListLines líneas de una orden en orden de inserción.
func (r *OrderRepo) ListLines(orderID string) ([]*entity.OrderLine, error) {
	query := `
		SELECT id, order_id, item_id, quantity_ordered, unit_price, quantity_received
		FROM order_lines WHERE order_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(context.Background(), query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderLine
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.QuantityOrdered,
			&l.UnitPrice, &l.QuantityReceived); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// ListOpen órdenes no terminales (backlog), más recientes primero.
func (r *OrderRepo) ListOpen(limit, offset int) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status NOT IN ($1, $2)
		ORDER BY order_date DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query,
		entity.OrderStatusReceived, entity.OrderStatusCancelled, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.Order
	for rows.Next() {
		var o entity.Order
		var createdBy *string
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.SupplierID, &o.Status,
			&o.OrderDate, &o.ExpectedDeliveryDate, &o.Notes, &createdBy); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if createdBy != nil {
			o.CreatedBy = *createdBy
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// NextOrderNumber reserva el siguiente consecutivo del día con un upsert
// atómico sobre la tabla de secuencias: nunca un "count de filas + 1".
func (r *OrderRepo) NextOrderNumber(day time.Time) (int64, error) {
	var seq int64
	err := r.q.QueryRow(context.Background(), `
		INSERT INTO order_number_seq (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day)
		DO UPDATE SET last_value = order_number_seq.last_value + 1
		RETURNING last_value`,
		day.Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return seq, nil
}
