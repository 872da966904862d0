package repository

import (
	"time"

	"github.com/tu-usuario/stock-ledger/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para órdenes de compra y
// sus líneas (la orden es dueña de sus líneas; el borrado cascadea).
// GetByID/GetLineByID devuelven (nil, nil) si no existe.
type OrderRepository interface {
	// Create persiste la cabecera. Devuelve domain.ErrDuplicate si el
	// order_number ya existe (el caller reintenta con otro consecutivo).
	Create(order *entity.Order) error
	GetByID(id string) (*entity.Order, error)
	GetByNumber(number string) (*entity.Order, error)
	// GetForUpdate bloquea la fila de la orden para la transacción en curso.
	// Serializa AddLine, Transition y Receive sobre la misma orden.
	GetForUpdate(id string) (*entity.Order, error)
	UpdateStatus(id, status string) error

	AddLine(line *entity.OrderLine) error
	GetLineByID(id string) (*entity.OrderLine, error)
	UpdateLineReceived(lineID string, quantityReceived int64) error
	ListLines(orderID string) ([]*entity.OrderLine, error)

	// ListOpen devuelve las órdenes no terminales (backlog), más
	// recientes primero.
	ListOpen(limit, offset int) ([]*entity.Order, error)

	// NextOrderNumber reserva y devuelve el siguiente consecutivo del día
	// (secuencia monótona por día calendario, segura bajo concurrencia).
	NextOrderNumber(day time.Time) (int64, error)
}
