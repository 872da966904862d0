package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de compra.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusOrdered   = "ordered"
	OrderStatusReceived  = "received"  // terminal
	OrderStatusCancelled = "cancelled" // terminal
)

// ValidOrderStatus verifica que el estado sea uno de los definidos.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusOrdered,
		OrderStatusReceived, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo valida la máquina de estados:
// pending → approved → ordered → received, con cancelled alcanzable desde
// cualquier estado no terminal. received y cancelled son terminales.
func CanTransitionTo(current, target string) bool {
	switch current {
	case OrderStatusPending:
		return target == OrderStatusApproved || target == OrderStatusCancelled
	case OrderStatusApproved:
		return target == OrderStatusOrdered || target == OrderStatusCancelled
	case OrderStatusOrdered:
		return target == OrderStatusReceived || target == OrderStatusCancelled
	case OrderStatusReceived, OrderStatusCancelled:
		return false
	}
	return false
}

// Order representa una orden de compra a proveedor para reposición de stock.
type Order struct {
	ID                   string
	OrderNumber          string // PO-YYYYMMDD-NNN, único
	SupplierID           string
	Status               string
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	CreatedBy            string
	Lines                []*OrderLine
}

// IsTerminal indica si la orden ya no admite cambios de estado.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusReceived || o.Status == OrderStatusCancelled
}

// LinesFrozen indica si ya no se pueden agregar líneas (la orden fue
// colocada con el proveedor o está en un estado terminal).
func (o *Order) LinesFrozen() bool {
	return o.Status != OrderStatusPending && o.Status != OrderStatusApproved
}

// TotalAmount suma los subtotales de las líneas. Siempre se recalcula sobre
// las líneas actuales; nunca se persiste.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// FullyReceived indica si todas las líneas fueron recibidas por completo.
// Una orden sin líneas no se considera recibida.
func (o *Order) FullyReceived() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for _, line := range o.Lines {
		if !line.IsFullyReceived() {
			return false
		}
	}
	return true
}

// OrderLine representa una línea de una orden de compra. El precio unitario
// queda congelado al momento de ordenar, independiente del precio actual
// del Item.
type OrderLine struct {
	ID               string
	OrderID          string
	ItemID           string
	QuantityOrdered  int64
	UnitPrice        decimal.Decimal
	QuantityReceived int64
}

// Subtotal calcula cantidad ordenada × precio unitario congelado.
func (l *OrderLine) Subtotal() decimal.Decimal {
	return decimal.NewFromInt(l.QuantityOrdered).Mul(l.UnitPrice)
}

// IsFullyReceived indica si ya se recibió toda la cantidad ordenada.
func (l *OrderLine) IsFullyReceived() bool {
	return l.QuantityReceived >= l.QuantityOrdered
}

// Remaining devuelve la cantidad pendiente de recibir.
func (l *OrderLine) Remaining() int64 {
	return l.QuantityOrdered - l.QuantityReceived
}
