package entity

import "time"

// Tipos de movimiento de stock (value object conceptual).
const (
	MovementTypeIn         = "in"         // entrada
	MovementTypeOut        = "out"        // salida
	MovementTypeAdjustment = "adjustment" // resincronización a un valor contado
)

// ValidMovementType verifica que el tipo sea uno de los permitidos.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment:
		return true
	}
	return false
}

// StockMovement representa una entrada del ledger: un movimiento de stock
// ya aplicado sobre el Item referenciado. Inmutable una vez creado; su efecto
// se aplicó exactamente una vez y nunca se re-aplica ni se revierte.
//
// Para in/out, Quantity es la cantidad movida (siempre positiva).
// Para adjustment, Quantity es el valor absoluto contado al que se
// resincronizó el stock, no un delta.
type StockMovement struct {
	ID        string
	ItemID    string
	Type      string // in, out, adjustment
	Quantity  int64
	Reference string // número de orden, nota de ajuste, etc.
	Notes     string
	CreatedAt time.Time
	CreatedBy string // identificador opaco del actor
}
