package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Todos se comparan con errors.Is; los adaptadores mapean errores del driver
// a estos centinelas antes de devolverlos al caller.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOverReceipt       = errors.New("recepción excede la cantidad ordenada")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrInvalidState      = errors.New("operación inválida para el estado actual")
	ErrBusy              = errors.New("recurso ocupado, reintentar")
)
