package purchase

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Formato de número de orden: PO-YYYYMMDD-NNN (servicio de dominio).
// NNN es un consecutivo de 3 dígitos con ceros a la izquierda, por día
// calendario. El consecutivo lo asigna el generador de secuencia del
// repositorio, nunca un "count de filas + 1".

var orderNumberRe = regexp.MustCompile(`^PO-(\d{8})-(\d{3,})$`)

// FormatOrderNumber construye el número de orden para un día y consecutivo.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("PO-%s-%03d", day.Format("20060102"), seq)
}

// ParseOrderNumber descompone un número de orden en día y consecutivo.
// Devuelve ok=false si el formato no corresponde.
func ParseOrderNumber(number string) (day time.Time, seq int64, ok bool) {
	m := orderNumberRe.FindStringSubmatch(number)
	if m == nil {
		return time.Time{}, 0, false
	}
	day, err := time.Parse("20060102", m[1])
	if err != nil {
		return time.Time{}, 0, false
	}
	seq, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return day, seq, true
}
