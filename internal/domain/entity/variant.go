package entity

import "time"

// Variant representa un SKU vendible con su contador de stock en la bodega central.
// Es la única fuente de verdad de las unidades físicas en central.
type Variant struct {
	ID        string
	ProductID string
	SKU       string
	Stock     int64 // nunca negativo
	UpdatedAt time.Time
}
