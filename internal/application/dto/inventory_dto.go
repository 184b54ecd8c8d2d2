package dto

import "time"

// LineRequest línea de consulta o de venta.
type LineRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// AvailabilityRequest body para POST /api/inventory/availability.
type AvailabilityRequest struct {
	Items []LineRequest `json:"items"`
}

// ShortfallDTO línea que no puede cubrirse.
type ShortfallDTO struct {
	VariantID string `json:"variant_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// AvailabilityResponse resultado de la consulta de disponibilidad.
type AvailabilityResponse struct {
	Available  bool           `json:"available"`
	Shortfalls []ShortfallDTO `json:"shortfalls"`
}

// SaleRequest body para POST /api/inventory/sales (checkout).
type SaleRequest struct {
	Items []LineRequest `json:"items"`
	Notes string        `json:"notes,omitempty"`
}

// StockUpdateRequest body para PATCH /api/inventory/variants/:id/stock.
type StockUpdateRequest struct {
	Delta int64  `json:"delta"`
	Notes string `json:"notes,omitempty"`
}

// TransferRequest body para transferencias y devoluciones.
type TransferRequest struct {
	DistributorID string `json:"distributor_id"`
	VariantID     string `json:"variant_id"`
	Quantity      int64  `json:"quantity"`
	Notes         string `json:"notes,omitempty"`
}

// DistributorSaleRequest body para POST /api/distributors/:id/sales.
type DistributorSaleRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// MovementDTO registro del log de movimientos.
type MovementDTO struct {
	ID            string    `json:"id"`
	TransferID    string    `json:"transfer_id,omitempty"`
	Type          string    `json:"type"`
	Scope         string    `json:"scope"`
	VariantID     string    `json:"variant_id"`
	ProductID     string    `json:"product_id,omitempty"`
	DistributorID string    `json:"distributor_id,omitempty"`
	Quantity      int64     `json:"quantity"`
	PerformedBy   string    `json:"performed_by,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// MovementFilterRequest query de GET /api/inventory/movements.
type MovementFilterRequest struct {
	DistributorID string `query:"distributor_id"`
	ProductID     string `query:"product_id"`
	VariantID     string `query:"variant_id"`
	From          string `query:"from"`
	To            string `query:"to"`
	Order         string `query:"order"`
	PageRequest
}

// MovementListResponse página del log.
type MovementListResponse struct {
	Items []MovementDTO `json:"items"`
	Page  PageResponse  `json:"page"`
}

// TransferReceiptResponse resultado de una transferencia o venta de distribuidor.
type TransferReceiptResponse struct {
	TransferID       string        `json:"transfer_id"`
	State            string        `json:"state"`
	CentralStock     int64         `json:"central_stock"`
	DistributorStock int64         `json:"distributor_stock"`
	Movements        []MovementDTO `json:"movements"`
}
