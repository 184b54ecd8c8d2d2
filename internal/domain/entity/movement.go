package entity

import "time"

// Tipos de movimiento.
const (
	MovementTransferOut     = "transfer_out"
	MovementTransferIn      = "transfer_in"
	MovementSale            = "sale"
	MovementDistributorSale = "distributor_sale"
	MovementRestock         = "restock"
)

// Alcance del movimiento: ledger central o sub-ledger de distribuidor.
const (
	ScopeCentral     = "central"
	ScopeDistributor = "distributor"
)

// Movement es un registro inmutable de auditoría.
// Quantity lleva signo relativo a su alcance: negativo = salida.
type Movement struct {
	ID            string
	TransferID    string // correlación entre los dos registros de una transferencia
	Type          string
	Scope         string
	VariantID     string
	ProductID     string
	DistributorID string
	Quantity      int64
	PerformedBy   string
	Notes         string
	Timestamp     time.Time
	Seq           int64 // desempate de orden dentro del mismo timestamp
}
