package entity

import "time"

// DistributorStock es el sub-ledger de un distribuidor para una variante.
// Se crea en la primera transferencia y nunca se elimina desde el núcleo.
type DistributorStock struct {
	DistributorID  string
	VariantID      string
	Stock          int64 // nunca negativo
	LastTransferAt *time.Time
	LastSaleAt     *time.Time
}
