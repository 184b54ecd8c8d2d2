package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LedgerTx repositorios atados a una misma transacción del almacén.
type LedgerTx interface {
	Variants() repository.VariantRepository
	DistributorStock() repository.DistributorStockRepository
	Movements() repository.MovementRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil,
// Rollback en cualquier otro caso. Un conflicto de escritura detectado por el
// almacén se devuelve como domain.ErrStorageTransaction.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx LedgerTx) error) error
}

// Invalidator recibe las mutaciones ya confirmadas (ver invalidation.Router).
type Invalidator interface {
	Apply(ctx context.Context, m invalidation.Mutation)
}

type nopInvalidator struct{}

func (nopInvalidator) Apply(context.Context, invalidation.Mutation) {}
