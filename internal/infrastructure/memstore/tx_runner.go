package memstore

import (
	"context"
	"errors"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks del ledger dentro de una transacción optimista.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run abre la transacción, ejecuta fn y hace Commit o Rollback. Un conflicto
// de commit se devuelve como *domain.StorageTransactionError.
func (r *TxRunner) Run(ctx context.Context, fn func(tx inventory.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := r.s.Begin()
	if err := fn(&ledgerTx{txn: txn}); err != nil {
		txn.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		txn.Rollback()
		return err
	}
	if err := txn.Commit(); err != nil {
		if errors.Is(err, ErrConflict) {
			return &domain.StorageTransactionError{Op: "commit", Err: err}
		}
		return err
	}
	return nil
}

type ledgerTx struct {
	txn *Txn
}

func (t *ledgerTx) Variants() repository.VariantRepository { return variantRepo{t.txn} }

func (t *ledgerTx) DistributorStock() repository.DistributorStockRepository {
	return distributorStockRepo{t.txn}
}

func (t *ledgerTx) Movements() repository.MovementRepository { return movementRepo{t.txn} }
