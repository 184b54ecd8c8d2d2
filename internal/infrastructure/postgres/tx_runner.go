package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los bloqueos se toman con SELECT ... FOR UPDATE; un deadlock o fallo de
// serialización en cualquier punto vuelve como domain.ErrStorageTransaction.
func (r *TxRunner) Run(ctx context.Context, fn func(tx inventory.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&ledgerTx{q: tx}); err != nil {
		return asStorageError("tx", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if serr := asStorageError("commit", err); serr != err {
			return serr
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	q Querier
}

func (t *ledgerTx) Variants() repository.VariantRepository { return NewVariantRepository(t.q) }

func (t *ledgerTx) DistributorStock() repository.DistributorStockRepository {
	return NewDistributorStockRepository(t.q)
}

func (t *ledgerTx) Movements() repository.MovementRepository { return NewMovementRepository(t.q) }
