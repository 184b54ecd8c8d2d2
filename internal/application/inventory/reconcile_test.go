package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestReconcile_SinDescuadres(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.transfer.TransferToDistributor(ctx, transferIn("D1", "V1", 5))
	require.NoError(t, err)
	_, err = f.transfer.RecordDistributorSale(ctx, inventory.DistributorSaleInput{DistributorID: "D1", VariantID: "V1", Quantity: 2})
	require.NoError(t, err)
	_, err = f.transfer.ReceiveFromDistributor(ctx, transferIn("D1", "V1", 1))
	require.NoError(t, err)

	rep, err := inventory.NewReconcileUseCase(f.runner).Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Drifts)
	assert.EqualValues(t, 6+2, rep.Totals["V1"], "central 6 + D1 2")
	assert.EqualValues(t, 3, rep.Totals["V2"])
}

func TestReconcile_DetectaDescuadre(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.transfer.TransferToDistributor(ctx, transferIn("D1", "V1", 5))
	require.NoError(t, err)

	// Escritura directa al sub-ledger sin movimiento.
	require.NoError(t, f.runner.Run(ctx, func(tx inventory.LedgerTx) error {
		return tx.DistributorStock().Upsert(ctx, &entity.DistributorStock{DistributorID: "D1", VariantID: "V1", Stock: 7})
	}))

	rep, err := inventory.NewReconcileUseCase(f.runner).Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Drifts, 1)
	assert.Equal(t, inventory.Drift{DistributorID: "D1", VariantID: "V1", Counter: 7, Replayed: 5}, rep.Drifts[0])
}

func TestListMovements_Filtros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.transfer.TransferToDistributor(ctx, transferIn("D1", "V1", 1))
	require.NoError(t, err)
	_, err = f.transfer.TransferToDistributor(ctx, transferIn("D2", "V2", 1))
	require.NoError(t, err)
	_, err = f.ledger.UpdateStock(ctx, inventory.StockUpdateInput{VariantID: "V3", Delta: 1})
	require.NoError(t, err)

	movs, err := f.log.ListMovements(ctx, repository.MovementFilter{DistributorID: "D2"})
	require.NoError(t, err)
	assert.Len(t, movs, 2)

	movs, err = f.log.ListMovements(ctx, repository.MovementFilter{ProductID: "P1"})
	require.NoError(t, err)
	assert.Len(t, movs, 4)

	movs, err = f.log.ListMovements(ctx, repository.MovementFilter{Descending: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementRestock, movs[0].Type)
}

func TestListMovements_RangoInvertido(t *testing.T) {
	f := newFixture(t)
	from := fixedNow
	to := fixedNow.Add(-time.Hour)
	_, err := f.log.ListMovements(context.Background(), repository.MovementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
