package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memstore"
)

// ──────────────────────────────────────────────────────────────────────────────
// Txn: lecturas versionadas y commit optimista
// ──────────────────────────────────────────────────────────────────────────────

func TestTxn_LeeSusPropiasEscrituras(t *testing.T) {
	s := memstore.New()
	txn := s.Begin()
	txn.Write("a", 1)

	v, ok := txn.Read("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	require.NoError(t, txn.Commit())
	assert.Equal(t, map[string]any{"a": 1}, s.Snapshot())
}

func TestTxn_ConflictoSiLaClaveLeidaCambio(t *testing.T) {
	s := memstore.New()
	seed := s.Begin()
	seed.Write("k", "v0")
	require.NoError(t, seed.Commit())

	t1 := s.Begin()
	t2 := s.Begin()
	_, _ = t1.Read("k")
	_, _ = t2.Read("k")
	t1.Write("k", "v1")
	t2.Write("k", "v2")

	require.NoError(t, t1.Commit())
	err := t2.Commit()
	require.ErrorIs(t, err, memstore.ErrConflict)
	assert.Equal(t, "v1", s.Snapshot()["k"], "el commit fallido no aplica nada")
	assert.EqualValues(t, 1, s.Conflicts())
}

func TestTxn_ConflictoTambienSobreClaveAusente(t *testing.T) {
	s := memstore.New()
	t1 := s.Begin()
	t2 := s.Begin()
	_, ok := t1.Read("nuevo")
	require.False(t, ok)
	_, _ = t2.Read("nuevo")
	t1.Write("nuevo", 1)
	t2.Write("nuevo", 2)

	require.NoError(t, t1.Commit())
	assert.ErrorIs(t, t2.Commit(), memstore.ErrConflict)
}

func TestTxn_RollbackDescartaEscrituras(t *testing.T) {
	s := memstore.New()
	txn := s.Begin()
	txn.Write("a", 1)
	txn.Rollback()

	assert.Empty(t, s.Snapshot())
	assert.ErrorIs(t, txn.Commit(), memstore.ErrTxDone)
}

func TestTxn_AppendAsignaSecuenciaEnCommit(t *testing.T) {
	s := memstore.New()
	txn := s.Begin()
	var seqs []int64
	for i := 0; i < 3; i++ {
		txn.Append("log/", func(seq int64) any {
			seqs = append(seqs, seq)
			return seq
		})
	}
	assert.Empty(t, seqs, "la secuencia no se asigna antes del commit")
	require.NoError(t, txn.Commit())
	assert.Equal(t, []int64{1, 2, 3}, seqs)

	kvs := s.Begin().Scan("log/")
	require.Len(t, kvs, 3)
	assert.Equal(t, int64(1), kvs[0].Value)
}

func TestStore_InjectConflicts(t *testing.T) {
	s := memstore.New()
	s.InjectConflicts(1)

	txn := s.Begin()
	txn.Write("a", 1)
	assert.ErrorIs(t, txn.Commit(), memstore.ErrConflict)

	txn = s.Begin()
	txn.Write("a", 1)
	assert.NoError(t, txn.Commit())
}

// ──────────────────────────────────────────────────────────────────────────────
// TxRunner y repositorios
// ──────────────────────────────────────────────────────────────────────────────

func seeded(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.Seed(
		[]entity.Product{{ID: "P1", Name: "Camiseta"}},
		[]entity.Variant{{ID: "V1", ProductID: "P1", SKU: "CAM-S", Stock: 10}},
	))
	return s
}

func TestTxRunner_ConflictoSeMapeaAStorageTransaction(t *testing.T) {
	s := seeded(t)
	s.InjectConflicts(1)
	r := memstore.NewTxRunner(s)

	err := r.Run(context.Background(), func(tx inventory.LedgerTx) error {
		v, err := tx.Variants().GetForUpdate(context.Background(), "V1")
		require.NoError(t, err)
		v.Stock--
		return tx.Variants().UpdateStock(context.Background(), v)
	})
	require.ErrorIs(t, err, domain.ErrStorageTransaction)
	assert.True(t, domain.IsRetryable(err))
	var ste *domain.StorageTransactionError
	require.True(t, errors.As(err, &ste))
	assert.Equal(t, "commit", ste.Op)
}

func TestTxRunner_ErrorDelCallbackHaceRollback(t *testing.T) {
	s := seeded(t)
	before := s.Snapshot()
	r := memstore.NewTxRunner(s)
	boom := errors.New("boom")

	err := r.Run(context.Background(), func(tx inventory.LedgerTx) error {
		_ = tx.DistributorStock().Upsert(context.Background(), &entity.DistributorStock{DistributorID: "D1", VariantID: "V1", Stock: 5})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Snapshot())
}

func TestTxRunner_ContextoCanceladoNoAbre(t *testing.T) {
	r := memstore.NewTxRunner(memstore.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := r.Run(ctx, func(inventory.LedgerTx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRepos_VarianteAusenteDevuelveNil(t *testing.T) {
	r := memstore.NewTxRunner(memstore.New())
	err := r.Run(context.Background(), func(tx inventory.LedgerTx) error {
		v, err := tx.Variants().Get(context.Background(), "nope")
		assert.Nil(t, v)
		ds, err2 := tx.DistributorStock().GetForUpdate(context.Background(), "D", "nope")
		assert.Nil(t, ds)
		return errors.Join(err, err2)
	})
	assert.NoError(t, err)
}

func TestDistributorStock_IDsConBarraNoColisionan(t *testing.T) {
	s := memstore.New()
	r := memstore.NewTxRunner(s)
	ctx := context.Background()

	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		return errors.Join(
			tx.DistributorStock().Upsert(ctx, &entity.DistributorStock{DistributorID: "a/V1", VariantID: "V1", Stock: 3}),
			tx.DistributorStock().Upsert(ctx, &entity.DistributorStock{DistributorID: "a/x", VariantID: "V2", Stock: 4}),
		)
	}))

	err := r.Run(ctx, func(tx inventory.LedgerTx) error {
		ds, err := tx.DistributorStock().GetForUpdate(ctx, "a", "V1/V1")
		assert.Nil(t, ds, "(a, V1/V1) no es el sub-ledger de (a/V1, V1)")

		own, err2 := tx.DistributorStock().GetForUpdate(ctx, "a/V1", "V1")
		require.NotNil(t, own)
		assert.EqualValues(t, 3, own.Stock)

		listed, err3 := tx.DistributorStock().ListByDistributor(ctx, "a")
		assert.Empty(t, listed, "el distribuidor a no ve filas de a/x ni de a/V1")

		listed, err4 := tx.DistributorStock().ListByDistributor(ctx, "a/x")
		require.Len(t, listed, 1)
		assert.Equal(t, "V2", listed[0].VariantID)

		all, err5 := tx.DistributorStock().ListAll(ctx)
		assert.Len(t, all, 2)
		return errors.Join(err, err2, err3, err4, err5)
	})
	require.NoError(t, err)

	inv, err := memstore.NewCatalogSource(s).DistributorInventory(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, inv)
	inv, err = memstore.NewCatalogSource(s).DistributorInventory(ctx, "a/V1")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.EqualValues(t, 3, inv[0].Stock)
}

func TestMovements_FiltroOrdenYPaginacion(t *testing.T) {
	s := seeded(t)
	r := memstore.NewTxRunner(s)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		for i, d := range []string{"D1", "D2", "D1", "D1"} {
			if err := tx.Movements().Append(ctx, &entity.Movement{
				ID: d + string(rune('a'+i)), VariantID: "V1", ProductID: "P1", DistributorID: d,
				Type: entity.MovementTransferIn, Scope: entity.ScopeDistributor, Quantity: int64(i + 1),
				Timestamp: t0.Add(time.Duration(i/2) * time.Minute),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	var got []*entity.Movement
	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		var err error
		got, err = tx.Movements().List(ctx, repository.MovementFilter{DistributorID: "D1"})
		return err
	}))
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{got[0].Quantity, got[1].Quantity, got[2].Quantity})
	assert.Less(t, got[1].Seq, got[2].Seq, "mismo timestamp: desempata la secuencia")

	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		var err error
		got, err = tx.Movements().List(ctx, repository.MovementFilter{Descending: true, Limit: 2, Offset: 1})
		return err
	}))
	require.Len(t, got, 2)
	assert.Equal(t, []int64{3, 2}, []int64{got[0].Quantity, got[1].Quantity})

	from := t0.Add(30 * time.Second)
	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		var err error
		got, err = tx.Movements().List(ctx, repository.MovementFilter{From: &from})
		return err
	}))
	assert.Len(t, got, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// CatalogSource
// ──────────────────────────────────────────────────────────────────────────────

func TestCatalogSource_Lecturas(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.Seed(
		[]entity.Product{{ID: "P1", Name: "Camiseta", Featured: true}, {ID: "P2", Name: "Gorra"}},
		[]entity.Variant{
			{ID: "V1", ProductID: "P1", Stock: 10},
			{ID: "V2", ProductID: "P1", Stock: 5},
			{ID: "V3", ProductID: "P2", Stock: 0},
		},
	))
	src := memstore.NewCatalogSource(s)
	ctx := context.Background()

	vs, err := src.VariantsByProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	featured, err := src.FeaturedProducts(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "P1", featured[0].ID)

	page, err := src.Products(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "P2", page[0].ID)

	central, err := src.CentralStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"V1": 10, "V2": 5, "V3": 0}, central)

	p, err := src.Product(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCatalogSource_TopSellingSoloVentasCentrales(t *testing.T) {
	s := seeded(t)
	r := memstore.NewTxRunner(s)
	ctx := context.Background()
	require.NoError(t, r.Run(ctx, func(tx inventory.LedgerTx) error {
		_ = tx.Movements().Append(ctx, &entity.Movement{Type: entity.MovementSale, ProductID: "P1", Quantity: -3})
		_ = tx.Movements().Append(ctx, &entity.Movement{Type: entity.MovementSale, ProductID: "P2", Quantity: -5})
		return tx.Movements().Append(ctx, &entity.Movement{Type: entity.MovementDistributorSale, ProductID: "P1", Quantity: -9})
	}))

	top, err := memstore.NewCatalogSource(s).TopSelling(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "P2", top[0].ProductID)
	assert.EqualValues(t, 5, top[0].Units)
	assert.EqualValues(t, 3, top[1].Units)
}
