package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/cachekey"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memstore"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	store    *memstore.Store
	cache    *cache.Store
	catalog  *catalog.UseCase
	ledger   *inventory.LedgerUseCase
	transfer *inventory.TransferUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.Seed(
		[]entity.Product{{ID: "P1", Name: "Camiseta", Featured: true}, {ID: "P2", Name: "Gorra", Featured: true}},
		[]entity.Variant{
			{ID: "V1", ProductID: "P1", SKU: "CAM-S", Stock: 10},
			{ID: "V2", ProductID: "P1", SKU: "CAM-M", Stock: 3},
			{ID: "V3", ProductID: "P2", SKU: "GOR-U", Stock: 0},
		},
	))
	c := cache.New(cache.WithDefaultTTL(time.Minute))
	router := invalidation.NewRouter(c, nil, nil)
	runner := memstore.NewTxRunner(s)
	retry := inventory.WithRetry(inventory.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})
	ledger := inventory.NewLedgerUseCase(runner, router, retry)
	return &env{
		store:    s,
		cache:    c,
		catalog:  catalog.NewUseCase(c, memstore.NewCatalogSource(s), ledger, nil),
		ledger:   ledger,
		transfer: inventory.NewTransferUseCase(runner, router, retry),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Vistas cacheadas
// ──────────────────────────────────────────────────────────────────────────────

func TestVariant_SeCacheaYSeInvalidaConLaVenta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, err := e.catalog.Variant(ctx, "V1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, v.Stock)
	assert.True(t, e.cache.HasCache(cachekey.Variant("V1")))

	require.NoError(t, e.ledger.RegisterSale(ctx, inventory.SaleInput{Items: []dominv.Line{{VariantID: "V1", Quantity: 2}}}))
	assert.False(t, e.cache.HasCache(cachekey.Variant("V1")), "la venta invalida la vista")

	v, err = e.catalog.Variant(ctx, "V1")
	require.NoError(t, err)
	assert.EqualValues(t, 8, v.Stock)
}

func TestVariant_DesconocidaNoSeCachea(t *testing.T) {
	e := newEnv(t)
	_, err := e.catalog.Variant(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownVariant)
	assert.False(t, e.cache.HasCache(cachekey.Variant("NOPE")))
}

func TestProductSummary(t *testing.T) {
	e := newEnv(t)
	s, err := e.catalog.ProductSummary(context.Background(), "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 13, s.TotalStock)
	assert.True(t, s.InStock)
	assert.Len(t, s.Variants, 2)

	_, err = e.catalog.ProductSummary(context.Background(), "P9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeatured_SoloConStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	list, err := e.catalog.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].ID)

	_, err = e.ledger.UpdateStock(ctx, inventory.StockUpdateInput{VariantID: "V3", Delta: 2})
	require.NoError(t, err)
	list, err = e.catalog.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2, "el ajuste invalida catalog:featured")
}

func TestBestSelling(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.ledger.RegisterSale(ctx, inventory.SaleInput{Items: []dominv.Line{{VariantID: "V1", Quantity: 2}, {VariantID: "V2", Quantity: 1}}}))

	top, err := e.catalog.BestSelling(ctx)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Camiseta", top[0].Name)
	assert.EqualValues(t, 3, top[0].Units)
}

func TestStockTotalsYVistasDeDistribuidor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	totals, err := e.catalog.StockTotals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, totals["V1"])
	inv, err := e.catalog.DistributorInventory(ctx, "D1")
	require.NoError(t, err)
	assert.Empty(t, inv)

	_, err = e.transfer.TransferToDistributor(ctx, inventory.TransferInput{DistributorID: "D1", VariantID: "V1", Quantity: 4, PerformedBy: "admin"})
	require.NoError(t, err)

	totals, err = e.catalog.StockTotals(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, totals["V1"], "la transferencia conserva el total")

	inv, err = e.catalog.DistributorInventory(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.EqualValues(t, 4, inv[0].Stock)

	dist, err := e.catalog.Distribution(ctx, "V1")
	require.NoError(t, err)
	require.Len(t, dist, 1)
	assert.Equal(t, "D1", dist[0].DistributorID)

	_, err = e.transfer.RecordDistributorSale(ctx, inventory.DistributorSaleInput{DistributorID: "D1", VariantID: "V1", Quantity: 1})
	require.NoError(t, err)
	inv, err = e.catalog.DistributorInventory(ctx, "D1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, inv[0].Stock)
}

func TestPage_SeInvalidaPorPatron(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.catalog.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	assert.True(t, e.cache.HasCache(cachekey.List(0)))

	_, err = e.ledger.UpdateStock(ctx, inventory.StockUpdateInput{VariantID: "V1", Delta: 1})
	require.NoError(t, err)
	assert.False(t, e.cache.HasCache(cachekey.List(0)))

	_, err = e.catalog.Page(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// AdjustStock: escritura optimista
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustStock_Confirmado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, err := e.catalog.AdjustStock(ctx, inventory.StockUpdateInput{VariantID: "V2", Delta: 5, PerformedBy: "admin"})
	require.NoError(t, err)
	assert.EqualValues(t, 8, v.Stock)

	got, err := e.catalog.Variant(ctx, "V2")
	require.NoError(t, err)
	assert.EqualValues(t, 8, got.Stock)
}

func TestAdjustStock_RollbackRestauraYNotifica(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.catalog.Variant(ctx, "V2")
	require.NoError(t, err)
	sub := e.cache.Notifier(cachekey.Variant("V2"))
	defer sub.Close()

	e.store.InjectConflicts(10)
	_, err = e.catalog.AdjustStock(ctx, inventory.StockUpdateInput{VariantID: "V2", Delta: 5})
	require.ErrorIs(t, err, domain.ErrStorageTransaction)

	select {
	case ev := <-sub.C:
		assert.Equal(t, cache.ReasonRollback, ev.Reason)
	default:
		t.Fatal("se esperaba la notificación de rollback")
	}
	e.store.InjectConflicts(0)
	got, err := e.catalog.Variant(ctx, "V2")
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Stock, "la vista vuelve al valor confirmado")
}

func TestAdjustStock_RechazoDelLedgerRestauraLaVista(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.catalog.Variant(ctx, "V2")
	require.NoError(t, err)

	_, err = e.catalog.AdjustStock(ctx, inventory.StockUpdateInput{VariantID: "V2", Delta: -4})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := e.catalog.Variant(ctx, "V2")
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Stock)
}

func TestAdjustStock_VistaAtrasadaNoBloqueaElAjuste(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, err := e.catalog.Variant(ctx, "V3")
	require.NoError(t, err)
	require.EqualValues(t, 0, v.Stock)

	// Otra instancia repone sin invalidar esta cache.
	other := inventory.NewLedgerUseCase(memstore.NewTxRunner(e.store), nil)
	_, err = other.UpdateStock(ctx, inventory.StockUpdateInput{VariantID: "V3", Delta: 10})
	require.NoError(t, err)

	cached, err := e.catalog.Variant(ctx, "V3")
	require.NoError(t, err)
	require.EqualValues(t, 0, cached.Stock, "la vista sigue atrasada")

	updated, err := e.catalog.AdjustStock(ctx, inventory.StockUpdateInput{VariantID: "V3", Delta: -3})
	require.NoError(t, err)
	assert.EqualValues(t, 7, updated.Stock)

	got, err := e.catalog.Variant(ctx, "V3")
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.Stock)
}
