package inventory_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memstore"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// recordingInvalidator guarda las mutaciones recibidas.
type recordingInvalidator struct {
	mu   sync.Mutex
	muts []invalidation.Mutation
}

func (r *recordingInvalidator) Apply(_ context.Context, m invalidation.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muts = append(r.muts, m)
}

func (r *recordingInvalidator) all() []invalidation.Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invalidation.Mutation(nil), r.muts...)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memstore.Store
	runner   *memstore.TxRunner
	inv      *recordingInvalidator
	ledger   *inventory.LedgerUseCase
	transfer *inventory.TransferUseCase
	log      *inventory.MovementLogUseCase
}

// newFixture variantes: V1 (P1) stock 10, V2 (P1) stock 3, V3 (P2) stock 0.
func newFixture(t *testing.T, opts ...inventory.Option) *fixture {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.Seed(
		[]entity.Product{{ID: "P1", Name: "Camiseta", Featured: true}, {ID: "P2", Name: "Gorra"}},
		[]entity.Variant{
			{ID: "V1", ProductID: "P1", SKU: "CAM-S", Stock: 10},
			{ID: "V2", ProductID: "P1", SKU: "CAM-M", Stock: 3},
			{ID: "V3", ProductID: "P2", SKU: "GOR-U", Stock: 0},
		},
	))
	opts = append([]inventory.Option{
		inventory.WithClock(func() time.Time { return fixedNow }),
		inventory.WithRetry(inventory.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}),
	}, opts...)

	r := memstore.NewTxRunner(s)
	inv := &recordingInvalidator{}
	return &fixture{
		store:    s,
		runner:   r,
		inv:      inv,
		ledger:   inventory.NewLedgerUseCase(r, inv, opts...),
		transfer: inventory.NewTransferUseCase(r, inv, opts...),
		log:      inventory.NewMovementLogUseCase(r, opts...),
	}
}

func (f *fixture) centralStock(t *testing.T, id string) int64 {
	t.Helper()
	v, ok := f.store.Snapshot()["variant/"+id]
	require.True(t, ok, "variante %s debe existir", id)
	return v.(entity.Variant).Stock
}

// distributorStock devuelve -1 si el sub-ledger no existe.
func (f *fixture) distributorStock(t *testing.T, dist, variant string) int64 {
	t.Helper()
	v, ok := f.store.Snapshot()["dstock/"+url.PathEscape(dist)+"/"+url.PathEscape(variant)]
	if !ok {
		return -1
	}
	return v.(entity.DistributorStock).Stock
}

func (f *fixture) movementCount() int {
	n := 0
	for k := range f.store.Snapshot() {
		if len(k) > len("movement/") && k[:len("movement/")] == "movement/" {
			n++
		}
	}
	return n
}

// failingRunner simula un almacén que siempre falla al leer.
type failingRunner struct {
	calls int
	err   error
}

func (r *failingRunner) Run(context.Context, func(inventory.LedgerTx) error) error {
	r.calls++
	return r.err
}
