package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// Drift diferencia entre el contador de un sub-ledger y la suma de sus movimientos.
type Drift struct {
	DistributorID string `json:"distributor_id"`
	VariantID     string `json:"variant_id"`
	Counter       int64  `json:"counter"`
	Replayed      int64  `json:"replayed"`
}

// ReconcileReport resultado de una conciliación.
type ReconcileReport struct {
	Drifts []Drift `json:"drifts"`
	// Totals stock central + suma de distribuidores por variante.
	Totals map[string]int64 `json:"totals"`
}

// ReconcileUseCase compara los sub-ledgers de distribuidores con el log de
// movimientos. El ledger central no se concilia: su stock inicial lo provisiona
// un sistema externo y no queda en el log.
type ReconcileUseCase struct {
	tx TxRunner
	options
}

func NewReconcileUseCase(tx TxRunner, opts ...Option) *ReconcileUseCase {
	o := buildOptions(opts)
	o.log = o.log.Component("reconcile")
	return &ReconcileUseCase{tx: tx, options: o}
}

type distKey struct{ distributor, variant string }

// Reconcile es de solo lectura.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context) (report *ReconcileReport, err error) {
	ctx, span := uc.tracer.Start(ctx, "reconcile.Run")
	defer func() { endSpan(span, err) }()

	err = uc.runTx(ctx, uc.tx, "reconcile", func(tx LedgerTx) error {
		variants, err := tx.Variants().List(ctx)
		if err != nil {
			return err
		}
		stocks, err := tx.DistributorStock().ListAll(ctx)
		if err != nil {
			return err
		}
		movs, err := tx.Movements().List(ctx, repository.MovementFilter{})
		if err != nil {
			return err
		}
		report = buildReport(variants, stocks, movs)
		return nil
	})
	if err != nil {
		uc.log.Error().Err(err).Msg("error en conciliación")
		return nil, err
	}

	for _, d := range report.Drifts {
		uc.log.Warn().
			Str("distributor_id", d.DistributorID).
			Str("variant_id", d.VariantID).
			Int64("counter", d.Counter).
			Int64("replayed", d.Replayed).
			Msg("descuadre entre sub-ledger y movimientos")
	}
	uc.log.Debug().Int("drifts", len(report.Drifts)).Int("variants", len(report.Totals)).Msg("conciliación terminada")
	return report, nil
}

func buildReport(variants []*entity.Variant, stocks []*entity.DistributorStock, movs []*entity.Movement) *ReconcileReport {
	replayed := make(map[distKey]int64)
	for _, m := range movs {
		if m.Scope != entity.ScopeDistributor {
			continue
		}
		replayed[distKey{m.DistributorID, m.VariantID}] += m.Quantity
	}

	central := make(map[string]int64, len(variants))
	for _, v := range variants {
		central[v.ID] = v.Stock
	}
	dist := make(map[string]map[string]int64)
	counters := make(map[distKey]int64, len(stocks))
	for _, s := range stocks {
		if dist[s.DistributorID] == nil {
			dist[s.DistributorID] = make(map[string]int64)
		}
		dist[s.DistributorID][s.VariantID] = s.Stock
		counters[distKey{s.DistributorID, s.VariantID}] = s.Stock
	}

	var drifts []Drift
	for k, c := range counters {
		if r := replayed[k]; r != c {
			drifts = append(drifts, Drift{DistributorID: k.distributor, VariantID: k.variant, Counter: c, Replayed: r})
		}
	}
	// Movimientos de un sub-ledger que no existe.
	for k, r := range replayed {
		if _, ok := counters[k]; !ok && r != 0 {
			drifts = append(drifts, Drift{DistributorID: k.distributor, VariantID: k.variant, Replayed: r})
		}
	}
	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].DistributorID != drifts[j].DistributorID {
			return drifts[i].DistributorID < drifts[j].DistributorID
		}
		return drifts[i].VariantID < drifts[j].VariantID
	})

	return &ReconcileReport{Drifts: drifts, Totals: dominv.Totals(central, dist)}
}
