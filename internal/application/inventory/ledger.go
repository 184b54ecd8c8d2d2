package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// LedgerUseCase ledger central: disponibilidad, ventas y ajustes de stock.
// Toda mutación es una única transacción y la invalidación de caché ocurre
// solo después del commit.
type LedgerUseCase struct {
	tx  TxRunner
	inv Invalidator
	options
}

// NewLedgerUseCase construye el caso de uso. inv puede ser nil.
func NewLedgerUseCase(tx TxRunner, inv Invalidator, opts ...Option) *LedgerUseCase {
	if inv == nil {
		inv = nopInvalidator{}
	}
	o := buildOptions(opts)
	o.log = o.log.Component("ledger")
	return &LedgerUseCase{tx: tx, inv: inv, options: o}
}

// AvailabilityResult respuesta de CheckAvailability.
type AvailabilityResult struct {
	Available  bool
	Shortfalls []dominv.Shortfall
}

// SaleInput venta del canal central (checkout).
type SaleInput struct {
	Items       []dominv.Line
	PerformedBy string
	Notes       string
}

// StockUpdateInput ajuste directo del stock central (reposición o corrección).
type StockUpdateInput struct {
	VariantID   string
	Delta       int64
	PerformedBy string
	Notes       string
}

func validateLines(items []dominv.Line) error {
	if len(items) == 0 {
		return domain.Invalid("sin líneas")
	}
	for i, it := range items {
		if it.VariantID == "" {
			return domain.Invalid("línea %d sin variant_id", i)
		}
		if it.Quantity <= 0 {
			return domain.Invalid("línea %d con cantidad %d", i, it.Quantity)
		}
	}
	if v := dominv.MergedOverflow(items); v != "" {
		return domain.Invalid("la cantidad total de la variante %s excede el máximo", v)
	}
	return nil
}

// CheckAvailability consulta de solo lectura. Una variante desconocida cuenta
// como disponible 0; no es un error.
func (uc *LedgerUseCase) CheckAvailability(ctx context.Context, items []dominv.Line) (res *AvailabilityResult, err error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.CheckAvailability")
	defer func() { endSpan(span, err) }()

	if err := validateLines(items); err != nil {
		return nil, err
	}
	lines := dominv.MergeLines(items)

	var available map[string]int64
	err = uc.runTx(ctx, uc.tx, "check_availability", func(tx LedgerTx) error {
		available = make(map[string]int64, len(lines))
		for _, l := range lines {
			v, err := tx.Variants().Get(ctx, l.VariantID)
			if err != nil {
				return err
			}
			if v != nil {
				available[l.VariantID] = v.Stock
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	short := dominv.Shortfalls(lines, available)
	return &AvailabilityResult{Available: len(short) == 0, Shortfalls: short}, nil
}

// RegisterSale verifica todas las líneas y descuenta el stock central en una
// sola transacción, con un movimiento "sale" por variante. Si una línea no
// alcanza no se modifica ninguna.
func (uc *LedgerUseCase) RegisterSale(ctx context.Context, in SaleInput) (err error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.RegisterSale")
	defer func() { endSpan(span, err) }()

	if err := validateLines(in.Items); err != nil {
		return err
	}
	lines := dominv.MergeLines(in.Items)
	// Orden estable de bloqueo para no provocar deadlocks entre ventas concurrentes.
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })
	span.SetAttributes(attribute.Int("sale.lines", len(lines)))

	var refs []invalidation.VariantRef
	err = uc.runTx(ctx, uc.tx, "register_sale", func(tx LedgerTx) error {
		refs = refs[:0]
		variants := make([]*entity.Variant, len(lines))
		for i, l := range lines {
			v, err := lockVariant(ctx, tx, l.VariantID)
			if err != nil {
				return err
			}
			variants[i] = v
		}
		for i, l := range lines {
			if variants[i].Stock < l.Quantity {
				return &domain.InsufficientStockError{VariantID: l.VariantID, Available: variants[i].Stock, Requested: l.Quantity}
			}
		}

		now := uc.timestamp()
		saleID := uuid.NewString()
		for i, l := range lines {
			v := variants[i]
			v.Stock -= l.Quantity
			v.UpdatedAt = now
			if err := tx.Variants().UpdateStock(ctx, v); err != nil {
				return err
			}
			if err := tx.Movements().Append(ctx, &entity.Movement{
				ID:          uuid.NewString(),
				TransferID:  saleID,
				Type:        entity.MovementSale,
				Scope:       entity.ScopeCentral,
				VariantID:   v.ID,
				ProductID:   v.ProductID,
				Quantity:    -l.Quantity,
				PerformedBy: in.PerformedBy,
				Notes:       in.Notes,
				Timestamp:   now,
			}); err != nil {
				return err
			}
			refs = append(refs, invalidation.VariantRef{VariantID: v.ID, ProductID: v.ProductID})
		}
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Int("lines", len(lines)).Msg("venta rechazada")
		return err
	}

	uc.inv.Apply(ctx, invalidation.Mutation{Kind: invalidation.KindSale, Variants: refs})
	uc.log.Info().Int("lines", len(lines)).Str("performed_by", in.PerformedBy).Msg("venta registrada")
	return nil
}

// UpdateStock aplica stock += delta. Un resultado negativo aborta con
// InsufficientStockError sin aplicar nada. Registra un movimiento "restock".
func (uc *LedgerUseCase) UpdateStock(ctx context.Context, in StockUpdateInput) (updated *entity.Variant, err error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.UpdateStock")
	defer func() { endSpan(span, err) }()

	if in.VariantID == "" {
		return nil, domain.Invalid("variant_id requerido")
	}
	if in.Delta == 0 {
		return nil, domain.Invalid("delta no puede ser 0")
	}
	if in.Delta == math.MinInt64 {
		return nil, domain.Invalid("delta fuera de rango")
	}
	span.SetAttributes(attribute.String("variant.id", in.VariantID), attribute.Int64("stock.delta", in.Delta))

	err = uc.runTx(ctx, uc.tx, "update_stock", func(tx LedgerTx) error {
		v, err := lockVariant(ctx, tx, in.VariantID)
		if err != nil {
			return err
		}
		next, ok := dominv.AddQuantity(v.Stock, in.Delta)
		if !ok {
			return domain.Invalid("el stock de %s excede el máximo", v.ID)
		}
		if next < 0 {
			return &domain.InsufficientStockError{VariantID: v.ID, Available: v.Stock, Requested: -in.Delta}
		}
		now := uc.timestamp()
		v.Stock = next
		v.UpdatedAt = now
		if err := tx.Variants().UpdateStock(ctx, v); err != nil {
			return err
		}
		updated = v
		return tx.Movements().Append(ctx, &entity.Movement{
			ID:          uuid.NewString(),
			Type:        entity.MovementRestock,
			Scope:       entity.ScopeCentral,
			VariantID:   v.ID,
			ProductID:   v.ProductID,
			Quantity:    in.Delta,
			PerformedBy: in.PerformedBy,
			Notes:       in.Notes,
			Timestamp:   now,
		})
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("variant_id", in.VariantID).Int64("delta", in.Delta).Msg("ajuste de stock rechazado")
		return nil, err
	}

	uc.inv.Apply(ctx, invalidation.Mutation{
		Kind:     invalidation.KindStockUpdate,
		Variants: []invalidation.VariantRef{{VariantID: updated.ID, ProductID: updated.ProductID}},
	})
	uc.log.Info().Str("variant_id", updated.ID).Int64("delta", in.Delta).Int64("stock", updated.Stock).Msg("stock actualizado")
	return updated, nil
}

// lockVariant lee la variante bloqueándola hasta el commit.
func lockVariant(ctx context.Context, tx LedgerTx, variantID string) (*entity.Variant, error) {
	v, err := tx.Variants().GetForUpdate(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownVariant, variantID)
	}
	return v, nil
}

// transferStockOut descuenta quantity del stock central dentro de la
// transacción del llamador. Solo lo usa el coordinador de transferencias;
// v debe haberse obtenido con lockVariant en la misma transacción.
func transferStockOut(ctx context.Context, tx LedgerTx, v *entity.Variant, quantity int64, now time.Time) error {
	if v.Stock < quantity {
		return &domain.InsufficientStockError{VariantID: v.ID, Available: v.Stock, Requested: quantity}
	}
	v.Stock -= quantity
	v.UpdatedAt = now
	return tx.Variants().UpdateStock(ctx, v)
}

// transferStockIn suma quantity al stock central dentro de la transacción del llamador.
func transferStockIn(ctx context.Context, tx LedgerTx, v *entity.Variant, quantity int64, now time.Time) error {
	next, ok := dominv.AddQuantity(v.Stock, quantity)
	if !ok {
		return domain.Invalid("el stock central de %s excede el máximo", v.ID)
	}
	v.Stock = next
	v.UpdatedAt = now
	return tx.Variants().UpdateStock(ctx, v)
}
