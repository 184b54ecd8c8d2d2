package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-ledger/internal/application/invalidation"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// TransferState etapa alcanzada por una solicitud de transferencia.
// Applied y Logged ocurren en el mismo commit, así que desde fuera solo se
// observa Logged o nada.
type TransferState string

const (
	StateRequested   TransferState = "requested"
	StateValidated   TransferState = "validated"
	StateApplied     TransferState = "applied"
	StateLogged      TransferState = "logged"
	StateInvalidated TransferState = "invalidated"
)

// TransferInput solicitud de movimiento entre central y un distribuidor.
type TransferInput struct {
	DistributorID string
	VariantID     string
	Quantity      int64
	PerformedBy   string
	Notes         string
}

// DistributorSaleInput venta registrada por un distribuidor.
type DistributorSaleInput struct {
	DistributorID string
	VariantID     string
	Quantity      int64
	PerformedBy   string
	Notes         string
}

// TransferReceipt resultado de una operación confirmada.
type TransferReceipt struct {
	TransferID       string
	State            TransferState
	CentralStock     int64
	DistributorStock int64
	Movements        []*entity.Movement
}

// TransferUseCase coordinador de transferencias central <-> distribuidor y de
// ventas de distribuidor. Cada operación es todo o nada.
type TransferUseCase struct {
	tx  TxRunner
	inv Invalidator
	options
}

// NewTransferUseCase construye el coordinador. inv puede ser nil.
func NewTransferUseCase(tx TxRunner, inv Invalidator, opts ...Option) *TransferUseCase {
	if inv == nil {
		inv = nopInvalidator{}
	}
	o := buildOptions(opts)
	o.log = o.log.Component("transfer")
	return &TransferUseCase{tx: tx, inv: inv, options: o}
}

func validateTransfer(distributorID, variantID, performedBy string, quantity int64, requirePerformer bool) error {
	if strings.TrimSpace(distributorID) == "" {
		return domain.Invalid("distributor_id requerido")
	}
	if strings.TrimSpace(variantID) == "" {
		return domain.Invalid("variant_id requerido")
	}
	if requirePerformer && strings.TrimSpace(performedBy) == "" {
		return domain.Invalid("performed_by requerido")
	}
	if quantity <= 0 {
		return domain.Invalid("cantidad debe ser mayor que 0, recibido %d", quantity)
	}
	return nil
}

// TransferToDistributor mueve quantity unidades del ledger central al
// sub-ledger del distribuidor (creándolo si no existe) y registra dos
// movimientos con la misma correlación.
func (uc *TransferUseCase) TransferToDistributor(ctx context.Context, in TransferInput) (receipt *TransferReceipt, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.ToDistributor")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("distributor.id", in.DistributorID),
		attribute.String("variant.id", in.VariantID),
		attribute.Int64("transfer.quantity", in.Quantity),
	)

	if err := validateTransfer(in.DistributorID, in.VariantID, in.PerformedBy, in.Quantity, true); err != nil {
		return nil, err
	}

	var productID string
	err = uc.runTx(ctx, uc.tx, "transfer_to_distributor", func(tx LedgerTx) error {
		receipt = &TransferReceipt{TransferID: uuid.NewString(), State: StateRequested}

		v, err := lockVariant(ctx, tx, in.VariantID)
		if err != nil {
			return err
		}
		ds, err := tx.DistributorStock().GetForUpdate(ctx, in.DistributorID, in.VariantID)
		if err != nil {
			return err
		}
		if v.Stock < in.Quantity {
			return &domain.InsufficientStockError{VariantID: v.ID, Available: v.Stock, Requested: in.Quantity}
		}
		receipt.State = StateValidated

		now := uc.timestamp()
		if err := transferStockOut(ctx, tx, v, in.Quantity, now); err != nil {
			return err
		}
		if ds == nil {
			ds = &entity.DistributorStock{DistributorID: in.DistributorID, VariantID: in.VariantID}
		}
		next, ok := dominv.AddQuantity(ds.Stock, in.Quantity)
		if !ok {
			return domain.Invalid("el stock del distribuidor %s excede el máximo", in.DistributorID)
		}
		ds.Stock = next
		ds.LastTransferAt = &now
		if err := tx.DistributorStock().Upsert(ctx, ds); err != nil {
			return err
		}
		receipt.State = StateApplied

		movs := []*entity.Movement{
			{
				ID: uuid.NewString(), TransferID: receipt.TransferID,
				Type: entity.MovementTransferOut, Scope: entity.ScopeCentral,
				VariantID: v.ID, ProductID: v.ProductID, DistributorID: in.DistributorID,
				Quantity: -in.Quantity, PerformedBy: in.PerformedBy, Notes: in.Notes, Timestamp: now,
			},
			{
				ID: uuid.NewString(), TransferID: receipt.TransferID,
				Type: entity.MovementTransferIn, Scope: entity.ScopeDistributor,
				VariantID: v.ID, ProductID: v.ProductID, DistributorID: in.DistributorID,
				Quantity: in.Quantity, PerformedBy: in.PerformedBy, Notes: in.Notes, Timestamp: now,
			},
		}
		if err := appendAll(ctx, tx, movs); err != nil {
			return err
		}
		receipt.State = StateLogged
		receipt.CentralStock = v.Stock
		receipt.DistributorStock = ds.Stock
		receipt.Movements = movs
		productID = v.ProductID
		return nil
	})
	if err != nil {
		uc.logRejected(err, "transferencia a distribuidor rechazada", in.DistributorID, in.VariantID, in.Quantity)
		return nil, err
	}

	uc.inv.Apply(ctx, invalidation.Mutation{
		Kind:          invalidation.KindTransfer,
		Variants:      []invalidation.VariantRef{{VariantID: in.VariantID, ProductID: productID}},
		DistributorID: in.DistributorID,
	})
	receipt.State = StateInvalidated
	uc.log.Info().
		Str("transfer_id", receipt.TransferID).
		Str("distributor_id", in.DistributorID).
		Str("variant_id", in.VariantID).
		Int64("quantity", in.Quantity).
		Msg("transferencia a distribuidor aplicada")
	return receipt, nil
}

// ReceiveFromDistributor devuelve quantity unidades del distribuidor al
// ledger central. El sub-ledger debe existir y tener stock suficiente.
func (uc *TransferUseCase) ReceiveFromDistributor(ctx context.Context, in TransferInput) (receipt *TransferReceipt, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.FromDistributor")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("distributor.id", in.DistributorID),
		attribute.String("variant.id", in.VariantID),
		attribute.Int64("transfer.quantity", in.Quantity),
	)

	if err := validateTransfer(in.DistributorID, in.VariantID, in.PerformedBy, in.Quantity, true); err != nil {
		return nil, err
	}

	var productID string
	err = uc.runTx(ctx, uc.tx, "receive_from_distributor", func(tx LedgerTx) error {
		receipt = &TransferReceipt{TransferID: uuid.NewString(), State: StateRequested}

		v, err := lockVariant(ctx, tx, in.VariantID)
		if err != nil {
			return err
		}
		ds, err := tx.DistributorStock().GetForUpdate(ctx, in.DistributorID, in.VariantID)
		if err != nil {
			return err
		}
		if ds == nil {
			return fmt.Errorf("%w: distribuidor %s, variante %s", domain.ErrUnknownDistributorInventory, in.DistributorID, in.VariantID)
		}
		if ds.Stock < in.Quantity {
			return &domain.InsufficientStockError{
				VariantID: in.VariantID, DistributorID: in.DistributorID,
				Available: ds.Stock, Requested: in.Quantity,
			}
		}
		receipt.State = StateValidated

		now := uc.timestamp()
		ds.Stock -= in.Quantity
		ds.LastTransferAt = &now
		if err := tx.DistributorStock().Upsert(ctx, ds); err != nil {
			return err
		}
		if err := transferStockIn(ctx, tx, v, in.Quantity, now); err != nil {
			return err
		}
		receipt.State = StateApplied

		movs := []*entity.Movement{
			{
				ID: uuid.NewString(), TransferID: receipt.TransferID,
				Type: entity.MovementTransferOut, Scope: entity.ScopeDistributor,
				VariantID: v.ID, ProductID: v.ProductID, DistributorID: in.DistributorID,
				Quantity: -in.Quantity, PerformedBy: in.PerformedBy, Notes: in.Notes, Timestamp: now,
			},
			{
				ID: uuid.NewString(), TransferID: receipt.TransferID,
				Type: entity.MovementTransferIn, Scope: entity.ScopeCentral,
				VariantID: v.ID, ProductID: v.ProductID, DistributorID: in.DistributorID,
				Quantity: in.Quantity, PerformedBy: in.PerformedBy, Notes: in.Notes, Timestamp: now,
			},
		}
		if err := appendAll(ctx, tx, movs); err != nil {
			return err
		}
		receipt.State = StateLogged
		receipt.CentralStock = v.Stock
		receipt.DistributorStock = ds.Stock
		receipt.Movements = movs
		productID = v.ProductID
		return nil
	})
	if err != nil {
		uc.logRejected(err, "devolución de distribuidor rechazada", in.DistributorID, in.VariantID, in.Quantity)
		return nil, err
	}

	uc.inv.Apply(ctx, invalidation.Mutation{
		Kind:          invalidation.KindTransfer,
		Variants:      []invalidation.VariantRef{{VariantID: in.VariantID, ProductID: productID}},
		DistributorID: in.DistributorID,
	})
	receipt.State = StateInvalidated
	uc.log.Info().
		Str("transfer_id", receipt.TransferID).
		Str("distributor_id", in.DistributorID).
		Str("variant_id", in.VariantID).
		Int64("quantity", in.Quantity).
		Msg("devolución de distribuidor aplicada")
	return receipt, nil
}

// RecordDistributorSale descuenta una venta del sub-ledger del distribuidor.
// El stock central no se toca.
func (uc *TransferUseCase) RecordDistributorSale(ctx context.Context, in DistributorSaleInput) (receipt *TransferReceipt, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer.DistributorSale")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("distributor.id", in.DistributorID),
		attribute.String("variant.id", in.VariantID),
		attribute.Int64("sale.quantity", in.Quantity),
	)

	if err := validateTransfer(in.DistributorID, in.VariantID, in.PerformedBy, in.Quantity, false); err != nil {
		return nil, err
	}

	err = uc.runTx(ctx, uc.tx, "distributor_sale", func(tx LedgerTx) error {
		receipt = &TransferReceipt{TransferID: uuid.NewString(), State: StateRequested}

		ds, err := tx.DistributorStock().GetForUpdate(ctx, in.DistributorID, in.VariantID)
		if err != nil {
			return err
		}
		if ds == nil {
			return fmt.Errorf("%w: distribuidor %s, variante %s", domain.ErrUnknownDistributorInventory, in.DistributorID, in.VariantID)
		}
		if ds.Stock < in.Quantity {
			return &domain.InsufficientStockError{
				VariantID: in.VariantID, DistributorID: in.DistributorID,
				Available: ds.Stock, Requested: in.Quantity,
			}
		}
		receipt.State = StateValidated

		// Lectura sin bloqueo: solo aporta product_id al movimiento.
		v, err := tx.Variants().Get(ctx, in.VariantID)
		if err != nil {
			return err
		}
		var productID string
		if v != nil {
			productID = v.ProductID
			receipt.CentralStock = v.Stock
		}

		now := uc.timestamp()
		ds.Stock -= in.Quantity
		ds.LastSaleAt = &now
		if err := tx.DistributorStock().Upsert(ctx, ds); err != nil {
			return err
		}
		receipt.State = StateApplied

		mov := &entity.Movement{
			ID: uuid.NewString(), TransferID: receipt.TransferID,
			Type: entity.MovementDistributorSale, Scope: entity.ScopeDistributor,
			VariantID: in.VariantID, ProductID: productID, DistributorID: in.DistributorID,
			Quantity: -in.Quantity, PerformedBy: in.PerformedBy, Notes: in.Notes, Timestamp: now,
		}
		if err := tx.Movements().Append(ctx, mov); err != nil {
			return err
		}
		receipt.State = StateLogged
		receipt.DistributorStock = ds.Stock
		receipt.Movements = []*entity.Movement{mov}
		return nil
	})
	if err != nil {
		uc.logRejected(err, "venta de distribuidor rechazada", in.DistributorID, in.VariantID, in.Quantity)
		return nil, err
	}

	uc.inv.Apply(ctx, invalidation.Mutation{
		Kind:          invalidation.KindDistributorSale,
		Variants:      []invalidation.VariantRef{{VariantID: in.VariantID}},
		DistributorID: in.DistributorID,
	})
	receipt.State = StateInvalidated
	uc.log.Info().
		Str("distributor_id", in.DistributorID).
		Str("variant_id", in.VariantID).
		Int64("quantity", in.Quantity).
		Msg("venta de distribuidor registrada")
	return receipt, nil
}

func appendAll(ctx context.Context, tx LedgerTx, movs []*entity.Movement) error {
	for _, m := range movs {
		if err := tx.Movements().Append(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (uc *TransferUseCase) logRejected(err error, msg, distributorID, variantID string, quantity int64) {
	ev := uc.log.Warn()
	if domain.IsRetryable(err) {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("distributor_id", distributorID).
		Str("variant_id", variantID).
		Int64("quantity", quantity).
		Msg(msg)
}
