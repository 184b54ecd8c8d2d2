package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// MaxMovementPage tope de Limit en consultas del log.
const MaxMovementPage = 500

// MovementLogUseCase consulta del log de movimientos. El log es de solo
// inserción y no se usa para calcular stock.
type MovementLogUseCase struct {
	tx TxRunner
	options
}

func NewMovementLogUseCase(tx TxRunner, opts ...Option) *MovementLogUseCase {
	o := buildOptions(opts)
	o.log = o.log.Component("movements")
	return &MovementLogUseCase{tx: tx, options: o}
}

// ListMovements filtra por distribuidor, producto, variante y rango de fechas.
// Limit 0 o mayor que MaxMovementPage se ajusta a MaxMovementPage.
func (uc *MovementLogUseCase) ListMovements(ctx context.Context, f repository.MovementFilter) (out []*entity.Movement, err error) {
	ctx, span := uc.tracer.Start(ctx, "movements.List")
	defer func() { endSpan(span, err) }()

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, domain.Invalid("rango de fechas invertido")
	}
	if f.Offset < 0 || f.Limit < 0 {
		return nil, domain.Invalid("limit y offset no pueden ser negativos")
	}
	if f.Limit == 0 || f.Limit > MaxMovementPage {
		f.Limit = MaxMovementPage
	}

	err = uc.runTx(ctx, uc.tx, "list_movements", func(tx LedgerTx) error {
		out, err = tx.Movements().List(ctx, f)
		return err
	})
	if err != nil {
		uc.log.Error().Err(err).Msg("error consultando movimientos")
		return nil, err
	}
	return out, nil
}
