package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter criterios de consulta del log de movimientos.
type MovementFilter struct {
	DistributorID string
	ProductID     string
	VariantID     string
	From          *time.Time
	To            *time.Time
	Descending    bool
	Limit         int
	Offset        int
}

// MovementRepository log de movimientos, solo inserción.
type MovementRepository interface {
	Append(ctx context.Context, m *entity.Movement) error
	List(ctx context.Context, f MovementFilter) ([]*entity.Movement, error)
}
