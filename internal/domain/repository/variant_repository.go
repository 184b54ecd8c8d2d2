package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// VariantRepository puerto del ledger central. Usado dentro de transacciones.
type VariantRepository interface {
	// Get devuelve (nil, nil) si la variante no existe.
	Get(ctx context.Context, id string) (*entity.Variant, error)
	// GetForUpdate igual que Get pero bloquea la fila (o registra la lectura) hasta el commit.
	GetForUpdate(ctx context.Context, id string) (*entity.Variant, error)
	UpdateStock(ctx context.Context, v *entity.Variant) error
	List(ctx context.Context) ([]*entity.Variant, error)
}
