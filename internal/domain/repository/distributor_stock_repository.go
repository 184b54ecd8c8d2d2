package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DistributorStockRepository puerto de los sub-ledgers de distribuidores.
type DistributorStockRepository interface {
	// GetForUpdate devuelve (nil, nil) si el par (distribuidor, variante) nunca se creó.
	GetForUpdate(ctx context.Context, distributorID, variantID string) (*entity.DistributorStock, error)
	Upsert(ctx context.Context, s *entity.DistributorStock) error
	ListByDistributor(ctx context.Context, distributorID string) ([]*entity.DistributorStock, error)
	ListAll(ctx context.Context) ([]*entity.DistributorStock, error)
}
