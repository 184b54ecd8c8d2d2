package catalog

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductSales unidades vendidas de un producto por el canal central.
type ProductSales struct {
	ProductID string
	Units     int64
}

// CatalogSource lecturas de datos confirmados para construir las vistas.
// Las búsquedas por id devuelven (nil, nil) si no existe.
type CatalogSource interface {
	Variant(ctx context.Context, id string) (*entity.Variant, error)
	Product(ctx context.Context, id string) (*entity.Product, error)
	VariantsByProduct(ctx context.Context, productID string) ([]*entity.Variant, error)
	Products(ctx context.Context, offset, limit int) ([]*entity.Product, error)
	FeaturedProducts(ctx context.Context) ([]*entity.Product, error)
	TopSelling(ctx context.Context, limit int) ([]ProductSales, error)
	CentralStock(ctx context.Context) (map[string]int64, error)
	DistributorStocks(ctx context.Context) ([]*entity.DistributorStock, error)
	DistributorInventory(ctx context.Context, distributorID string) ([]*entity.DistributorStock, error)
	VariantDistribution(ctx context.Context, variantID string) ([]*entity.DistributorStock, error)
}

// Cache lo que las vistas usan del Cache Store.
type Cache interface {
	GetCached(ctx context.Context, key string, factory func(context.Context) (any, error)) (any, error)
	WriteThrough(ctx context.Context, key string, tentative any, commit func(context.Context) error) error
}

// StockUpdater ajuste del ledger central (inventory.LedgerUseCase).
type StockUpdater interface {
	UpdateStock(ctx context.Context, in inventory.StockUpdateInput) (*entity.Variant, error)
}
