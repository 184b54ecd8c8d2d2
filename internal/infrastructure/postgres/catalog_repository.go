package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ catalog.CatalogSource = (*CatalogRepo)(nil)

// CatalogRepo lecturas de catálogo fuera de transacción, directo sobre el pool.
type CatalogRepo struct {
	pool     *pgxpool.Pool
	variants *VariantRepo
	stocks   *DistributorStockRepo
}

// NewCatalogRepository construye el adaptador de lectura.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{
		pool:     pool,
		variants: NewVariantRepository(pool),
		stocks:   NewDistributorStockRepository(pool),
	}
}

func (r *CatalogRepo) Variant(ctx context.Context, id string) (*entity.Variant, error) {
	return r.variants.Get(ctx, id)
}

// Product obtiene un producto por ID; (nil, nil) si no existe.
func (r *CatalogRepo) Product(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, featured FROM products WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepo) VariantsByProduct(ctx context.Context, productID string) ([]*entity.Variant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+variantColumns+` FROM variants WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants by product: %w", err)
	}
	defer rows.Close()
	var list []*entity.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

func (r *CatalogRepo) listProducts(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Featured); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *CatalogRepo) Products(ctx context.Context, offset, limit int) ([]*entity.Product, error) {
	return r.listProducts(ctx, `SELECT id, name, featured FROM products ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *CatalogRepo) FeaturedProducts(ctx context.Context) ([]*entity.Product, error) {
	return r.listProducts(ctx, `SELECT id, name, featured FROM products WHERE featured ORDER BY id`)
}

// TopSelling unidades vendidas por el canal central, de mayor a menor.
func (r *CatalogRepo) TopSelling(ctx context.Context, limit int) ([]catalog.ProductSales, error) {
	query := `
		SELECT product_id, SUM(-quantity)::BIGINT AS units
		FROM movements
		WHERE type = $1 AND product_id IS NOT NULL
		GROUP BY product_id
		ORDER BY units DESC, product_id
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, entity.MovementSale, limit)
	if err != nil {
		return nil, fmt.Errorf("top selling: %w", err)
	}
	defer rows.Close()
	var list []catalog.ProductSales
	for rows.Next() {
		var s catalog.ProductSales
		if err := rows.Scan(&s.ProductID, &s.Units); err != nil {
			return nil, fmt.Errorf("scan top selling: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *CatalogRepo) CentralStock(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, stock FROM variants`)
	if err != nil {
		return nil, fmt.Errorf("central stock: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var stock int64
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, fmt.Errorf("scan central stock: %w", err)
		}
		out[id] = stock
	}
	return out, rows.Err()
}

func (r *CatalogRepo) DistributorStocks(ctx context.Context) ([]*entity.DistributorStock, error) {
	return r.stocks.ListAll(ctx)
}

func (r *CatalogRepo) DistributorInventory(ctx context.Context, distributorID string) ([]*entity.DistributorStock, error) {
	return r.stocks.ListByDistributor(ctx, distributorID)
}

func (r *CatalogRepo) VariantDistribution(ctx context.Context, variantID string) ([]*entity.DistributorStock, error) {
	return r.stocks.ListByVariant(ctx, variantID)
}
