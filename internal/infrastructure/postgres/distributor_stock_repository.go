package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.DistributorStockRepository = (*DistributorStockRepo)(nil)

// DistributorStockRepo sub-ledgers de distribuidores (usable con pool o tx).
type DistributorStockRepo struct {
	q Querier
}

// NewDistributorStockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDistributorStockRepository(q Querier) *DistributorStockRepo {
	return &DistributorStockRepo{q: q}
}

const distributorStockColumns = `distributor_id, variant_id, stock, last_transfer_at, last_sale_at`

func scanDistributorStock(row pgx.Row) (*entity.DistributorStock, error) {
	var s entity.DistributorStock
	if err := row.Scan(&s.DistributorID, &s.VariantID, &s.Stock, &s.LastTransferAt, &s.LastSaleAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetForUpdate obtiene la fila y la bloquea; (nil, nil) si el par no existe.
func (r *DistributorStockRepo) GetForUpdate(ctx context.Context, distributorID, variantID string) (*entity.DistributorStock, error) {
	query := `
		SELECT ` + distributorStockColumns + `
		FROM distributor_stock WHERE distributor_id = $1 AND variant_id = $2
		FOR UPDATE`
	s, err := scanDistributorStock(r.q.QueryRow(ctx, query, distributorID, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get distributor stock for update: %w", err)
	}
	return s, nil
}

// Upsert inserta o actualiza la fila (por distribuidor y variante).
func (r *DistributorStockRepo) Upsert(ctx context.Context, s *entity.DistributorStock) error {
	query := `
		INSERT INTO distributor_stock (distributor_id, variant_id, stock, last_transfer_at, last_sale_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (distributor_id, variant_id)
		DO UPDATE SET stock = EXCLUDED.stock,
			last_transfer_at = EXCLUDED.last_transfer_at,
			last_sale_at = EXCLUDED.last_sale_at`
	_, err := r.q.Exec(ctx, query, s.DistributorID, s.VariantID, s.Stock, s.LastTransferAt, s.LastSaleAt)
	if err != nil {
		return fmt.Errorf("upsert distributor stock: %w", err)
	}
	return nil
}

// ListByDistributor filas de un distribuidor.
func (r *DistributorStockRepo) ListByDistributor(ctx context.Context, distributorID string) ([]*entity.DistributorStock, error) {
	return r.list(ctx, `SELECT `+distributorStockColumns+` FROM distributor_stock WHERE distributor_id = $1 ORDER BY variant_id`, distributorID)
}

// ListByVariant filas de una variante en todos los distribuidores.
func (r *DistributorStockRepo) ListByVariant(ctx context.Context, variantID string) ([]*entity.DistributorStock, error) {
	return r.list(ctx, `SELECT `+distributorStockColumns+` FROM distributor_stock WHERE variant_id = $1 ORDER BY distributor_id`, variantID)
}

// ListAll todas las filas.
func (r *DistributorStockRepo) ListAll(ctx context.Context) ([]*entity.DistributorStock, error) {
	return r.list(ctx, `SELECT `+distributorStockColumns+` FROM distributor_stock ORDER BY distributor_id, variant_id`)
}

func (r *DistributorStockRepo) list(ctx context.Context, query string, args ...any) ([]*entity.DistributorStock, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list distributor stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.DistributorStock
	for rows.Next() {
		s, err := scanDistributorStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan distributor stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
