package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.VariantRepository = (*VariantRepo)(nil)

// VariantRepo ledger central sobre la tabla variants (usable con pool o tx).
type VariantRepo struct {
	q Querier
}

// NewVariantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

const variantColumns = `id, product_id, sku, stock, updated_at`

func scanVariant(row pgx.Row) (*entity.Variant, error) {
	var v entity.Variant
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Stock, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Get obtiene una variante; (nil, nil) si no existe.
func (r *VariantRepo) Get(ctx context.Context, id string) (*entity.Variant, error) {
	v, err := scanVariant(r.q.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// GetForUpdate obtiene la variante y bloquea la fila hasta el fin de la tx.
func (r *VariantRepo) GetForUpdate(ctx context.Context, id string) (*entity.Variant, error) {
	v, err := scanVariant(r.q.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant for update: %w", err)
	}
	return v, nil
}

// UpdateStock persiste el stock. El CHECK (stock >= 0) de la tabla es la última barrera.
func (r *VariantRepo) UpdateStock(ctx context.Context, v *entity.Variant) error {
	tag, err := r.q.Exec(ctx, `UPDATE variants SET stock = $2, updated_at = $3 WHERE id = $1`, v.ID, v.Stock, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update variant stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update variant stock: variante %s no existe", v.ID)
	}
	return nil
}

// List todas las variantes ordenadas por id.
func (r *VariantRepo) List(ctx context.Context) ([]*entity.Variant, error) {
	rows, err := r.q.Query(ctx, `SELECT `+variantColumns+` FROM variants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
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
