package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Append persiste un movimiento; seq lo asigna la secuencia de la tabla.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, transfer_id, type, scope, variant_id, product_id, distributor_id, quantity, performed_by, notes, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, nullable(m.TransferID), m.Type, m.Scope, m.VariantID, nullable(m.ProductID),
		nullable(m.DistributorID), m.Quantity, nullable(m.PerformedBy), nullable(m.Notes), m.Timestamp,
	).Scan(&m.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append movement: id duplicado %s: %w", m.ID, err)
		}
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// List filtra y pagina el log. Limit 0 significa sin límite.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `
		SELECT id, COALESCE(transfer_id, ''), type, scope, variant_id, COALESCE(product_id, ''),
			COALESCE(distributor_id, ''), quantity, COALESCE(performed_by, ''), COALESCE(notes, ''), ts, seq
		FROM movements WHERE 1=1`
	var args []any
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.DistributorID != "" {
		add("distributor_id = $%d", f.DistributorID)
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.VariantID != "" {
		add("variant_id = $%d", f.VariantID)
	}
	if f.From != nil {
		add("ts >= $%d", *f.From)
	}
	if f.To != nil {
		add("ts <= $%d", *f.To)
	}
	if f.Descending {
		query += " ORDER BY ts DESC, seq DESC"
	} else {
		query += " ORDER BY ts ASC, seq ASC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		if err := rows.Scan(&m.ID, &m.TransferID, &m.Type, &m.Scope, &m.VariantID, &m.ProductID,
			&m.DistributorID, &m.Quantity, &m.PerformedBy, &m.Notes, &m.Timestamp, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
