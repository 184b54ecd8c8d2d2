package memstore

import (
	"context"
	"net/url"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Esquema de claves. Los valores se guardan por valor para que nadie fuera de
// una transacción pueda mutar datos confirmados.
const (
	variantPrefix  = "variant/"
	productPrefix  = "product/"
	dstockPrefix   = "dstock/"
	movementPrefix = "movement/"
)

func variantKey(id string) string { return variantPrefix + id }
func productKey(id string) string { return productPrefix + id }

// Los componentes de dstock/{dist}/{variant} van escapados: un "/" dentro de
// un ID no puede confundirse con el separador.
func dstockKey(distributorID, variantID string) string {
	return distributorScan(distributorID) + url.PathEscape(variantID)
}

func distributorScan(distributorID string) string {
	return dstockPrefix + url.PathEscape(distributorID) + "/"
}

var (
	_ repository.VariantRepository          = variantRepo{}
	_ repository.DistributorStockRepository = distributorStockRepo{}
	_ repository.MovementRepository         = movementRepo{}
)

type variantRepo struct{ txn *Txn }

func (r variantRepo) Get(_ context.Context, id string) (*entity.Variant, error) {
	raw, ok := r.txn.Read(variantKey(id))
	if !ok {
		return nil, nil
	}
	v := raw.(entity.Variant)
	return &v, nil
}

// GetForUpdate en un almacén optimista leer ya registra la versión; el
// "bloqueo" es la validación del commit.
func (r variantRepo) GetForUpdate(ctx context.Context, id string) (*entity.Variant, error) {
	return r.Get(ctx, id)
}

func (r variantRepo) UpdateStock(_ context.Context, v *entity.Variant) error {
	r.txn.Write(variantKey(v.ID), *v)
	return nil
}

func (r variantRepo) List(_ context.Context) ([]*entity.Variant, error) {
	kvs := r.txn.Scan(variantPrefix)
	out := make([]*entity.Variant, 0, len(kvs))
	for _, kv := range kvs {
		v := kv.Value.(entity.Variant)
		out = append(out, &v)
	}
	return out, nil
}

type distributorStockRepo struct{ txn *Txn }

func (r distributorStockRepo) GetForUpdate(_ context.Context, distributorID, variantID string) (*entity.DistributorStock, error) {
	raw, ok := r.txn.Read(dstockKey(distributorID, variantID))
	if !ok {
		return nil, nil
	}
	s := raw.(entity.DistributorStock)
	return &s, nil
}

func (r distributorStockRepo) Upsert(_ context.Context, s *entity.DistributorStock) error {
	r.txn.Write(dstockKey(s.DistributorID, s.VariantID), *s)
	return nil
}

func (r distributorStockRepo) ListByDistributor(_ context.Context, distributorID string) ([]*entity.DistributorStock, error) {
	return scanStocks(r.txn, distributorID), nil
}

func (r distributorStockRepo) ListAll(_ context.Context) ([]*entity.DistributorStock, error) {
	return scanStocks(r.txn, ""), nil
}

// scanStocks lista los sub-ledgers de distributorID, o todos si está vacío.
func scanStocks(txn *Txn, distributorID string) []*entity.DistributorStock {
	prefix := dstockPrefix
	if distributorID != "" {
		prefix = distributorScan(distributorID)
	}
	kvs := txn.Scan(prefix)
	out := make([]*entity.DistributorStock, 0, len(kvs))
	for _, kv := range kvs {
		s := kv.Value.(entity.DistributorStock)
		if distributorID != "" && s.DistributorID != distributorID {
			continue
		}
		out = append(out, &s)
	}
	return out
}

type movementRepo struct{ txn *Txn }

// Append la secuencia se asigna en el commit y se refleja en m.
func (r movementRepo) Append(_ context.Context, m *entity.Movement) error {
	r.txn.Append(movementPrefix, func(seq int64) any {
		m.Seq = seq
		return *m
	})
	return nil
}

func (r movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, kv := range r.txn.Scan(movementPrefix) {
		m := kv.Value.(entity.Movement)
		if !matches(&m, f) {
			continue
		}
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if f.Descending {
				return a.Timestamp.After(b.Timestamp)
			}
			return a.Timestamp.Before(b.Timestamp)
		}
		if f.Descending {
			return a.Seq > b.Seq
		}
		return a.Seq < b.Seq
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func matches(m *entity.Movement, f repository.MovementFilter) bool {
	switch {
	case f.DistributorID != "" && m.DistributorID != f.DistributorID:
		return false
	case f.ProductID != "" && m.ProductID != f.ProductID:
		return false
	case f.VariantID != "" && m.VariantID != f.VariantID:
		return false
	case f.From != nil && m.Timestamp.Before(*f.From):
		return false
	case f.To != nil && m.Timestamp.After(*f.To):
		return false
	}
	return true
}

// paginate limit 0 significa sin límite.
func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
