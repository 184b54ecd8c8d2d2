package memstore

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ catalog.CatalogSource = (*CatalogSource)(nil)

// CatalogSource lecturas de catálogo sobre datos confirmados. Cada llamada usa
// una transacción de solo lectura que se descarta.
type CatalogSource struct {
	s *Store
}

func NewCatalogSource(s *Store) *CatalogSource {
	return &CatalogSource{s: s}
}

func (c *CatalogSource) read() *Txn { return c.s.Begin() }

func (c *CatalogSource) Variant(ctx context.Context, id string) (*entity.Variant, error) {
	txn := c.read()
	defer txn.Rollback()
	return variantRepo{txn}.Get(ctx, id)
}

func (c *CatalogSource) Product(_ context.Context, id string) (*entity.Product, error) {
	txn := c.read()
	defer txn.Rollback()
	raw, ok := txn.Read(productKey(id))
	if !ok {
		return nil, nil
	}
	p := raw.(entity.Product)
	return &p, nil
}

func (c *CatalogSource) VariantsByProduct(ctx context.Context, productID string) ([]*entity.Variant, error) {
	txn := c.read()
	defer txn.Rollback()
	all, _ := variantRepo{txn}.List(ctx)
	var out []*entity.Variant
	for _, v := range all {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *CatalogSource) products() []*entity.Product {
	txn := c.read()
	defer txn.Rollback()
	kvs := txn.Scan(productPrefix)
	out := make([]*entity.Product, 0, len(kvs))
	for _, kv := range kvs {
		p := kv.Value.(entity.Product)
		out = append(out, &p)
	}
	return out
}

func (c *CatalogSource) Products(_ context.Context, offset, limit int) ([]*entity.Product, error) {
	return paginate(c.products(), offset, limit), nil
}

func (c *CatalogSource) FeaturedProducts(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range c.products() {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

// TopSelling suma las ventas del canal central por producto.
func (c *CatalogSource) TopSelling(_ context.Context, limit int) ([]catalog.ProductSales, error) {
	txn := c.read()
	defer txn.Rollback()
	units := make(map[string]int64)
	for _, kv := range txn.Scan(movementPrefix) {
		m := kv.Value.(entity.Movement)
		if m.Type == entity.MovementSale && m.ProductID != "" {
			units[m.ProductID] -= m.Quantity
		}
	}
	out := make([]catalog.ProductSales, 0, len(units))
	for id, u := range units {
		out = append(out, catalog.ProductSales{ProductID: id, Units: u})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].ProductID < out[j].ProductID
	})
	return paginate(out, 0, limit), nil
}

func (c *CatalogSource) CentralStock(ctx context.Context) (map[string]int64, error) {
	txn := c.read()
	defer txn.Rollback()
	all, _ := variantRepo{txn}.List(ctx)
	out := make(map[string]int64, len(all))
	for _, v := range all {
		out[v.ID] = v.Stock
	}
	return out, nil
}

func (c *CatalogSource) DistributorStocks(_ context.Context) ([]*entity.DistributorStock, error) {
	txn := c.read()
	defer txn.Rollback()
	return scanStocks(txn, ""), nil
}

func (c *CatalogSource) DistributorInventory(_ context.Context, distributorID string) ([]*entity.DistributorStock, error) {
	txn := c.read()
	defer txn.Rollback()
	return scanStocks(txn, distributorID), nil
}

func (c *CatalogSource) VariantDistribution(_ context.Context, variantID string) ([]*entity.DistributorStock, error) {
	txn := c.read()
	defer txn.Rollback()
	var out []*entity.DistributorStock
	for _, s := range scanStocks(txn, "") {
		if s.VariantID == variantID {
			out = append(out, s)
		}
	}
	return out, nil
}
