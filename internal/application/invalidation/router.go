// Package invalidation traduce mutaciones confirmadas del ledger al conjunto de
// claves de caché que deben expulsarse.
package invalidation

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/cachekey"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Kind tipo de mutación confirmada.
type Kind int

const (
	KindSale Kind = iota + 1
	KindStockUpdate
	KindTransfer
	KindDistributorSale
)

func (k Kind) String() string {
	switch k {
	case KindSale:
		return "sale"
	case KindStockUpdate:
		return "stock_update"
	case KindTransfer:
		return "transfer"
	case KindDistributorSale:
		return "distributor_sale"
	}
	return "unknown"
}

// VariantRef variante afectada junto a su producto.
type VariantRef struct {
	VariantID string
	ProductID string
}

// Mutation describe una operación ya confirmada en el almacén.
type Mutation struct {
	Kind          Kind
	Variants      []VariantRef
	DistributorID string
}

// Cache lo que el router necesita del Cache Store.
type Cache interface {
	Invalidate(key string)
	InvalidatePattern(prefix string) int
}

// Broadcaster reenvía las claves invalidadas a otras instancias. Opcional.
type Broadcaster interface {
	Publish(ctx context.Context, keys, prefixes []string) error
}

// Router mapeo estático mutación -> claves.
type Router struct {
	cache       Cache
	broadcaster Broadcaster
	log         *logger.Logger
}

// NewRouter construye el router. broadcaster puede ser nil.
func NewRouter(cache Cache, broadcaster Broadcaster, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{cache: cache, broadcaster: broadcaster, log: log.Component("invalidation")}
}

// Keys resuelve claves exactas y prefijos a expulsar para la mutación.
func Keys(m Mutation) (keys, prefixes []string) {
	seen := make(map[string]struct{})
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	centralTouched := m.Kind == KindSale || m.Kind == KindStockUpdate || m.Kind == KindTransfer
	for _, v := range m.Variants {
		add(cachekey.Variant(v.VariantID))
		if centralTouched && v.ProductID != "" {
			add(cachekey.Product(v.ProductID))
		}
		if m.Kind == KindTransfer || m.Kind == KindDistributorSale {
			add(cachekey.Distribution(v.VariantID))
		}
	}
	if m.DistributorID != "" && (m.Kind == KindTransfer || m.Kind == KindDistributorSale) {
		add(cachekey.DistributorInventory(m.DistributorID))
	}
	if centralTouched {
		add(cachekey.Featured)
		add(cachekey.StockTotals)
		prefixes = append(prefixes, cachekey.ListPrefix)
	}
	if m.Kind == KindSale {
		add(cachekey.BestSelling)
	}
	return keys, prefixes
}

// Apply expulsa las claves de la mutación. Debe llamarse solo después del commit.
func (r *Router) Apply(ctx context.Context, m Mutation) {
	keys, prefixes := Keys(m)
	for _, k := range keys {
		r.cache.Invalidate(k)
	}
	evicted := 0
	for _, p := range prefixes {
		evicted += r.cache.InvalidatePattern(p)
	}
	r.log.Debug().
		Str("kind", m.Kind.String()).
		Strs("keys", keys).
		Int("pattern_evicted", evicted).
		Msg("caché invalidada")

	if r.broadcaster == nil {
		return
	}
	if err := r.broadcaster.Publish(ctx, keys, prefixes); err != nil {
		r.log.Warn().Err(err).Str("kind", m.Kind.String()).Msg("no se pudo difundir la invalidación")
	}
}
