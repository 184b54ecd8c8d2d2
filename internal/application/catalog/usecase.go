// Package catalog vistas de lectura frecuente servidas desde el Cache Store.
// Cada vista es una clave (ver cachekey) más una factory que la reconstruye
// desde el CatalogSource cuando la entrada falta o fue invalidada.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/application/cachekey"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	defaultPageSize    = 20
	defaultBestSelling = 10
)

// UseCase vistas cacheadas del catálogo.
type UseCase struct {
	cache    Cache
	src      CatalogSource
	ledger   StockUpdater
	log      *logger.Logger
	pageSize int
	topN     int
}

// NewUseCase construye las vistas. ledger solo se usa en AdjustStock y puede ser nil.
func NewUseCase(cache Cache, src CatalogSource, ledger StockUpdater, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		cache:    cache,
		src:      src,
		ledger:   ledger,
		log:      log.Component("catalog"),
		pageSize: defaultPageSize,
		topN:     defaultBestSelling,
	}
}

func fetch[T any](ctx context.Context, c Cache, key string, build func(context.Context) (T, error)) (T, error) {
	v, err := c.GetCached(ctx, key, func(ctx context.Context) (any, error) {
		return build(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func toVariant(v *entity.Variant) dto.VariantResponse {
	return dto.VariantResponse{ID: v.ID, ProductID: v.ProductID, SKU: v.SKU, Stock: v.Stock}
}

func toDistributorStock(s *entity.DistributorStock) dto.DistributorStockResponse {
	return dto.DistributorStockResponse{
		DistributorID:  s.DistributorID,
		VariantID:      s.VariantID,
		Stock:          s.Stock,
		LastTransferAt: s.LastTransferAt,
		LastSaleAt:     s.LastSaleAt,
	}
}

// Variant vista variant:<id>.
func (uc *UseCase) Variant(ctx context.Context, id string) (dto.VariantResponse, error) {
	return fetch(ctx, uc.cache, cachekey.Variant(id), func(ctx context.Context) (dto.VariantResponse, error) {
		v, err := uc.src.Variant(ctx, id)
		if err != nil {
			return dto.VariantResponse{}, err
		}
		if v == nil {
			return dto.VariantResponse{}, fmt.Errorf("%w: %s", domain.ErrUnknownVariant, id)
		}
		return toVariant(v), nil
	})
}

// ProductSummary vista product:<id>.
func (uc *UseCase) ProductSummary(ctx context.Context, id string) (dto.ProductSummaryResponse, error) {
	return fetch(ctx, uc.cache, cachekey.Product(id), func(ctx context.Context) (dto.ProductSummaryResponse, error) {
		p, err := uc.src.Product(ctx, id)
		if err != nil {
			return dto.ProductSummaryResponse{}, err
		}
		if p == nil {
			return dto.ProductSummaryResponse{}, fmt.Errorf("producto %s: %w", id, domain.ErrNotFound)
		}
		return uc.summarize(ctx, p)
	})
}

func (uc *UseCase) summarize(ctx context.Context, p *entity.Product) (dto.ProductSummaryResponse, error) {
	variants, err := uc.src.VariantsByProduct(ctx, p.ID)
	if err != nil {
		return dto.ProductSummaryResponse{}, err
	}
	out := dto.ProductSummaryResponse{ID: p.ID, Name: p.Name, Featured: p.Featured, Variants: make([]dto.VariantResponse, 0, len(variants))}
	for _, v := range variants {
		out.Variants = append(out.Variants, toVariant(v))
		out.TotalStock += v.Stock
	}
	out.InStock = out.TotalStock > 0
	return out, nil
}

func (uc *UseCase) summarizeAll(ctx context.Context, products []*entity.Product) ([]dto.ProductSummaryResponse, error) {
	out := make([]dto.ProductSummaryResponse, 0, len(products))
	for _, p := range products {
		s, err := uc.summarize(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Featured vista catalog:featured: productos destacados con stock.
func (uc *UseCase) Featured(ctx context.Context) ([]dto.ProductSummaryResponse, error) {
	return fetch(ctx, uc.cache, cachekey.Featured, func(ctx context.Context) ([]dto.ProductSummaryResponse, error) {
		products, err := uc.src.FeaturedProducts(ctx)
		if err != nil {
			return nil, err
		}
		all, err := uc.summarizeAll(ctx, products)
		if err != nil {
			return nil, err
		}
		out := all[:0]
		for _, s := range all {
			if s.InStock {
				out = append(out, s)
			}
		}
		return out, nil
	})
}

// BestSelling vista catalog:bestselling.
func (uc *UseCase) BestSelling(ctx context.Context) ([]dto.BestSellerResponse, error) {
	return fetch(ctx, uc.cache, cachekey.BestSelling, func(ctx context.Context) ([]dto.BestSellerResponse, error) {
		top, err := uc.src.TopSelling(ctx, uc.topN)
		if err != nil {
			return nil, err
		}
		out := make([]dto.BestSellerResponse, 0, len(top))
		for _, t := range top {
			name := ""
			p, err := uc.src.Product(ctx, t.ProductID)
			if err != nil {
				return nil, err
			}
			if p != nil {
				name = p.Name
			}
			out = append(out, dto.BestSellerResponse{ProductID: t.ProductID, Name: name, Units: t.Units})
		}
		return out, nil
	})
}

// Page vista catalog:list:<page>. page empieza en 0.
func (uc *UseCase) Page(ctx context.Context, page int) (dto.CatalogPageResponse, error) {
	if page < 0 {
		return dto.CatalogPageResponse{}, domain.Invalid("página negativa")
	}
	return fetch(ctx, uc.cache, cachekey.List(page), func(ctx context.Context) (dto.CatalogPageResponse, error) {
		products, err := uc.src.Products(ctx, page*uc.pageSize, uc.pageSize)
		if err != nil {
			return dto.CatalogPageResponse{}, err
		}
		items, err := uc.summarizeAll(ctx, products)
		if err != nil {
			return dto.CatalogPageResponse{}, err
		}
		return dto.CatalogPageResponse{Items: items, Page: page}, nil
	})
}

// StockTotals vista catalog:stock: central + distribuidores por variante.
func (uc *UseCase) StockTotals(ctx context.Context) (map[string]int64, error) {
	return fetch(ctx, uc.cache, cachekey.StockTotals, func(ctx context.Context) (map[string]int64, error) {
		central, err := uc.src.CentralStock(ctx)
		if err != nil {
			return nil, err
		}
		stocks, err := uc.src.DistributorStocks(ctx)
		if err != nil {
			return nil, err
		}
		dist := make(map[string]map[string]int64)
		for _, s := range stocks {
			if dist[s.DistributorID] == nil {
				dist[s.DistributorID] = make(map[string]int64)
			}
			dist[s.DistributorID][s.VariantID] = s.Stock
		}
		return dominv.Totals(central, dist), nil
	})
}

// DistributorInventory vista distributor_inventory:<id>.
func (uc *UseCase) DistributorInventory(ctx context.Context, distributorID string) ([]dto.DistributorStockResponse, error) {
	return fetch(ctx, uc.cache, cachekey.DistributorInventory(distributorID), func(ctx context.Context) ([]dto.DistributorStockResponse, error) {
		stocks, err := uc.src.DistributorInventory(ctx, distributorID)
		if err != nil {
			return nil, err
		}
		return toDistributorStocks(stocks), nil
	})
}

// Distribution vista distribution:<variant>: stock de la variante en cada distribuidor.
func (uc *UseCase) Distribution(ctx context.Context, variantID string) ([]dto.DistributorStockResponse, error) {
	return fetch(ctx, uc.cache, cachekey.Distribution(variantID), func(ctx context.Context) ([]dto.DistributorStockResponse, error) {
		stocks, err := uc.src.VariantDistribution(ctx, variantID)
		if err != nil {
			return nil, err
		}
		return toDistributorStocks(stocks), nil
	})
}

func toDistributorStocks(stocks []*entity.DistributorStock) []dto.DistributorStockResponse {
	out := make([]dto.DistributorStockResponse, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, toDistributorStock(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistributorID != out[j].DistributorID {
			return out[i].DistributorID < out[j].DistributorID
		}
		return out[i].VariantID < out[j].VariantID
	})
	return out
}

// AdjustStock aplica el ajuste al ledger mostrando de inmediato el stock
// tentativo en variant:<id>. Si el ledger rechaza el ajuste la vista vuelve al
// valor anterior y los suscriptores reciben la corrección.
func (uc *UseCase) AdjustStock(ctx context.Context, in inventory.StockUpdateInput) (dto.VariantResponse, error) {
	if uc.ledger == nil {
		return dto.VariantResponse{}, fmt.Errorf("catalog: ledger no configurado")
	}
	current, err := uc.Variant(ctx, in.VariantID)
	if err != nil {
		return dto.VariantResponse{}, err
	}

	// La vista cacheada puede estar atrasada: solo sirve para la entrada
	// tentativa. El ledger decide si el ajuste procede.
	tentative := current
	if next, ok := dominv.AddQuantity(current.Stock, in.Delta); ok && next >= 0 {
		tentative.Stock = next
	} else {
		tentative.Stock = 0
	}
	var updated *entity.Variant
	err = uc.cache.WriteThrough(ctx, cachekey.Variant(in.VariantID), tentative, func(ctx context.Context) error {
		var err error
		updated, err = uc.ledger.UpdateStock(ctx, in)
		return err
	})
	if err != nil {
		return dto.VariantResponse{}, err
	}
	uc.log.Debug().Str("variant_id", updated.ID).Int64("stock", updated.Stock).Msg("ajuste optimista confirmado")
	return toVariant(updated), nil
}
