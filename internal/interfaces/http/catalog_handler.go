package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
)

type statsSource interface {
	Stats() cache.Stats
}

// CatalogHandler vistas cacheadas del catálogo y operaciones de mantenimiento.
type CatalogHandler struct {
	uc        *catalog.UseCase
	reconcile *inventory.ReconcileUseCase
	cache     statsSource
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *catalog.UseCase, reconcile *inventory.ReconcileUseCase, stats statsSource) *CatalogHandler {
	return &CatalogHandler{uc: uc, reconcile: reconcile, cache: stats}
}

// Variant GET /api/catalog/variants/:id
func (h *CatalogHandler) Variant(c *fiber.Ctx) error {
	v, err := h.uc.Variant(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(v)
}

// Distribution GET /api/catalog/variants/:id/distribution
func (h *CatalogHandler) Distribution(c *fiber.Ctx) error {
	out, err := h.uc.Distribution(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Product GET /api/catalog/products/:id
func (h *CatalogHandler) Product(c *fiber.Ctx) error {
	p, err := h.uc.ProductSummary(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

// List GET /api/catalog/products?page=N
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	page, err := h.uc.Page(c.UserContext(), c.QueryInt("page", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// Featured GET /api/catalog/featured
func (h *CatalogHandler) Featured(c *fiber.Ctx) error {
	out, err := h.uc.Featured(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// BestSelling GET /api/catalog/bestselling
func (h *CatalogHandler) BestSelling(c *fiber.Ctx) error {
	out, err := h.uc.BestSelling(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// StockTotals GET /api/catalog/stock
func (h *CatalogHandler) StockTotals(c *fiber.Ctx) error {
	out, err := h.uc.StockTotals(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CacheStats GET /api/admin/cache/stats
func (h *CatalogHandler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.cache.Stats())
}

// Reconcile POST /api/admin/reconcile
func (h *CatalogHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconcile.Reconcile(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
