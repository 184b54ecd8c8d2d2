package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// Roles reconocidos en el claim "role".
const (
	RoleAdmin       = "admin"
	RoleCheckout    = "checkout"
	RoleDistributor = "distributor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.LedgerUseCase
	Transfers *inventory.TransferUseCase
	Movements *inventory.MovementLogUseCase
	Reconcile *inventory.ReconcileUseCase
	Catalog   *catalog.UseCase
	Cache     statsSource
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Catálogo (público, servido desde caché)
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Reconcile, deps.Cache)
	cat := api.Group("/catalog")
	cat.Get("/products", catalogHandler.List)
	cat.Get("/products/:id", catalogHandler.Product)
	cat.Get("/variants/:id", catalogHandler.Variant)
	cat.Get("/featured", catalogHandler.Featured)
	cat.Get("/bestselling", catalogHandler.BestSelling)
	cat.Get("/stock", catalogHandler.StockTotals)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Movements, deps.Catalog)
	inv := protected.Group("/inventory")
	inv.Post("/availability", RequireRole(RoleAdmin, RoleCheckout), inventoryHandler.CheckAvailability)
	inv.Post("/sales", RequireRole(RoleAdmin, RoleCheckout), inventoryHandler.RegisterSale)
	inv.Patch("/variants/:id/stock", RequireRole(RoleAdmin), inventoryHandler.UpdateStock)
	inv.Get("/movements", RequireRole(RoleAdmin), inventoryHandler.ListMovements)

	distributorHandler := NewDistributorHandler(deps.Transfers, deps.Catalog)
	dist := protected.Group("/distributors")
	dist.Post("/transfers", RequireRole(RoleAdmin), distributorHandler.Transfer)
	dist.Post("/returns", RequireRole(RoleAdmin), distributorHandler.Return)
	dist.Post("/:id/sales", RequireRole(RoleAdmin, RoleDistributor), distributorHandler.RecordSale)
	dist.Get("/:id/inventory", RequireRole(RoleAdmin, RoleDistributor), distributorHandler.Inventory)
	protected.Get("/catalog/variants/:id/distribution", RequireRole(RoleAdmin), catalogHandler.Distribution)

	admin := protected.Group("/admin", RequireRole(RoleAdmin))
	admin.Get("/cache/stats", catalogHandler.CacheStats)
	admin.Post("/reconcile", catalogHandler.Reconcile)
}
