package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	dominv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// InventoryHandler disponibilidad, ventas, ajustes y log de movimientos (protegido).
type InventoryHandler struct {
	ledger    *inventory.LedgerUseCase
	movements *inventory.MovementLogUseCase
	catalog   *catalog.UseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, movements *inventory.MovementLogUseCase, cat *catalog.UseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, movements: movements, catalog: cat}
}

func toLines(items []dto.LineRequest) []dominv.Line {
	out := make([]dominv.Line, len(items))
	for i, it := range items {
		out[i] = dominv.Line{VariantID: it.VariantID, Quantity: it.Quantity}
	}
	return out
}

func toMovementDTO(m *entity.Movement) dto.MovementDTO {
	return dto.MovementDTO{
		ID:            m.ID,
		TransferID:    m.TransferID,
		Type:          m.Type,
		Scope:         m.Scope,
		VariantID:     m.VariantID,
		ProductID:     m.ProductID,
		DistributorID: m.DistributorID,
		Quantity:      m.Quantity,
		PerformedBy:   m.PerformedBy,
		Notes:         m.Notes,
		Timestamp:     m.Timestamp,
	}
}

func toMovementDTOs(movs []*entity.Movement) []dto.MovementDTO {
	out := make([]dto.MovementDTO, 0, len(movs))
	for _, m := range movs {
		out = append(out, toMovementDTO(m))
	}
	return out
}

// CheckAvailability POST /api/inventory/availability
func (h *InventoryHandler) CheckAvailability(c *fiber.Ctx) error {
	var in dto.AvailabilityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.ledger.CheckAvailability(c.UserContext(), toLines(in.Items))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.AvailabilityResponse{Available: res.Available, Shortfalls: make([]dto.ShortfallDTO, 0, len(res.Shortfalls))}
	for _, s := range res.Shortfalls {
		out.Shortfalls = append(out.Shortfalls, dto.ShortfallDTO{VariantID: s.VariantID, Requested: s.Requested, Available: s.Available})
	}
	return c.JSON(out)
}

// RegisterSale POST /api/inventory/sales
func (h *InventoryHandler) RegisterSale(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	err := h.ledger.RegisterSale(c.UserContext(), inventory.SaleInput{
		Items:       toLines(in.Items),
		PerformedBy: GetUserID(c),
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "venta registrada"})
}

// UpdateStock PATCH /api/inventory/variants/:id/stock
// La vista de la variante refleja el valor tentativo mientras el ledger confirma.
func (h *InventoryHandler) UpdateStock(c *fiber.Ctx) error {
	var in dto.StockUpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	v, err := h.catalog.AdjustStock(c.UserContext(), inventory.StockUpdateInput{
		VariantID:   c.Params("id"),
		Delta:       in.Delta,
		PerformedBy: GetUserID(c),
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(v)
}

// ListMovements GET /api/inventory/movements
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var q dto.MovementFilterRequest
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	page := q.PageRequest.Resolve(inventory.MaxMovementPage)
	f := repository.MovementFilter{
		DistributorID: q.DistributorID,
		ProductID:     q.ProductID,
		VariantID:     q.VariantID,
		Descending:    q.Order == "desc",
		Limit:         page.Limit,
		Offset:        page.Offset,
	}
	var err error
	if f.From, err = parseTime(q.From); err != nil {
		return writeError(c, err)
	}
	if f.To, err = parseTime(q.To); err != nil {
		return writeError(c, err)
	}

	movs, err := h.movements.ListMovements(c.UserContext(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: toMovementDTOs(movs),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Returned: len(movs)},
	})
}

// parseTime acepta RFC 3339; vacío significa sin cota.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, domain.Invalid("fecha inválida %q", s)
	}
	return &t, nil
}
