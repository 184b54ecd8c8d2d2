package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// DistributorHandler transferencias, devoluciones y ventas de distribuidores (protegido).
type DistributorHandler struct {
	transfers *inventory.TransferUseCase
	catalog   *catalog.UseCase
}

// NewDistributorHandler construye el handler.
func NewDistributorHandler(transfers *inventory.TransferUseCase, cat *catalog.UseCase) *DistributorHandler {
	return &DistributorHandler{transfers: transfers, catalog: cat}
}

func toReceipt(r *inventory.TransferReceipt) dto.TransferReceiptResponse {
	return dto.TransferReceiptResponse{
		TransferID:       r.TransferID,
		State:            string(r.State),
		CentralStock:     r.CentralStock,
		DistributorStock: r.DistributorStock,
		Movements:        toMovementDTOs(r.Movements),
	}
}

// Transfer POST /api/distributors/transfers
func (h *DistributorHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.transfers.TransferToDistributor(c.UserContext(), inventory.TransferInput{
		DistributorID: in.DistributorID,
		VariantID:     in.VariantID,
		Quantity:      in.Quantity,
		PerformedBy:   GetUserID(c),
		Notes:         in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceipt(r))
}

// Return POST /api/distributors/returns
func (h *DistributorHandler) Return(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.transfers.ReceiveFromDistributor(c.UserContext(), inventory.TransferInput{
		DistributorID: in.DistributorID,
		VariantID:     in.VariantID,
		Quantity:      in.Quantity,
		PerformedBy:   GetUserID(c),
		Notes:         in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceipt(r))
}

// RecordSale POST /api/distributors/:id/sales
func (h *DistributorHandler) RecordSale(c *fiber.Ctx) error {
	var in dto.DistributorSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.transfers.RecordDistributorSale(c.UserContext(), inventory.DistributorSaleInput{
		DistributorID: c.Params("id"),
		VariantID:     in.VariantID,
		Quantity:      in.Quantity,
		PerformedBy:   GetUserID(c),
		Notes:         in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceipt(r))
}

// Inventory GET /api/distributors/:id/inventory
func (h *DistributorHandler) Inventory(c *fiber.Ctx) error {
	out, err := h.catalog.DistributorInventory(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
