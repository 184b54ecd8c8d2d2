package dto

import "time"

// VariantResponse vista cacheada de una variante.
type VariantResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Stock     int64  `json:"stock"`
}

// ProductSummaryResponse producto con sus variantes y stock central total.
type ProductSummaryResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Featured   bool              `json:"featured"`
	Variants   []VariantResponse `json:"variants"`
	TotalStock int64             `json:"total_stock"`
	InStock    bool              `json:"in_stock"`
}

// BestSellerResponse producto y unidades vendidas por el canal central.
type BestSellerResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Units     int64  `json:"units"`
}

// DistributorStockResponse línea de un sub-ledger.
type DistributorStockResponse struct {
	DistributorID  string     `json:"distributor_id"`
	VariantID      string     `json:"variant_id"`
	Stock          int64      `json:"stock"`
	LastTransferAt *time.Time `json:"last_transfer_at,omitempty"`
	LastSaleAt     *time.Time `json:"last_sale_at,omitempty"`
}

// CatalogPageResponse página del listado del catálogo.
type CatalogPageResponse struct {
	Items []ProductSummaryResponse `json:"items"`
	Page  int                      `json:"page"`
}
