package main

import (
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memstore"
)

// seedDemo catálogo mínimo para levantar el servicio con STORE_DRIVER=memory.
func seedDemo(s *memstore.Store) error {
	return s.Seed(
		[]entity.Product{
			{ID: "camiseta-basica", Name: "Camiseta básica", Featured: true},
			{ID: "gorra-logo", Name: "Gorra con logo"},
		},
		[]entity.Variant{
			{ID: "camiseta-basica-s", ProductID: "camiseta-basica", SKU: "CAM-BAS-S", Stock: 40},
			{ID: "camiseta-basica-m", ProductID: "camiseta-basica", SKU: "CAM-BAS-M", Stock: 60},
			{ID: "gorra-logo-u", ProductID: "gorra-logo", SKU: "GOR-LOG-U", Stock: 25},
		},
	)
}
