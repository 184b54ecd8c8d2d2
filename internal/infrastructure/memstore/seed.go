package memstore

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Seed carga productos y variantes en un solo commit. Lo usan los tests y el
// arranque con STORE_DRIVER=memory. El stock central inicial no genera
// movimientos; los sub-ledgers solo se crean por transferencias, así la
// conciliación siempre parte de cero.
func (s *Store) Seed(products []entity.Product, variants []entity.Variant) error {
	txn := s.Begin()
	for _, p := range products {
		txn.Write(productKey(p.ID), p)
	}
	for _, v := range variants {
		if v.Stock < 0 {
			txn.Rollback()
			return fmt.Errorf("seed: variante %s con stock negativo", v.ID)
		}
		txn.Write(variantKey(v.ID), v)
	}
	return txn.Commit()
}

// Snapshot copia de todos los datos confirmados, para comparar estados en tests.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v.value
	}
	return out
}
