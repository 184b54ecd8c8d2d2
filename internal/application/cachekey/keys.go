// Package cachekey centraliza la convención de nombres de las claves de caché,
// para que las vistas y el router de invalidación hablen el mismo idioma.
package cachekey

import (
	"strconv"
	"strings"
)

// Claves agregadas del catálogo.
const (
	Featured    = "catalog:featured"
	BestSelling = "catalog:bestselling"
	StockTotals = "catalog:stock"
	// ListPrefix prefijo de listados paginados del catálogo (catalog:list:<page>).
	ListPrefix = "catalog:list:"
)

// List clave de una página del listado del catálogo.
func List(page int) string { return ListPrefix + strconv.Itoa(page) }

func Variant(id string) string              { return "variant:" + id }
func Product(id string) string              { return "product:" + id }
func DistributorInventory(id string) string { return "distributor_inventory:" + id }
func Distribution(variantID string) string  { return "distribution:" + variantID }

// Dependents vistas que embeben a key y quedan obsoletas con ella. Un resumen de
// producto aparece dentro de los listados y de destacados.
func Dependents(key string) (keys, prefixes []string) {
	if strings.HasPrefix(key, "product:") {
		return []string{Featured}, []string{ListPrefix}
	}
	return nil, nil
}
