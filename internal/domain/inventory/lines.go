package inventory

// Line una línea de pedido o de consulta de disponibilidad.
type Line struct {
	VariantID string
	Quantity  int64
}

// Shortfall describe una línea que no puede cubrirse.
type Shortfall struct {
	VariantID string
	Requested int64
	Available int64
}

// AddQuantity suma dos cantidades; ok es false si el resultado desborda int64.
func AddQuantity(a, b int64) (sum int64, ok bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// MergedOverflow devuelve la primera variante cuya suma de líneas repetidas
// desborda int64, o "" si ninguna lo hace.
func MergedOverflow(lines []Line) string {
	sums := make(map[string]int64, len(lines))
	for _, l := range lines {
		sum, ok := AddQuantity(sums[l.VariantID], l.Quantity)
		if !ok {
			return l.VariantID
		}
		sums[l.VariantID] = sum
	}
	return ""
}

// MergeLines suma las cantidades de líneas repetidas para la misma variante
// y conserva el orden de primera aparición.
func MergeLines(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.VariantID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.VariantID] = len(out)
		out = append(out, l)
	}
	return out
}

// Shortfalls compara cada línea con el stock disponible. Las variantes ausentes
// de available cuentan como disponible 0.
func Shortfalls(lines []Line, available map[string]int64) []Shortfall {
	var out []Shortfall
	for _, l := range MergeLines(lines) {
		have := available[l.VariantID]
		if have < l.Quantity {
			out = append(out, Shortfall{VariantID: l.VariantID, Requested: l.Quantity, Available: have})
		}
	}
	return out
}

// Totals suma stock central y de distribuidores por variante.
// Con transferencias puras este total no cambia.
func Totals(central map[string]int64, distributors map[string]map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(central))
	for v, s := range central {
		out[v] += s
	}
	for _, byVariant := range distributors {
		for v, s := range byVariant {
			out[v] += s
		}
	}
	return out
}
