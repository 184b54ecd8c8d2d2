package dto

// DefaultPageLimit tamaño de página cuando la query no trae limit.
const DefaultPageLimit = 50

// PageRequest paginación por query (?limit=&offset=).
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Resolve devuelve la página efectiva: limit 0 pasa a DefaultPageLimit y un
// limit mayor que max se recorta a max. Los negativos se conservan para que
// la capa de aplicación los rechace.
func (p PageRequest) Resolve(max int) PageRequest {
	switch {
	case p.Limit == 0:
		p.Limit = DefaultPageLimit
	case max > 0 && p.Limit > max:
		p.Limit = max
	}
	return p
}

// PageResponse página efectiva devuelta junto a los items.
type PageResponse struct {
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Returned int `json:"returned"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
