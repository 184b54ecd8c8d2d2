package entity

// Product producto de catálogo. Lo provisiona un sistema externo; aquí solo se lee.
type Product struct {
	ID       string
	Name     string
	Featured bool
}
