package domain

// Rating — агрегированная оценка товара из каталога.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product описывает товар каталога. После загрузки не изменяется, идентичность — ID.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// CloneProducts возвращает копию среза, чтобы снапшоты не делили backing array со стором.
func CloneProducts(src []Product) []Product {
	if src == nil {
		return nil
	}
	dst := make([]Product, len(src))
	copy(dst, src)
	return dst
}
