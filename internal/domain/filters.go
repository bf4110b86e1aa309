package domain

// SortBy задаёт порядок сортировки витрины.
type SortBy string

const (
	// SortNone — исходный порядок каталога.
	SortNone      SortBy = ""
	SortPriceAsc  SortBy = "price-asc"
	SortPriceDesc SortBy = "price-desc"
	SortNameAsc   SortBy = "name-asc"
)

// Valid сообщает, известен ли порядок сортировки.
func (s SortBy) Valid() bool {
	switch s {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNameAsc:
		return true
	default:
		return false
	}
}

const (
	DefaultPriceMin = 0
	DefaultPriceMax = 200
)

// PriceRange — включительные границы цены [Min, Max].
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultPriceRange возвращает диапазон по умолчанию [0, 200].
func DefaultPriceRange() PriceRange {
	return PriceRange{Min: DefaultPriceMin, Max: DefaultPriceMax}
}

// IsDefault сообщает, совпадает ли диапазон с дефолтным.
func (r PriceRange) IsDefault() bool {
	return r == DefaultPriceRange()
}

// Contains проверяет цену с учётом обеих границ.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Filters — состояние фильтров витрины, зеркалируется в query string.
type Filters struct {
	Search     string     `json:"search"`
	Category   string     `json:"category"`
	SortBy     SortBy     `json:"sortBy"`
	PriceRange PriceRange `json:"priceRange"`
	OnSale     bool       `json:"onSale"`
	InStock    bool       `json:"inStock"`
}

// DefaultFilters возвращает пустые фильтры с дефолтным диапазоном цен.
func DefaultFilters() Filters {
	return Filters{PriceRange: DefaultPriceRange()}
}
