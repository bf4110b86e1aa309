package filters

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Параметры query string витрины.
const (
	ParamSearch     = "search"
	ParamCategory   = "category"
	ParamSortBy     = "sortBy"
	ParamPriceRange = "priceRange"
	ParamOnSale     = "onSale"
	ParamInStock    = "inStock"
)

// ParseQuery строит фильтры из query string. Неполный или нечисловой priceRange
// заменяется дефолтным, булевы флаги включаются только строкой "true",
// неизвестный sortBy сбрасывается.
func ParseQuery(query url.Values) domain.Filters {
	f := domain.DefaultFilters()
	f.Search = query.Get(ParamSearch)
	f.Category = query.Get(ParamCategory)

	if sortBy := domain.SortBy(query.Get(ParamSortBy)); sortBy.Valid() {
		f.SortBy = sortBy
	}
	if raw := query.Get(ParamPriceRange); raw != "" {
		if r, ok := parsePriceRange(raw); ok {
			f.PriceRange = r
		}
	}
	f.OnSale = query.Get(ParamOnSale) == "true"
	f.InStock = query.Get(ParamInStock) == "true"
	return f
}

// EncodeQuery сериализует только непустые и недефолтные поля.
func EncodeQuery(f domain.Filters) url.Values {
	query := url.Values{}
	if f.Search != "" {
		query.Set(ParamSearch, f.Search)
	}
	if f.Category != "" {
		query.Set(ParamCategory, f.Category)
	}
	if f.SortBy != domain.SortNone {
		query.Set(ParamSortBy, string(f.SortBy))
	}
	if !f.PriceRange.IsDefault() {
		query.Set(ParamPriceRange, formatPrice(f.PriceRange.Min)+","+formatPrice(f.PriceRange.Max))
	}
	if f.OnSale {
		query.Set(ParamOnSale, "true")
	}
	if f.InStock {
		query.Set(ParamInStock, "true")
	}
	return query
}

func parsePriceRange(raw string) (domain.PriceRange, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return domain.PriceRange{}, false
	}
	minPrice, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.PriceRange{}, false
	}
	maxPrice, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.PriceRange{}, false
	}
	return domain.PriceRange{Min: minPrice, Max: maxPrice}, true
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
