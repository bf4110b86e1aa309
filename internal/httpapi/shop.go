package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pagination"
	"github.com/vladislavdragonenkov/storefront/internal/store/filters"
)

const (
	pageParam = "page"

	productsUnavailable = "Failed to load products. Please try again later."
)

type shopResponse struct {
	Filters    domain.Filters   `json:"filters"`
	Query      string           `json:"query"`
	Categories []string         `json:"categories"`
	Products   []domain.Product `json:"products"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	Total      int              `json:"total"`
	Error      string           `json:"error,omitempty"`
}

// queryRouter — Router координатора фильтров в рамках одного HTTP-запроса:
// Replace запоминает канонический query, который клиент подставит в адресную строку.
type queryRouter struct {
	query url.Values
}

func (q *queryRouter) Query() url.Values { return q.query }

func (q *queryRouter) Replace(query url.Values) { q.query = query }

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	router := &queryRouter{query: r.URL.Query()}
	current := domain.DefaultFilters()
	coordinator := s.newCoordinator(r, &current, router)

	err := coordinator.Init(r.Context())
	s.renderShop(w, r, coordinator, filters.EncodeQuery(coordinator.Filters()), err)
}

// handleUpdateFilters применяет новые фильтры из тела запроса поверх фильтров из query.
func (s *Server) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	next := domain.DefaultFilters()
	if err := decodeJSON(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filters payload")
		return
	}
	if !next.SortBy.Valid() {
		next.SortBy = domain.SortNone
	}

	router := &queryRouter{query: r.URL.Query()}
	current := filters.ParseQuery(router.Query())
	coordinator := s.newCoordinator(r, &current, router)

	err := coordinator.Update(r.Context(), func(f *domain.Filters) { *f = next })
	s.renderShop(w, r, coordinator, router.Query(), err)
}

func (s *Server) newCoordinator(r *http.Request, f *domain.Filters, router filters.Router) *filters.Coordinator {
	return filters.NewCoordinator(f, router, sessionFrom(r.Context()).Catalog,
		filters.WithCategories(s.categories),
		filters.WithLogger(s.logger.WithField("component", "shop-filters")),
	)
}

func (s *Server) renderShop(w http.ResponseWriter, r *http.Request, coordinator *filters.Coordinator, query url.Values, fetchErr error) {
	products := coordinator.FilteredProducts()
	if fetchErr != nil && len(sessionFrom(r.Context()).Catalog.Products()) == 0 {
		writeError(w, http.StatusBadGateway, productsUnavailable)
		return
	}

	pages := pagination.New(products, s.pageSize)
	if raw := r.URL.Query().Get(pageParam); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			pages.GoTo(page)
		}
	}

	resp := shopResponse{
		Filters:    coordinator.Filters(),
		Query:      query.Encode(),
		Categories: coordinator.Categories(),
		Products:   pages.Items(),
		Page:       pages.Page(),
		PageSize:   pages.PageSize(),
		TotalPages: pages.TotalPages(),
		Total:      pages.Total(),
	}
	if fetchErr != nil {
		resp.Error = productsUnavailable
	}
	writeJSON(w, http.StatusOK, resp)
}
