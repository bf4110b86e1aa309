// Package filters связывает фильтры витрины с query string и каталогом
// и вычисляет отфильтрованный и отсортированный список товаров.
package filters

import (
	"cmp"
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultCategories — категории витрины по умолчанию.
var DefaultCategories = []string{"jewelery", "electronics", "clothing"}

// Router — источник и приёмник query string текущей страницы.
type Router interface {
	Query() url.Values
	Replace(query url.Values)
}

// Catalog — часть стора каталога, нужная координатору.
type Catalog interface {
	FetchAllProducts(ctx context.Context) error
	FetchProductsByCategory(ctx context.Context, category string) error
	Products() []domain.Product
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

// WithCategories задает список категорий.
func WithCategories(categories []string) Option {
	return func(c *Coordinator) {
		if len(categories) > 0 {
			c.categories = slices.Clone(categories)
		}
	}
}

// WithLogger задает logger координатора.
func WithLogger(logger *log.Entry) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLanguage задает язык сравнения названий для name-asc.
func WithLanguage(tag language.Tag) Option {
	return func(c *Coordinator) {
		c.lang = tag
	}
}

// Coordinator владеет изменяемыми фильтрами страницы и синхронизирует их с URL.
type Coordinator struct {
	router     Router
	catalog    Catalog
	logger     *log.Entry
	categories []string
	lang       language.Tag

	mu      sync.Mutex
	filters *domain.Filters
}

// NewCoordinator связывает f с router и catalog. nil f заменяется дефолтными фильтрами.
func NewCoordinator(f *domain.Filters, router Router, catalog Catalog, opts ...Option) *Coordinator {
	if f == nil {
		defaults := domain.DefaultFilters()
		f = &defaults
	}
	c := &Coordinator{
		router:     router,
		catalog:    catalog,
		logger:     log.WithField("component", "shop-filters"),
		categories: slices.Clone(DefaultCategories),
		lang:       language.English,
		filters:    f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init заполняет фильтры из текущего URL и загружает товары их категории.
func (c *Coordinator) Init(ctx context.Context) error {
	parsed := ParseQuery(c.router.Query())

	c.mu.Lock()
	*c.filters = parsed
	c.mu.Unlock()

	return c.fetch(ctx, parsed.Category)
}

// Update применяет mutate к фильтрам, записывает их в URL и загружает товары.
func (c *Coordinator) Update(ctx context.Context, mutate func(*domain.Filters)) error {
	c.mu.Lock()
	mutate(c.filters)
	current := *c.filters
	c.mu.Unlock()

	c.router.Replace(EncodeQuery(current))
	return c.fetch(ctx, current.Category)
}

// Filters возвращает копию текущих фильтров.
func (c *Coordinator) Filters() domain.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.filters
}

// Categories возвращает список категорий витрины.
func (c *Coordinator) Categories() []string {
	return slices.Clone(c.categories)
}

// FilteredProducts применяет поиск, диапазон цен и сортировку к товарам каталога.
// Возвращается новый срез, данные каталога не меняются.
func (c *Coordinator) FilteredProducts() []domain.Product {
	return Apply(c.catalog.Products(), c.Filters(), c.lang)
}

func (c *Coordinator) fetch(ctx context.Context, category string) error {
	var err error
	if category == "" {
		err = c.catalog.FetchAllProducts(ctx)
	} else {
		err = c.catalog.FetchProductsByCategory(ctx, category)
	}
	if err != nil {
		c.logger.WithError(err).WithField("category", category).Warn("failed to load products for filters")
	}
	return err
}

// Apply фильтрует и стабильно сортирует products по f:
// подстрока названия без учёта регистра, включительный диапазон цен, sortBy.
func Apply(products []domain.Product, f domain.Filters, lang language.Tag) []domain.Product {
	search := strings.ToLower(f.Search)

	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if !f.PriceRange.Contains(p.Price) {
			continue
		}
		result = append(result, p)
	}

	switch f.SortBy {
	case domain.SortPriceAsc:
		slices.SortStableFunc(result, func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) })
	case domain.SortPriceDesc:
		slices.SortStableFunc(result, func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) })
	case domain.SortNameAsc:
		collator := collate.New(lang, collate.Loose)
		slices.SortStableFunc(result, func(a, b domain.Product) int { return collator.CompareString(a.Title, b.Title) })
	}
	return result
}
