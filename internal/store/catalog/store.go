// Package catalog хранит текущий список товаров витрины, статус загрузки
// и активную категорию. Одинаковые одновременные запросы схлопываются
// в один сетевой вызов.
package catalog

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store/observer"
)

const (
	keyAllProducts    = "all-products"
	keyCategoryPrefix = "category-"
)

// ProductsAPI — источник товаров (обычно *apiclient.Client).
type ProductsAPI interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
}

// State — снимок состояния каталога. CurrentCategory == "" означает «все товары».
type State struct {
	Products        []domain.Product
	IsLoading       bool
	Error           string
	CurrentCategory string
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задает logger стора.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics подключает метрики дедупликации и пропусков.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store — стор каталога, общий для всех сессий витрины.
type Store struct {
	api     ProductsAPI
	logger  *log.Entry
	metrics *metrics.Metrics
	group   singleflight.Group

	mu    sync.Mutex
	state State
	// seq — номер последнего выпущенного сетевого запроса.
	seq uint64

	observers observer.List[State]
}

// NewStore создает стор каталога поверх api.
func NewStore(api ProductsAPI, opts ...Option) *Store {
	s := &Store{
		api:    api,
		logger: log.WithField("component", "catalog-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAllProducts загружает все товары. Ничего не делает, если товары уже есть
// и активная категория пуста.
func (s *Store) FetchAllProducts(ctx context.Context) error {
	if !s.advanceCategory("") {
		return nil
	}
	return s.fetch(ctx, keyAllProducts, func(ctx context.Context) ([]domain.Product, error) {
		return s.api.Products(ctx)
	})
}

// FetchProductsByCategory загружает товары категории. Ничего не делает, если товары
// уже есть и активная категория совпадает с запрошенной.
func (s *Store) FetchProductsByCategory(ctx context.Context, category string) error {
	if !s.advanceCategory(category) {
		return nil
	}
	return s.fetch(ctx, keyCategoryPrefix+category, func(ctx context.Context) ([]domain.Product, error) {
		return s.api.ProductsByCategory(ctx, category)
	})
}

// advanceCategory применяет политику «пропустить, если уже загружено».
// Категория переключается до запроса и не откатывается при ошибке.
func (s *Store) advanceCategory(category string) bool {
	s.mu.Lock()
	if len(s.state.Products) > 0 && s.state.CurrentCategory == category {
		s.mu.Unlock()
		s.metrics.RecordCatalogFetch(metrics.CatalogSkipped)
		return false
	}
	changed := s.state.CurrentCategory != category
	s.state.CurrentCategory = category
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.observers.Notify(snapshot)
	}
	return true
}

func (s *Store) fetch(ctx context.Context, key string, call func(context.Context) ([]domain.Product, error)) error {
	// Общий вызов не должен отменяться, когда первый из ожидающих уходит.
	detached := context.WithoutCancel(ctx)

	leader := false
	ch := s.group.DoChan(key, func() (any, error) {
		leader = true
		seq := s.begin()
		products, err := call(detached)
		s.settle(key, seq, products, err)
		return nil, err
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if !leader {
			s.metrics.RecordCatalogFetch(metrics.CatalogDeduplicated)
		}
		return res.Err
	}
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.IsLoading = true
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
	return seq
}

func (s *Store) settle(key string, seq uint64, products []domain.Product, err error) {
	s.mu.Lock()
	if err != nil {
		s.state.Error = err.Error()
	} else {
		s.state.Products = domain.CloneProducts(products)
		s.state.Error = ""
	}
	if seq == s.seq {
		s.state.IsLoading = false
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	entry := s.logger.WithField("key", key)
	if err != nil {
		s.metrics.RecordCatalogFetch(metrics.CatalogFailed)
		entry.WithError(err).Warn("catalog fetch failed")
	} else {
		s.metrics.RecordCatalogFetch(metrics.CatalogFetched)
		entry.WithField("products", len(products)).Debug("catalog fetched")
	}
	s.observers.Notify(snapshot)
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Products возвращает копию текущего списка товаров.
func (s *Store) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneProducts(s.state.Products)
}

// ProductByID ищет товар в текущем списке.
func (s *Store) ProductByID(id int) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// Subscribe подписывает fn на изменения состояния.
func (s *Store) Subscribe(fn func(State)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) snapshotLocked() State {
	state := s.state
	state.Products = domain.CloneProducts(s.state.Products)
	return state
}
