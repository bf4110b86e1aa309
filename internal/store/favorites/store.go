// Package favorites — избранные товары сессии.
package favorites

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/store/observer"
)

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

// Store хранит избранное в порядке добавления и сразу сохраняет каждое изменение.
type Store struct {
	kv     domain.KeyValueStore
	logger *log.Entry

	mu    sync.Mutex
	items []domain.Product

	observers observer.List[[]domain.Product]
}

// NewStore создает пустое избранное.
func NewStore(kv domain.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: log.WithField("component", "favorites-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load восстанавливает избранное из хранилища; повреждённые данные игнорируются.
func (s *Store) Load(ctx context.Context) {
	raw, ok := s.kv.Get(ctx, domain.StorageKeyFavorites)
	if !ok || raw == "" {
		return
	}

	var items []domain.Product
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.WithError(err).Warn("stored favorites are unreadable, starting empty")
		return
	}

	s.mu.Lock()
	s.items = items
	snapshot := domain.CloneProducts(s.items)
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Toggle добавляет товар или убирает его, если он уже в избранном.
// Возвращает true, если товар теперь в избранном.
func (s *Store) Toggle(ctx context.Context, product domain.Product) bool {
	s.mu.Lock()
	idx := s.indexLocked(product.ID)
	added := idx < 0
	if added {
		s.items = append(s.items, product)
	} else {
		s.items = slices.Delete(s.items, idx, idx+1)
	}
	snapshot := domain.CloneProducts(s.items)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.observers.Notify(snapshot)
	return added
}

// IsFavorite сообщает, есть ли товар в избранном.
func (s *Store) IsFavorite(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(productID) >= 0
}

// Items возвращает копию избранного.
func (s *Store) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneProducts(s.items)
}

// Subscribe подписывает fn на изменения избранного.
func (s *Store) Subscribe(fn func([]domain.Product)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) indexLocked(productID int) int {
	return slices.IndexFunc(s.items, func(p domain.Product) bool { return p.ID == productID })
}

func (s *Store) persistLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []domain.Product{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode favorites")
		return
	}
	s.kv.Set(ctx, domain.StorageKeyFavorites, string(payload))
}
