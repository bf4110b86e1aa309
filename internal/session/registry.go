// Package session держит сторы каталога, корзины, авторизации, избранного и уведомлений
// для каждой сессии витрины. Сессия идентифицируется cookie sid, её данные лежат в
// пространстве имён хранилища с тем же id.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store/auth"
	"github.com/vladislavdragonenkov/storefront/internal/store/cart"
	"github.com/vladislavdragonenkov/storefront/internal/store/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/store/favorites"
	"github.com/vladislavdragonenkov/storefront/internal/store/notification"
)

// Storage выдаёт хранилище, ограниченное пространством имён сессии.
type Storage interface {
	Scope(namespace string) domain.KeyValueStore
}

// API — endpoints, которые нужны сторам сессии (обычно *apiclient.Client).
type API interface {
	catalog.ProductsAPI
	auth.LoginAPI
	cart.CartAPI
}

// Session — сторы одной сессии витрины. Каталог у каждой сессии свой:
// выбранная категория одного посетителя не влияет на список другого.
type Session struct {
	ID            string
	Catalog       *catalog.Store
	Cart          *cart.Store
	Auth          *auth.Store
	Favorites     *favorites.Store
	Notifications *notification.Store

	nav      *redirects
	lastSeen atomic.Int64
}

// TakeRedirect возвращает и сбрасывает последний переход, запрошенный сторами сессии.
func (s *Session) TakeRedirect() (string, bool) {
	return s.nav.take()
}

// LastSeen — момент последнего обращения к сессии.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// redirects запоминает навигацию auth-стора, чтобы HTTP-слой отдал её клиенту.
type redirects struct {
	mu   sync.Mutex
	path string
}

func (r *redirects) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *redirects) take() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := r.path
	r.path = ""
	return path, path != ""
}

// Option настраивает Registry.
type Option func(*Registry)

// WithLogger задает logger реестра и сторов сессий.
func WithLogger(logger *log.Entry) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics подключает метрики сессий и корзин.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithPublisher включает публикацию событий корзины в Kafka.
func WithPublisher(publisher kafka.Publisher, topic string) Option {
	return func(r *Registry) {
		r.publisher = publisher
		r.topic = topic
	}
}

// WithCartDebounce задает задержку записи корзины.
func WithCartDebounce(delay time.Duration) Option {
	return func(r *Registry) {
		if delay > 0 {
			r.cartDebounce = delay
		}
	}
}

// WithFallbackUserID задает userId для синхронизации корзины, если в токене его нет.
func WithFallbackUserID(id int) Option {
	return func(r *Registry) {
		if id > 0 {
			r.fallbackUserID = id
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry создаёт сессии по требованию и вытесняет неактивные.
type Registry struct {
	storage        Storage
	api            API
	logger         *log.Entry
	metrics        *metrics.Metrics
	publisher      kafka.Publisher
	topic          string
	cartDebounce   time.Duration
	fallbackUserID int
	now            func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry создает пустой реестр сессий.
func NewRegistry(storage Storage, api API, opts ...Option) *Registry {
	r := &Registry{
		storage:        storage,
		api:            api,
		logger:         log.WithField("component", "session-registry"),
		cartDebounce:   cart.DefaultDebounce,
		fallbackUserID: 1,
		now:            time.Now,
		sessions:       make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open возвращает сессию id, создавая и загружая её при первом обращении.
func (r *Registry) Open(ctx context.Context, id string) *Session {
	if sess, ok := r.Get(id); ok {
		return sess
	}

	created := r.build(ctx, id)

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		created.Cart.Close()
		created.Notifications.Close()
		existing.touch(r.now())
		return existing
	}
	r.sessions[id] = created
	r.mu.Unlock()

	r.metrics.SessionOpened()
	r.logger.WithField("session_id", id).Debug("storefront session opened")
	return created
}

// Get возвращает уже открытую сессию и отмечает обращение к ней.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		sess.touch(r.now())
	}
	return sess, ok
}

// Len — число открытых сессий.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) build(ctx context.Context, id string) *Session {
	kv := r.storage.Scope(id)
	logger := r.logger.WithField("session_id", id)
	sess := &Session{ID: id, Notifications: notification.NewStore(), nav: &redirects{}}

	sess.Catalog = catalog.NewStore(r.api,
		catalog.WithLogger(logger.WithField("component", "catalog-store")),
		catalog.WithMetrics(r.metrics),
	)

	sess.Auth = auth.NewStore(kv, r.api, sess.nav, auth.WithLogger(logger.WithField("component", "auth-store")))
	sess.Auth.Initialize(ctx)

	userID := sess.Auth.UserIDOr(r.fallbackUserID)
	syncers := cart.MultiSyncer{cart.NewHTTPSyncer(r.api, userID)}
	if r.publisher != nil {
		syncers = append(syncers, kafka.NewCartSyncer(r.publisher, id, userID, r.topic))
	}
	sess.Cart = cart.NewStore(kv, syncers,
		cart.WithLogger(logger.WithField("component", "cart-store")),
		cart.WithMetrics(r.metrics),
		cart.WithDebounce(r.cartDebounce),
		cart.WithClock(r.now),
	)
	sess.Cart.LoadCartFromStorage(ctx)

	sess.Favorites = favorites.NewStore(kv, favorites.WithLogger(logger.WithField("component", "favorites-store")))
	sess.Favorites.Load(ctx)

	sess.touch(r.now())
	return sess
}

// DeleteStale вытесняет не более limit сессий, к которым не обращались с момента before.
// Отложенная запись корзины выполняется до вытеснения.
func (r *Registry) DeleteStale(ctx context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	stale := make([]*Session, 0)
	for _, sess := range r.sessions {
		if !sess.LastSeen().After(before) {
			stale = append(stale, sess)
		}
	}
	slices.SortFunc(stale, func(a, b *Session) int {
		return a.LastSeen().Compare(b.LastSeen())
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	for _, sess := range stale {
		delete(r.sessions, sess.ID)
	}
	r.mu.Unlock()

	var errs []error
	for _, sess := range stale {
		sess.Notifications.Close()
		if err := sess.Cart.Shutdown(ctx); err != nil {
			errs = append(errs, err)
			r.logger.WithError(err).WithField("session_id", sess.ID).Warn("failed to flush cart of evicted session")
		}
		r.metrics.SessionClosed()
	}
	if len(stale) > 0 {
		r.logger.WithField("evicted", len(stale)).Info("idle storefront sessions evicted")
	}
	return len(stale), errors.Join(errs...)
}

// Shutdown сохраняет отложенные корзины всех сессий и закрывает их.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	open := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		open = append(open, sess)
	}
	r.mu.Unlock()

	var errs []error
	for _, sess := range open {
		sess.Notifications.Close()
		if err := sess.Cart.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.StaleEntryPurger = (*Registry)(nil)
