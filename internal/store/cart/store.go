// Package cart — корзина сессии витрины: строки, флаг открытия панели,
// отложенное сохранение снимка и best-effort синхронизация с API.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/debounce"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/store/observer"
)

const (
	// DefaultDebounce — окно тишины перед сохранением и синхронизацией.
	DefaultDebounce    = 500 * time.Millisecond
	defaultSyncTimeout = 5 * time.Second
)

// Option настраивает Store.
type Option func(*Store)

// WithLogger задает logger корзины.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics подключает счетчики сохранений и синхронизаций.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithDebounce меняет окно тишины; значения <= 0 игнорируются.
func WithDebounce(delay time.Duration) Option {
	return func(s *Store) {
		if delay > 0 {
			s.delay = delay
		}
	}
}

// WithSyncTimeout ограничивает время одного цикла сохранения и синхронизации.
func WithSyncTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.syncTimeout = timeout
		}
	}
}

// WithClock подменяет источник времени снимков.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store — корзина одной сессии.
type Store struct {
	kv          domain.KeyValueStore
	syncer      Syncer
	logger      *log.Entry
	metrics     *metrics.Metrics
	delay       time.Duration
	syncTimeout time.Duration
	now         func() time.Time

	mu     sync.Mutex
	items  []domain.CartItem
	isOpen bool
	loaded bool

	// writeThrough включается после Shutdown: мутации сохраняются сразу, без debounce.
	writeThrough bool
	// directMu упорядочивает прямые записи, чтобы последним сохранялось последнее состояние.
	directMu sync.Mutex

	writer    *debounce.Debouncer[domain.CartSnapshot]
	observers observer.List[domain.CartSnapshot]
}

// NewStore создает пустую корзину. nil-syncer заменяется на NopSyncer.
func NewStore(kv domain.KeyValueStore, syncer Syncer, opts ...Option) *Store {
	if syncer == nil {
		syncer = NopSyncer{}
	}
	s := &Store{
		kv:          kv,
		syncer:      syncer,
		logger:      log.WithField("component", "cart-store"),
		delay:       DefaultDebounce,
		syncTimeout: defaultSyncTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = debounce.New(s.delay, s.persist)
	return s
}

// AddToCart добавляет quantity единиц товара: существующая строка увеличивается,
// иначе в конец добавляется новая. quantity <= 0 игнорируется.
func (s *Store) AddToCart(product domain.Product, quantity int) {
	if quantity <= 0 {
		return
	}

	s.mu.Lock()
	idx := s.indexLocked(product.ID)
	if idx >= 0 {
		s.items[idx].Quantity += quantity
	} else {
		s.items = append(s.items, domain.CartItem{Product: product, Quantity: quantity})
	}
	s.mutatedLocked()
}

// AddOne добавляет одну единицу товара.
func (s *Store) AddOne(product domain.Product) {
	s.AddToCart(product, 1)
}

// RemoveFromCart удаляет строку товара; отсутствие строки не ошибка.
func (s *Store) RemoveFromCart(productID int) {
	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	s.mutatedLocked()
}

// UpdateQuantity задает количество; quantity <= 0 удаляет строку.
func (s *Store) UpdateQuantity(productID, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(productID)
		return
	}

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items[idx].Quantity = quantity
	s.mutatedLocked()
}

// ClearCart удаляет все строки.
func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	s.mutatedLocked()
}

// OpenCart открывает панель корзины. Флаг не сохраняется.
func (s *Store) OpenCart() { s.setOpen(func(bool) bool { return true }) }

// CloseCart закрывает панель корзины.
func (s *Store) CloseCart() { s.setOpen(func(bool) bool { return false }) }

// ToggleCart переключает панель корзины.
func (s *Store) ToggleCart() { s.setOpen(func(open bool) bool { return !open }) }

func (s *Store) setOpen(next func(bool) bool) {
	s.mu.Lock()
	s.isOpen = next(s.isOpen)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// IsOpen сообщает, открыта ли панель корзины.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Items возвращает копию строк в порядке добавления.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneCartItems(s.items)
}

// ItemCount — число различных строк.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalQuantity — суммарное количество единиц.
func (s *Store) TotalQuantity() int {
	return s.Snapshot().TotalQuantity()
}

// TotalPrice — сумма price × quantity по текущим строкам.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.Snapshot().TotalPrice()
}

// Snapshot возвращает снимок корзины.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe подписывает fn на изменения корзины.
func (s *Store) Subscribe(fn func(domain.CartSnapshot)) func() {
	return s.observers.Subscribe(fn)
}

// LoadCartFromStorage один раз восстанавливает строки из хранилища.
// Повреждённые данные дают пустую корзину, ошибка не возвращается.
func (s *Store) LoadCartFromStorage(ctx context.Context) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.mu.Unlock()

	raw, ok := s.kv.Get(ctx, domain.StorageKeyCart)
	items := []domain.CartItem(nil)
	if ok && raw != "" {
		var err error
		items, err = decodeItems(raw)
		if err != nil {
			s.logger.WithError(err).Warn("stored cart is unreadable, starting with an empty cart")
			items = nil
		}
	}

	s.mu.Lock()
	s.items = items
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Close отменяет отложенную запись: после Close корзина больше ничего не сохраняет.
func (s *Store) Close() {
	s.writer.Stop()
}

// Shutdown немедленно выполняет отложенную запись и останавливает debounce.
// Мутации после Shutdown сохраняются синхронно: сессию могли вытеснить,
// пока запрос ещё держит её корзину.
func (s *Store) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.mu.Lock()
		s.writeThrough = true
		pending := s.writer.Pending()
		s.writer.Stop()
		snapshot := s.snapshotLocked()
		s.mu.Unlock()

		if pending {
			s.persist(snapshot)
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutatedLocked снимает снимок, отпускает блокировку, планирует запись
// и уведомляет подписчиков. Вызывается под s.mu.
func (s *Store) mutatedLocked() {
	snapshot := s.snapshotLocked()
	direct := s.writeThrough
	s.mu.Unlock()

	if direct {
		s.persistLatest()
	} else {
		s.writer.Call(snapshot)
	}
	s.observers.Notify(snapshot)
}

func (s *Store) persistLatest() {
	s.directMu.Lock()
	defer s.directMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snapshot)
}

func (s *Store) persist(snapshot domain.CartSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	payload, err := json.Marshal(nonNil(snapshot.Items))
	if err != nil {
		s.logger.WithError(err).Error("failed to encode cart snapshot")
		return
	}
	s.kv.Set(ctx, domain.StorageKeyCart, string(payload))
	s.metrics.RecordCartPersist()

	err = s.syncer.Sync(ctx, snapshot)
	s.metrics.RecordCartSync(err)
	if err != nil {
		s.logger.WithError(err).WithField("items", len(snapshot.Items)).Warn("cart sync failed")
		return
	}
	s.logger.WithField("items", len(snapshot.Items)).Debug("cart persisted and synced")
}

func (s *Store) indexLocked(productID int) int {
	return slices.IndexFunc(s.items, func(item domain.CartItem) bool {
		return item.Product.ID == productID
	})
}

func (s *Store) snapshotLocked() domain.CartSnapshot {
	return domain.CartSnapshot{
		Items:   domain.CloneCartItems(s.items),
		IsOpen:  s.isOpen,
		TakenAt: s.now(),
	}
}

// decodeItems разбирает сохраненный снимок и восстанавливает инварианты:
// строки с неположительным количеством отбрасываются, дубликаты сливаются.
func decodeItems(raw string) ([]domain.CartItem, error) {
	var stored []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, errors.Join(domain.ErrPersistenceRead, err)
	}

	items := make([]domain.CartItem, 0, len(stored))
	for _, item := range stored {
		if item.Quantity <= 0 {
			continue
		}
		idx := slices.IndexFunc(items, func(existing domain.CartItem) bool {
			return existing.Product.ID == item.Product.ID
		})
		if idx >= 0 {
			items[idx].Quantity += item.Quantity
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func nonNil(items []domain.CartItem) []domain.CartItem {
	if items == nil {
		return []domain.CartItem{}
	}
	return items
}
