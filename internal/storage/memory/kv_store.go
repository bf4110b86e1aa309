package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// KeyValueStore — in-memory хранилище с пространствами имён (scope) для
// локальной разработки и тестов. Каждая сессия витрины получает свой scope.
type KeyValueStore struct {
	mu        sync.RWMutex
	scopes    map[string]map[string]string
	updatedAt map[string]time.Time
	now       func() time.Time
}

// Option настраивает KeyValueStore.
type Option func(*KeyValueStore)

// WithClock подменяет источник времени для отметок обновления scope.
func WithClock(now func() time.Time) Option {
	return func(s *KeyValueStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewKeyValueStore создает пустое хранилище.
func NewKeyValueStore(opts ...Option) *KeyValueStore {
	s := &KeyValueStore{
		scopes:    make(map[string]map[string]string),
		updatedAt: make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scope возвращает представление хранилища, ограниченное пространством имён.
func (s *KeyValueStore) Scope(namespace string) domain.KeyValueStore {
	return &scopedStore{parent: s, namespace: namespace}
}

// DropScope удаляет все ключи пространства имён.
func (s *KeyValueStore) DropScope(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(namespace)
}

// Len возвращает количество ключей в пространстве имён.
func (s *KeyValueStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes[namespace])
}

// DeleteStale удаляет не более limit пространств имён, в которые не писали
// с момента before, начиная с самых старых. Возвращает число удалённых scope.
func (s *KeyValueStore) DeleteStale(_ context.Context, before time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := make([]string, 0)
	for namespace, updated := range s.updatedAt {
		if !updated.After(before) {
			stale = append(stale, namespace)
		}
	}
	slices.SortFunc(stale, func(a, b string) int {
		return s.updatedAt[a].Compare(s.updatedAt[b])
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	for _, namespace := range stale {
		s.dropLocked(namespace)
	}
	return len(stale), nil
}

func (s *KeyValueStore) dropLocked(namespace string) {
	delete(s.scopes, namespace)
	delete(s.updatedAt, namespace)
}

func (s *KeyValueStore) get(namespace, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.scopes[namespace][key]
	return value, ok
}

func (s *KeyValueStore) set(namespace, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope, ok := s.scopes[namespace]
	if !ok {
		scope = make(map[string]string)
		s.scopes[namespace] = scope
	}
	scope[key] = value
	s.updatedAt[namespace] = s.now()
}

func (s *KeyValueStore) remove(namespace, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope, ok := s.scopes[namespace]
	if !ok {
		return
	}
	delete(scope, key)
	if len(scope) == 0 {
		s.dropLocked(namespace)
		return
	}
	s.updatedAt[namespace] = s.now()
}

type scopedStore struct {
	parent    *KeyValueStore
	namespace string
}

func (s *scopedStore) Get(_ context.Context, key string) (string, bool) {
	return s.parent.get(s.namespace, key)
}

func (s *scopedStore) Set(_ context.Context, key, value string) {
	s.parent.set(s.namespace, key, value)
}

func (s *scopedStore) Remove(_ context.Context, key string) {
	s.parent.remove(s.namespace, key)
}

var (
	_ domain.KeyValueStore    = (*scopedStore)(nil)
	_ domain.StaleEntryPurger = (*KeyValueStore)(nil)
)
