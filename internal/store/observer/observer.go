// Package observer — минимальная подписка на снимки состояния сторов.
package observer

import (
	"slices"
	"sync"
)

// List хранит подписчиков и рассылает им снимки.
// Подписчики вызываются синхронно, вне блокировок стора.
type List[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

// Subscribe регистрирует fn и возвращает функцию отписки (идемпотентную).
func (l *List[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	if l.subs == nil {
		l.subs = make(map[int]func(T))
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// Notify передает снимок всем текущим подписчикам в порядке подписки.
func (l *List[T]) Notify(snapshot T) {
	l.mu.Lock()
	if len(l.subs) == 0 {
		l.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.subs[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Len возвращает число подписчиков.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}
