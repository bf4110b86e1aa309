// Package debounce схлопывает серию быстрых вызовов в один отложенный вызов
// с аргументом последнего из них.
package debounce

import (
	"sync"
	"time"
)

// Debouncer откладывает вызов fn до окончания окна тишины длительностью delay.
// У экземпляра один слот ожидания: новый Call вытесняет предыдущий.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    bool
	arg        T
	stopped    bool
}

// New создает Debouncer. delay <= 0 означает вызов на следующем тике таймера.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Call отменяет запланированный вызов и планирует новый через delay с аргументом arg.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()

	d.generation++
	gen := d.generation
	d.arg = arg
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel отбрасывает запланированный вызов, если он есть.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop отменяет ожидающий вызов, последующие Call игнорируются.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Flush немедленно выполняет ожидающий вызов в текущей горутине.
// Возвращает false, если выполнять было нечего.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	arg := d.arg
	d.cancelLocked()
	d.mu.Unlock()

	d.fn(arg)
	return true
}

// Pending сообщает, запланирован ли вызов.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// Таймер мог сработать одновременно с Call/Cancel: вытесненное поколение не выполняется.
	if !d.pending || gen != d.generation {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	var zero T
	d.arg = zero
	d.mu.Unlock()

	d.fn(arg)
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.pending {
		d.generation++
	}
	d.pending = false
	var zero T
	d.arg = zero
}
