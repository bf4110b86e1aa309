// Package notification — всплывающее уведомление сессии: одно видимое сообщение,
// которое скрывается само по истечении срока показа.
package notification

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/store/observer"
)

// Type — оформление уведомления.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// DefaultDuration — сколько уведомление висит, если срок не задан.
const DefaultDuration = 3 * time.Second

// Button — действие в уведомлении; Action — путь, на который клиент переходит по нажатию.
type Button struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// State — снимок уведомления.
type State struct {
	Visible bool    `json:"visible"`
	Message string  `json:"message"`
	Type    Type    `json:"type"`
	Button  *Button `json:"button,omitempty"`
}

// Params — параметры Notify. Duration == 0 означает DefaultDuration,
// отрицательный Duration оставляет уведомление до явного Hide.
type Params struct {
	Message  string
	Type     Type
	Duration time.Duration
	Button   *Button
}

// Store хранит текущее уведомление сессии.
type Store struct {
	mu    sync.Mutex
	state State
	seq   uint64
	timer *time.Timer

	observers observer.List[State]
}

// NewStore создает скрытое уведомление.
func NewStore() *Store {
	return &Store{state: State{Type: TypeInfo}}
}

// Show показывает сообщение до явного Hide; пустой typ означает TypeInfo.
func (s *Store) Show(message string, typ Type, button *Button) {
	s.mu.Lock()
	s.showLocked(message, typ, button)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Notify показывает уведомление и планирует его скрытие.
// Новое уведомление отменяет таймер предыдущего.
func (s *Store) Notify(p Params) {
	duration := p.Duration
	if duration == 0 {
		duration = DefaultDuration
	}

	s.mu.Lock()
	seq := s.showLocked(p.Message, p.Type, p.Button)
	if duration > 0 {
		s.timer = time.AfterFunc(duration, func() { s.expire(seq) })
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Hide скрывает уведомление и очищает сообщение и кнопку.
func (s *Store) Hide() {
	s.mu.Lock()
	s.hideLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe подписывает fn на изменения уведомления.
func (s *Store) Subscribe(fn func(State)) func() {
	return s.observers.Subscribe(fn)
}

// Close останавливает таймер скрытия.
func (s *Store) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
}

func (s *Store) expire(seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.hideLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.observers.Notify(snapshot)
}

func (s *Store) showLocked(message string, typ Type, button *Button) uint64 {
	if typ == "" {
		typ = TypeInfo
	}
	s.stopTimerLocked()
	s.seq++
	s.state = State{Visible: true, Message: message, Type: typ}
	if button != nil {
		b := *button
		s.state.Button = &b
	}
	return s.seq
}

func (s *Store) hideLocked() {
	s.stopTimerLocked()
	s.seq++
	s.state.Visible = false
	s.state.Message = ""
	s.state.Button = nil
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) snapshotLocked() State {
	out := s.state
	if out.Button != nil {
		b := *out.Button
		out.Button = &b
	}
	return out
}
