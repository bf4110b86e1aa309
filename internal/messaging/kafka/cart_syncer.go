package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Publisher публикует сериализуемое событие (реализуется *Producer).
type Publisher interface {
	PublishEvent(topic string, key string, event any) error
}

// CartSyncer публикует снимки корзины одной сессии в topic событий корзины.
// Ключ сообщения — id сессии, поэтому события одной корзины идут в одну партицию.
type CartSyncer struct {
	publisher Publisher
	topic     string
	sessionID string
	userID    func() int
}

// NewCartSyncer создает синхронизатор корзины поверх publisher.
func NewCartSyncer(publisher Publisher, sessionID string, userID func() int, topic string) *CartSyncer {
	if topic == "" {
		topic = TopicCartEvents
	}
	if userID == nil {
		userID = func() int { return 0 }
	}
	return &CartSyncer{
		publisher: publisher,
		topic:     topic,
		sessionID: sessionID,
		userID:    userID,
	}
}

// Sync публикует событие cart.updated или cart.cleared.
func (s *CartSyncer) Sync(ctx context.Context, snapshot domain.CartSnapshot) error {
	if s == nil || s.publisher == nil {
		return fmt.Errorf("%w: kafka cart syncer is not initialized", domain.ErrSync)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSync, err)
	}

	event := NewCartEvent(s.sessionID, s.userID(), snapshot)
	if err := s.publisher.PublishEvent(s.topic, s.sessionID, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSync, err)
	}
	return nil
}
