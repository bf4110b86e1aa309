package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события корзины
type EventType string

const (
	EventTypeCartUpdated EventType = "cart.updated"
	EventTypeCartCleared EventType = "cart.cleared"
)

// TopicCartEvents — topic событий корзины витрины
const TopicCartEvents = "storefront.cart.events"

// CartEventItem — строка корзины в событии
type CartEventItem struct {
	ProductID int     `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// CartEvent представляет снимок корзины сессии
type CartEvent struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	SessionID     string          `json:"session_id"`
	UserID        int             `json:"user_id,omitempty"`
	Items         []CartEventItem `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    string          `json:"total_price"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewCartEvent создает событие из снимка корзины. Пустая корзина даёт cart.cleared.
func NewCartEvent(sessionID string, userID int, snapshot domain.CartSnapshot) *CartEvent {
	eventType := EventTypeCartUpdated
	if len(snapshot.Items) == 0 {
		eventType = EventTypeCartCleared
	}

	items := make([]CartEventItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, CartEventItem{
			ProductID: item.Product.ID,
			Title:     item.Product.Title,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		})
	}

	timestamp := snapshot.TakenAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &CartEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		SessionID:     sessionID,
		UserID:        userID,
		Items:         items,
		TotalQuantity: snapshot.TotalQuantity(),
		TotalPrice:    snapshot.TotalPrice().StringFixed(2),
		Timestamp:     timestamp.UTC(),
	}
}
