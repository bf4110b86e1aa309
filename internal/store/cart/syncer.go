package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Syncer отправляет снимок корзины во внешнюю систему. Ошибки синхронизации
// только логируются стором и не влияют на локальное состояние.
type Syncer interface {
	Sync(ctx context.Context, snapshot domain.CartSnapshot) error
}

// SyncerFunc адаптирует функцию к Syncer.
type SyncerFunc func(ctx context.Context, snapshot domain.CartSnapshot) error

func (f SyncerFunc) Sync(ctx context.Context, snapshot domain.CartSnapshot) error {
	return f(ctx, snapshot)
}

// NopSyncer ничего не синхронизирует.
type NopSyncer struct{}

func (NopSyncer) Sync(context.Context, domain.CartSnapshot) error { return nil }

// MultiSyncer вызывает все синхронизаторы по очереди и объединяет ошибки.
type MultiSyncer []Syncer

func (m MultiSyncer) Sync(ctx context.Context, snapshot domain.CartSnapshot) error {
	var errs []error
	for _, syncer := range m {
		if syncer == nil {
			continue
		}
		if err := syncer.Sync(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CartAPI — удалённый endpoint корзин (обычно *apiclient.Client).
type CartAPI interface {
	SyncCart(ctx context.Context, req apiclient.CartSyncRequest) error
}

// HTTPSyncer публикует снимок в POST /carts.
type HTTPSyncer struct {
	api    CartAPI
	userID func() int
	now    func() time.Time
}

// NewHTTPSyncer создает синхронизатор; userID вызывается на каждую синхронизацию.
func NewHTTPSyncer(api CartAPI, userID func() int) *HTTPSyncer {
	if userID == nil {
		userID = func() int { return 0 }
	}
	return &HTTPSyncer{api: api, userID: userID, now: time.Now}
}

func (h *HTTPSyncer) Sync(ctx context.Context, snapshot domain.CartSnapshot) error {
	now := snapshot.TakenAt
	if now.IsZero() {
		now = h.now()
	}
	if err := h.api.SyncCart(ctx, apiclient.NewCartSyncRequest(h.userID(), snapshot, now)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSync, err)
	}
	return nil
}

var (
	_ Syncer = NopSyncer{}
	_ Syncer = MultiSyncer(nil)
	_ Syncer = (*HTTPSyncer)(nil)
	_ Syncer = SyncerFunc(nil)
)
