package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/apiclient"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type fakeCartAPI struct {
	requests []apiclient.CartSyncRequest
	err      error
}

func (f *fakeCartAPI) SyncCart(_ context.Context, req apiclient.CartSyncRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

func TestHTTPSyncer_BuildsRequest(t *testing.T) {
	api := &fakeCartAPI{}
	syncer := NewHTTPSyncer(api, func() int { return 7 })

	snapshot := domain.CartSnapshot{
		Items: []domain.CartItem{
			{Product: domain.Product{ID: 5}, Quantity: 2},
			{Product: domain.Product{ID: 1}, Quantity: 1},
		},
		TakenAt: time.Date(2026, 3, 8, 23, 30, 0, 0, time.UTC),
	}
	require.NoError(t, syncer.Sync(context.Background(), snapshot))

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	require.Equal(t, 7, req.UserID)
	require.Equal(t, "2026-03-08", req.Date)
	require.Equal(t, []apiclient.CartProduct{{ProductID: 5, Quantity: 2}, {ProductID: 1, Quantity: 1}}, req.Products)
}

func TestHTTPSyncer_WrapsErrorsAsSyncError(t *testing.T) {
	upstream := errors.New("503")
	syncer := NewHTTPSyncer(&fakeCartAPI{err: upstream}, nil)

	err := syncer.Sync(context.Background(), domain.CartSnapshot{})
	require.ErrorIs(t, err, domain.ErrSync)
	require.ErrorIs(t, err, upstream)
}

func TestMultiSyncer_CallsAllAndJoinsErrors(t *testing.T) {
	first := errors.New("first")
	calls := 0
	multi := MultiSyncer{
		SyncerFunc(func(context.Context, domain.CartSnapshot) error { calls++; return first }),
		nil,
		NopSyncer{},
		SyncerFunc(func(context.Context, domain.CartSnapshot) error { calls++; return nil }),
	}

	err := multi.Sync(context.Background(), domain.CartSnapshot{})
	require.ErrorIs(t, err, first)
	require.Equal(t, 2, calls)
	require.NoError(t, MultiSyncer{}.Sync(context.Background(), domain.CartSnapshot{}))
}
