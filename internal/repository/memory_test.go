package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-desk/internal/domain"
)

func TestMemoryOrderRepositorySaveKeepsIdentity(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	order := &domain.Order{ID: "st-01", State: domain.OrderStateOpen, RequesterID: "D", ChannelID: "chan-1"}
	require.NoError(t, repo.Save(ctx, order))
	created := order.CreatedAt

	update := &domain.Order{ID: "st-01", State: domain.OrderStateDoable, RequesterID: "X", ChannelID: "other"}
	require.NoError(t, repo.Save(ctx, update))

	got, err := repo.GetByChannel(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateDoable, got.State)
	assert.Equal(t, "D", got.RequesterID, "requester is immutable")
	assert.Equal(t, created, got.CreatedAt)

	_, err = repo.GetByChannel(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, "st-99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOrderRepositoryList(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()
	for _, o := range []domain.Order{
		{ID: "st-01", State: domain.OrderStateOpen, RequesterID: "D"},
		{ID: "st-02", State: domain.OrderStateCompleted, RequesterID: "E"},
		{ID: "st-03", State: domain.OrderStateOpen, RequesterID: "E"},
	} {
		o := o
		require.NoError(t, repo.Save(ctx, &o))
	}

	open, err := repo.List(ctx, OrderFilter{States: []domain.OrderState{domain.OrderStateOpen}})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	requester := "E"
	mine, err := repo.List(ctx, OrderFilter{RequesterID: &requester})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	page, err := repo.List(ctx, OrderFilter{Limit: 1, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryOrderHistoryRepository(t *testing.T) {
	repo := NewMemoryOrderHistoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.OrderHistory{OrderID: "st-01", Event: "open", ToState: domain.OrderStateOpen}))
	require.NoError(t, repo.Create(ctx, &domain.OrderHistory{OrderID: "st-01", Event: "complete", FromState: domain.OrderStateOpen, ToState: domain.OrderStateCompleted}))

	entries, err := repo.ListByOrder(ctx, "st-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "complete", entries[1].Event)
}
