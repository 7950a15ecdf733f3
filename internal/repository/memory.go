package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/order-desk/internal/domain"
)

// MemoryOrderRepository keeps orders in process memory. Used when no
// database is configured; orders not found after a restart are recovered
// from their channel by the orchestrator.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]domain.Order
}

// NewMemoryOrderRepository returns an empty repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[domain.OrderID]domain.Order)}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	stored, ok := r.orders[order.ID]
	if ok {
		stored.State = order.State
	} else {
		stored = *order
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.orders[order.ID] = stored
	order.CreatedAt = stored.CreatedAt
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (r *MemoryOrderRepository) GetByChannel(ctx context.Context, channelID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if order.ChannelID == channelID {
			return &order, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryOrderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if len(filter.States) > 0 && !slices.Contains(filter.States, order.State) {
			continue
		}
		if filter.RequesterID != nil && order.RequesterID != *filter.RequesterID {
			continue
		}
		result = append(result, order)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	offset := max(filter.Offset, 0)
	if offset >= len(result) {
		return []domain.Order{}, nil
	}
	result = result[offset:]
	if limit := normalizeLimit(filter.Limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MemoryOrderHistoryRepository keeps audit entries in process memory.
type MemoryOrderHistoryRepository struct {
	mu      sync.RWMutex
	entries map[domain.OrderID][]domain.OrderHistory
}

// NewMemoryOrderHistoryRepository returns an empty repository.
func NewMemoryOrderHistoryRepository() *MemoryOrderHistoryRepository {
	return &MemoryOrderHistoryRepository{entries: make(map[domain.OrderID][]domain.OrderHistory)}
}

func (r *MemoryOrderHistoryRepository) Create(ctx context.Context, history *domain.OrderHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = time.Now().UTC()
	r.entries[history.OrderID] = append(r.entries[history.OrderID], *history)
	return nil
}

func (r *MemoryOrderHistoryRepository) ListByOrder(ctx context.Context, orderID domain.OrderID) ([]domain.OrderHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.OrderHistory(nil), r.entries[orderID]...), nil
}
