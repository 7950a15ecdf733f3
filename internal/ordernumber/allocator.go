package ordernumber

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/domain"
)

// ErrCounterExhausted is returned when the stored number cannot be
// advanced without overflowing.
var ErrCounterExhausted = errors.New("order counter exhausted")

// CounterStore persists the last handed-out order number.
//
// Next runs as a single critical section: it reads the previous value,
// treating a missing or malformed record as 0, persists previous+1 and
// returns it. An error means the new value could not be persisted and
// must not be used.
type CounterStore interface {
	Next(ctx context.Context) (int64, error)
}

// Allocator hands out unique order identifiers.
type Allocator struct {
	store  CounterStore
	prefix string
	logger *zap.Logger
}

// NewAllocator constructs an allocator formatting numbers with prefix.
func NewAllocator(store CounterStore, prefix string, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{store: store, prefix: prefix, logger: logger}
}

// Allocate persists the next number and returns it formatted.
func (a *Allocator) Allocate(ctx context.Context) (domain.OrderID, error) {
	n, err := a.store.Next(ctx)
	if err != nil {
		a.logger.Error("order number not persisted", zap.Error(err))
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	id := Format(a.prefix, n)
	a.logger.Debug("order number allocated", zap.String("order_id", id.String()), zap.Int64("number", n))
	return id, nil
}

// Prefix returns the identifier prefix, which also marks order channels.
func (a *Allocator) Prefix() string {
	return a.prefix
}

// Format renders n with at least two digits; wider numbers are kept whole.
func Format(prefix string, n int64) domain.OrderID {
	return domain.OrderID(fmt.Sprintf("%s%02d", prefix, n))
}
