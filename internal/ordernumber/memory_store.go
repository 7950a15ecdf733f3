package ordernumber

import (
	"context"
	"math"
	"sync"
)

// MemoryStore is a process-local counter. It does not survive restarts.
type MemoryStore struct {
	mu   sync.Mutex
	last int64
}

// NewMemoryStore starts counting after last.
func NewMemoryStore(last int64) *MemoryStore {
	if last < 0 {
		last = 0
	}
	return &MemoryStore{last: last}
}

func (s *MemoryStore) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == math.MaxInt64 {
		return 0, ErrCounterExhausted
	}
	s.last++
	return s.last, nil
}
