package ordernumber

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

const counterName = "orders"

// PostgresStore keeps the counter in the order_counter table. The upsert
// takes the row lock, so concurrent callers never observe the same value.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store on pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Next(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("postgres pool not configured")
	}
	const query = `
        INSERT INTO order_counter (name, last_order_number)
        VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE
        SET last_order_number = GREATEST(order_counter.last_order_number, 0) + 1,
            updated_at = NOW()
        RETURNING last_order_number`
	var next int64
	if err := s.pool.QueryRow(ctx, query, counterName).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}
