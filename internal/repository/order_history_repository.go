package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-desk/internal/domain"
)

// OrderHistoryRepository stores audit entries.
type OrderHistoryRepository interface {
	Create(ctx context.Context, history *domain.OrderHistory) error
	ListByOrder(ctx context.Context, orderID domain.OrderID) ([]domain.OrderHistory, error)
}

type orderHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewOrderHistoryRepository builds repository.
func NewOrderHistoryRepository(pool *pgxpool.Pool) OrderHistoryRepository {
	return &orderHistoryRepository{pool: pool}
}

func (r *orderHistoryRepository) Create(ctx context.Context, history *domain.OrderHistory) error {
	const query = `
        INSERT INTO order_history (order_id, actor_id, event, from_state, to_state, detail)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.OrderID,
		history.ActorID,
		history.Event,
		history.FromState,
		history.ToState,
		history.Detail,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *orderHistoryRepository) ListByOrder(ctx context.Context, orderID domain.OrderID) ([]domain.OrderHistory, error) {
	const query = `
        SELECT id, order_id, actor_id, event, from_state, to_state, detail, created_at
        FROM order_history WHERE order_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrderHistory
	for rows.Next() {
		var history domain.OrderHistory
		if err := rows.Scan(
			&history.ID,
			&history.OrderID,
			&history.ActorID,
			&history.Event,
			&history.FromState,
			&history.ToState,
			&history.Detail,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
