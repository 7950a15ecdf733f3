package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-desk/internal/domain"
)

// ErrNotFound is returned when no order matches.
var ErrNotFound = errors.New("order not found")

// OrderFilter narrows order listings.
type OrderFilter struct {
	States      []domain.OrderState
	RequesterID *string
	Limit       int
	Offset      int
}

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	// Save inserts the order or updates its state, keyed by ID.
	Save(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	GetByChannel(ctx context.Context, channelID string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates the Postgres repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (id, state, requester_id, guild_id, channel_id)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET state=EXCLUDED.state, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		order.ID,
		order.State,
		order.RequesterID,
		order.GuildID,
		order.ChannelID,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	const query = `
        SELECT id, state, requester_id, guild_id, channel_id, created_at, updated_at
        FROM orders WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *orderRepository) GetByChannel(ctx context.Context, channelID string) (*domain.Order, error) {
	const query = `
        SELECT id, state, requester_id, guild_id, channel_id, created_at, updated_at
        FROM orders WHERE channel_id=$1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *orderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.State,
		&order.RequesterID,
		&order.GuildID,
		&order.ChannelID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	base := `SELECT id, state, requester_id, guild_id, channel_id, created_at, updated_at FROM orders`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		args = append(args, states)
		clauses = append(clauses, fmt.Sprintf("state = ANY($%d)", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}

	query := base + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY created_at DESC"
	limit := normalizeLimit(filter.Limit)
	args = append(args, limit, max(filter.Offset, 0))
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.State,
			&order.RequesterID,
			&order.GuildID,
			&order.ChannelID,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
