package dto

import (
	"time"

	"github.com/spec-kit/order-desk/internal/domain"
)

// OrderSummary response.
type OrderSummary struct {
	ID          string            `json:"id"`
	State       domain.OrderState `json:"state"`
	Terminal    bool              `json:"terminal"`
	RequesterID string            `json:"requester_id"`
	ChannelID   string            `json:"channel_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// OrderDetailResponse provides full order info.
type OrderDetailResponse struct {
	OrderSummary
	GuildID string                 `json:"guild_id"`
	History []OrderHistoryResponse `json:"history"`
}

// OrderHistoryResponse represents one audit entry.
type OrderHistoryResponse struct {
	ID        string            `json:"id"`
	ActorID   string            `json:"actor_id,omitempty"`
	Event     string            `json:"event"`
	FromState domain.OrderState `json:"from_state,omitempty"`
	ToState   domain.OrderState `json:"to_state,omitempty"`
	Detail    map[string]any    `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewOrderSummary maps a domain order.
func NewOrderSummary(order *domain.Order) OrderSummary {
	return OrderSummary{
		ID:          order.ID.String(),
		State:       order.State,
		Terminal:    order.State.Terminal(),
		RequesterID: order.RequesterID,
		ChannelID:   order.ChannelID,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// NewOrderDetail maps an order with its audit trail.
func NewOrderDetail(order *domain.Order, history []domain.OrderHistory) OrderDetailResponse {
	resp := OrderDetailResponse{
		OrderSummary: NewOrderSummary(order),
		GuildID:      order.GuildID,
		History:      make([]OrderHistoryResponse, 0, len(history)),
	}
	for _, h := range history {
		resp.History = append(resp.History, OrderHistoryResponse{
			ID:        h.ID,
			ActorID:   h.ActorID,
			Event:     h.Event,
			FromState: h.FromState,
			ToState:   h.ToState,
			Detail:    h.Detail,
			CreatedAt: h.CreatedAt,
		})
	}
	return resp
}
