package events

import (
	"time"

	"github.com/spec-kit/order-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderOpened       EventType = "order_opened"
	EventOrderStateChanged EventType = "order_state_changed"
	EventSideEffectFailed  EventType = "side_effect_failed"
	EventChannelDeleted    EventType = "channel_deleted"
)

// Event represents a domain event emitted by the orchestrator.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	OrderID   domain.OrderID `json:"order_id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   interface{}    `json:"payload"`
}

// OrderOpenedPayload payload.
type OrderOpenedPayload struct {
	RequesterID string `json:"requester_id"`
	ChannelID   string `json:"channel_id"`
	GuildID     string `json:"guild_id"`
}

// OrderStateChangedPayload payload.
type OrderStateChangedPayload struct {
	Command  string            `json:"command"`
	OldState domain.OrderState `json:"old_state"`
	NewState domain.OrderState `json:"new_state"`
}

// SideEffectFailedPayload payload.
type SideEffectFailedPayload struct {
	Effect    string `json:"effect"`
	ChannelID string `json:"channel_id,omitempty"`
	Error     string `json:"error"`
}

// ChannelDeletedPayload payload.
type ChannelDeletedPayload struct {
	ChannelID string `json:"channel_id"`
}
