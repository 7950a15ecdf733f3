package domain

import (
	"strings"
	"time"
)

// OrderState enumerates lifecycle states for orders.
type OrderState string

const (
	OrderStateOpen      OrderState = "OPEN"
	OrderStateDoable    OrderState = "DOABLE"
	OrderStateNotDoable OrderState = "NOT_DOABLE"
	OrderStateCompleted OrderState = "COMPLETED"
)

// Terminal reports whether no further event is accepted in this state.
func (s OrderState) Terminal() bool {
	return s == OrderStateNotDoable || s == OrderStateCompleted
}

// Valid reports whether s is a known state.
func (s OrderState) Valid() bool {
	switch s {
	case OrderStateOpen, OrderStateDoable, OrderStateNotDoable, OrderStateCompleted:
		return true
	}
	return false
}

// ParseOrderState accepts any case.
func ParseOrderState(raw string) (OrderState, bool) {
	state := OrderState(strings.ToUpper(strings.TrimSpace(raw)))
	return state, state.Valid()
}

// OrderID is the human-readable order identifier, e.g. "st-07".
type OrderID string

func (id OrderID) String() string { return string(id) }

// Order is one support request bound to its own private channel.
type Order struct {
	ID          OrderID
	State       OrderState
	RequesterID string
	GuildID     string
	ChannelID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a channel member as reported by the chat platform.
type Member struct {
	ID  string
	Bot bool
}
