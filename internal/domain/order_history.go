package domain

import "time"

// OrderHistory is an immutable audit trail entry.
type OrderHistory struct {
	ID        string
	OrderID   OrderID
	ActorID   string
	Event     string
	FromState OrderState
	ToState   OrderState
	Detail    map[string]any
	CreatedAt time.Time
}
