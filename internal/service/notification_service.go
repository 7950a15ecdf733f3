package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/events"
	"github.com/spec-kit/order-desk/internal/repository"
)

// NotificationService logs order events and keeps the audit trail.
type NotificationService struct {
	dispatcher events.Dispatcher
	history    repository.OrderHistoryRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil history repository
// turns it into a log-only subscriber.
func NewNotificationService(dispatcher events.Dispatcher, history repository.OrderHistoryRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventOrderOpened, n.handleOrderOpened)
	n.dispatcher.Subscribe(events.EventOrderStateChanged, n.handleOrderStateChanged)
	n.dispatcher.Subscribe(events.EventSideEffectFailed, n.handleSideEffectFailed)
	n.dispatcher.Subscribe(events.EventChannelDeleted, n.handleChannelDeleted)
}

func (n *NotificationService) handleOrderOpened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderOpenedPayload)
	if !ok {
		return payloadError(event)
	}
	n.logger.Info("OrderOpened",
		zap.String("order_id", event.OrderID.String()),
		zap.String("requester_id", payload.RequesterID),
		zap.String("channel_id", payload.ChannelID))
	return n.record(ctx, &domain.OrderHistory{
		OrderID: event.OrderID,
		ActorID: event.ActorID,
		Event:   "open",
		ToState: domain.OrderStateOpen,
		Detail:  map[string]any{"channel_id": payload.ChannelID},
	})
}

func (n *NotificationService) handleOrderStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderStateChangedPayload)
	if !ok {
		return payloadError(event)
	}
	n.logger.Info("OrderStateChanged",
		zap.String("order_id", event.OrderID.String()),
		zap.String("command", payload.Command),
		zap.String("old_state", string(payload.OldState)),
		zap.String("new_state", string(payload.NewState)))
	return n.record(ctx, &domain.OrderHistory{
		OrderID:   event.OrderID,
		ActorID:   event.ActorID,
		Event:     payload.Command,
		FromState: payload.OldState,
		ToState:   payload.NewState,
	})
}

func (n *NotificationService) handleSideEffectFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SideEffectFailedPayload)
	if !ok {
		return payloadError(event)
	}
	n.logger.Warn("SideEffectFailed",
		zap.String("order_id", event.OrderID.String()),
		zap.String("effect", payload.Effect),
		zap.String("error", payload.Error))
	if event.OrderID == "" {
		return nil
	}
	return n.record(ctx, &domain.OrderHistory{
		OrderID: event.OrderID,
		ActorID: event.ActorID,
		Event:   string(events.EventSideEffectFailed),
		Detail: map[string]any{
			"effect":     payload.Effect,
			"channel_id": payload.ChannelID,
			"error":      payload.Error,
		},
	})
}

func (n *NotificationService) handleChannelDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ChannelDeletedPayload)
	if !ok {
		return payloadError(event)
	}
	n.logger.Info("ChannelDeleted",
		zap.String("order_id", event.OrderID.String()),
		zap.String("channel_id", payload.ChannelID))
	return n.record(ctx, &domain.OrderHistory{
		OrderID: event.OrderID,
		Event:   string(events.EventChannelDeleted),
		Detail:  map[string]any{"channel_id": payload.ChannelID},
	})
}

func (n *NotificationService) record(ctx context.Context, entry *domain.OrderHistory) error {
	if n.history == nil {
		return nil
	}
	if err := n.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("record history for %s: %w", entry.OrderID, err)
	}
	return nil
}

func payloadError(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
