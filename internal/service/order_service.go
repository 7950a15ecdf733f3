package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/config"
	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/events"
	"github.com/spec-kit/order-desk/internal/lifecycle"
	"github.com/spec-kit/order-desk/internal/observability"
	"github.com/spec-kit/order-desk/internal/ordernumber"
	"github.com/spec-kit/order-desk/internal/platform"
	"github.com/spec-kit/order-desk/internal/repository"
	"github.com/spec-kit/order-desk/internal/worker"
	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

const (
	msgUnknownCommand = "Unknown command."
	msgInternal       = "Something went wrong while handling this command. Please try again later."
)

// OrderService turns slash commands into order transitions and carries
// out the platform side effects each transition requires.
type OrderService struct {
	machine    *lifecycle.Machine
	allocator  *ordernumber.Allocator
	gateway    platform.Gateway
	orders     repository.OrderRepository
	history    repository.OrderHistoryRepository
	dispatcher events.Dispatcher
	scheduler  *worker.Scheduler
	metrics    *observability.Metrics
	logger     *zap.Logger
	workflow   config.WorkflowConfig
	locks      *channelLocks
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	Machine     *lifecycle.Machine
	Allocator   *ordernumber.Allocator
	Gateway     platform.Gateway
	OrderRepo   repository.OrderRepository
	HistoryRepo repository.OrderHistoryRepository
	Dispatcher  events.Dispatcher
	Scheduler   *worker.Scheduler
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Workflow    config.WorkflowConfig
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		machine:    deps.Machine,
		allocator:  deps.Allocator,
		gateway:    deps.Gateway,
		orders:     deps.OrderRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		scheduler:  deps.Scheduler,
		metrics:    deps.Metrics,
		logger:     logger,
		workflow:   deps.Workflow,
		locks:      newChannelLocks(),
	}
}

// execution carries the values effects fill in for later effects.
type execution struct {
	cmd         platform.Command
	decision    lifecycle.Decision
	orderID     domain.OrderID
	channelID   string
	requesterID string
}

// Handle processes one command end to end. Rejections and side-effect
// failures are answered privately and do not produce an error; the
// returned error means the actor could not be told.
func (s *OrderService) Handle(ctx context.Context, cmd platform.Command) error {
	start := time.Now()
	logger := s.logger.With(
		zap.String("command", cmd.Name),
		zap.String("actor_id", cmd.ActorID),
		zap.String("channel_id", cmd.ChannelID),
	)

	event, ok := lifecycle.ParseEvent(cmd.Name)
	if !ok {
		logger.Warn("unknown command")
		s.metrics.RecordCommand(cmd.Name, observability.OutcomeRejected, time.Since(start))
		return s.gateway.Reply(ctx, cmd, msgUnknownCommand)
	}

	unlock := s.locks.Lock(cmd.ChannelID)
	defer unlock()

	req := lifecycle.Request{
		Event:          event,
		ActorID:        cmd.ActorID,
		InIntake:       cmd.ChannelID == s.workflow.IntakeChannelID,
		InOrderChannel: s.isOrderChannel(cmd),
	}

	var current *domain.Order
	if event != lifecycle.EventOpen && req.InOrderChannel {
		order, err := s.loadOrder(ctx, cmd)
		if err != nil {
			logger.Error("load order", zap.Error(err))
			s.metrics.RecordCommand(string(event), observability.OutcomeFailed, time.Since(start))
			return s.gateway.Reply(ctx, cmd, msgInternal)
		}
		current = order
		req.Current = order.State
		req.Members = func() ([]domain.Member, error) {
			return s.gateway.ChannelMembers(ctx, cmd.GuildID, cmd.ChannelID)
		}
	}

	decision, err := s.machine.Decide(req)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			logger.Info("command rejected", zap.String("code", domainErr.Code), zap.String("reason", domainErr.Message))
			s.metrics.RecordCommand(string(event), observability.OutcomeRejected, time.Since(start))
			return s.gateway.Reply(ctx, cmd, domainErr.Message)
		}
		logger.Error("decide", zap.Error(err))
		s.metrics.RecordCommand(string(event), observability.OutcomeFailed, time.Since(start))
		if errors.Is(err, platform.ErrNotFound) {
			return s.gateway.Reply(ctx, cmd, failureText(event, lifecycle.EffectRecord, err))
		}
		return s.gateway.Reply(ctx, cmd, msgInternal)
	}

	run := &execution{
		cmd:         cmd,
		decision:    decision,
		requesterID: decision.RequesterID,
	}
	if current != nil {
		run.orderID = current.ID
		run.channelID = current.ChannelID
		if current.RequesterID != "" && run.requesterID == "" {
			run.requesterID = current.RequesterID
		}
	}

	for _, effect := range decision.Effects {
		if err := s.apply(ctx, run, effect); err != nil {
			s.metrics.RecordCommand(string(event), observability.OutcomeFailed, time.Since(start))
			return s.reportFailure(ctx, run, effect, err)
		}
	}

	logger.Info("order transition applied",
		zap.String("order_id", run.orderID.String()),
		zap.String("from", string(decision.From)),
		zap.String("to", string(decision.To)))
	s.metrics.RecordCommand(string(event), observability.OutcomeApplied, time.Since(start))
	return nil
}

// GetOrder returns a recorded order.
func (s *OrderService) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("order", map[string]any{"order_id": id.String()})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return order, nil
}

// ListOrders lists recorded orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return orders, nil
}

// History returns the audit trail of an order, oldest first.
func (s *OrderService) History(ctx context.Context, id domain.OrderID) ([]domain.OrderHistory, error) {
	if s.history == nil {
		return []domain.OrderHistory{}, nil
	}
	entries, err := s.history.ListByOrder(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

func (s *OrderService) isOrderChannel(cmd platform.Command) bool {
	if cmd.ChannelID == s.workflow.IntakeChannelID {
		return false
	}
	return strings.HasPrefix(cmd.ChannelName, s.allocator.Prefix())
}

// loadOrder finds the order behind a channel. Channels the registry does
// not know (opened before a restart with an in-memory registry) are
// recovered under the channel's name: COMPLETED when the channel sits in
// the archive category, OPEN otherwise.
func (s *OrderService) loadOrder(ctx context.Context, cmd platform.Command) (*domain.Order, error) {
	order, err := s.orders.GetByChannel(ctx, cmd.ChannelID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	state := domain.OrderStateOpen
	if cmd.Category != "" && cmd.Category == s.workflow.ArchiveCategory {
		state = domain.OrderStateCompleted
	}
	s.logger.Warn("order channel not in registry; recovering from channel",
		zap.String("channel_id", cmd.ChannelID),
		zap.String("channel_name", cmd.ChannelName),
		zap.String("category", cmd.Category),
		zap.String("state", string(state)))
	return &domain.Order{
		ID:        domain.OrderID(cmd.ChannelName),
		State:     state,
		GuildID:   cmd.GuildID,
		ChannelID: cmd.ChannelID,
	}, nil
}

func (s *OrderService) apply(ctx context.Context, run *execution, effect lifecycle.Effect) error {
	switch effect.Kind {
	case lifecycle.EffectAllocateID:
		id, err := s.allocator.Allocate(ctx)
		if err != nil {
			return err
		}
		run.orderID = id
		return nil

	case lifecycle.EffectCreateChannel:
		channelID, err := s.gateway.CreatePrivateChannel(ctx, run.cmd.GuildID, run.orderID.String(), effect.MemberIDs)
		if err != nil {
			return err
		}
		run.channelID = channelID
		return nil

	case lifecycle.EffectRecord:
		return s.record(ctx, run)

	case lifecycle.EffectPost:
		text := s.render(run, effect.Text)
		if effect.Target == lifecycle.TargetFeedback {
			return s.announce(ctx, text)
		}
		return s.gateway.SendMessage(ctx, run.channelID, text)

	case lifecycle.EffectReply:
		return s.gateway.Reply(ctx, run.cmd, s.render(run, effect.Text))

	case lifecycle.EffectArchive:
		return s.gateway.MoveToCategory(ctx, run.cmd.GuildID, run.channelID, effect.Category)

	case lifecycle.EffectSetWrite:
		return s.gateway.SetMemberWritePermission(ctx, run.channelID, effect.MemberID, effect.Allowed)

	case lifecycle.EffectScheduleDelete:
		return s.scheduleDelete(ctx, run, effect.Delay)
	}
	return fmt.Errorf("unsupported effect %q", effect.Kind)
}

func (s *OrderService) record(ctx context.Context, run *execution) error {
	d := run.decision
	order := &domain.Order{
		ID:          run.orderID,
		State:       d.To,
		RequesterID: run.requesterID,
		GuildID:     run.cmd.GuildID,
		ChannelID:   run.channelID,
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return err
	}

	if d.Event == lifecycle.EventOpen {
		s.publish(ctx, events.Event{
			Type:    events.EventOrderOpened,
			OrderID: run.orderID,
			ActorID: run.cmd.ActorID,
			Payload: events.OrderOpenedPayload{
				RequesterID: run.requesterID,
				ChannelID:   run.channelID,
				GuildID:     run.cmd.GuildID,
			},
		})
		return nil
	}
	s.publish(ctx, events.Event{
		Type:    events.EventOrderStateChanged,
		OrderID: run.orderID,
		ActorID: run.cmd.ActorID,
		Payload: events.OrderStateChangedPayload{
			Command:  string(d.Event),
			OldState: d.From,
			NewState: d.To,
		},
	})
	return nil
}

// announce posts to the feedback channel. A missing channel is logged and
// skipped so that it never blocks an order from opening.
func (s *OrderService) announce(ctx context.Context, text string) error {
	channelID := s.workflow.FeedbackChannelID
	if channelID == "" {
		return nil
	}
	err := s.gateway.SendMessage(ctx, channelID, text)
	if errors.Is(err, platform.ErrNotFound) {
		s.logger.Warn("feedback channel not found", zap.String("channel_id", channelID))
		return nil
	}
	return err
}

// scheduleDelete removes the channel once the grace delay has passed. When
// the scheduler is already shutting down the channel is removed at once.
func (s *OrderService) scheduleDelete(ctx context.Context, run *execution, delay time.Duration) error {
	orderID := run.orderID
	channelID := run.channelID
	remove := func(ctx context.Context) error {
		if err := s.gateway.DeleteChannel(ctx, channelID); err != nil {
			if errors.Is(err, platform.ErrNotFound) {
				s.logger.Warn("order channel already gone", zap.String("order_id", orderID.String()), zap.String("channel_id", channelID))
				return nil
			}
			return fmt.Errorf("delete channel %s: %w", channelID, err)
		}
		s.logger.Info("order channel deleted", zap.String("order_id", orderID.String()), zap.String("channel_id", channelID))
		s.publish(ctx, events.Event{
			Type:    events.EventChannelDeleted,
			OrderID: orderID,
			Payload: events.ChannelDeletedPayload{ChannelID: channelID},
		})
		return nil
	}
	scheduled := s.scheduler.Schedule(deleteKey(channelID), delay, func(ctx context.Context) error {
		err := remove(ctx)
		if err != nil {
			s.metrics.RecordEffectFailure(string(lifecycle.EffectScheduleDelete))
			s.publish(ctx, events.Event{
				Type:    events.EventSideEffectFailed,
				OrderID: orderID,
				Payload: events.SideEffectFailedPayload{
					Effect:    string(lifecycle.EffectScheduleDelete),
					ChannelID: channelID,
					Error:     err.Error(),
				},
			})
		}
		return err
	})
	if scheduled {
		return nil
	}
	return remove(ctx)
}

// CancelDeletion stops a pending grace deletion for the channel.
func (s *OrderService) CancelDeletion(channelID string) bool {
	return s.scheduler.Cancel(deleteKey(channelID))
}

func (s *OrderService) reportFailure(ctx context.Context, run *execution, effect lifecycle.Effect, cause error) error {
	s.logger.Error("side effect failed",
		zap.String("order_id", run.orderID.String()),
		zap.String("effect", string(effect.Kind)),
		zap.String("channel_id", run.channelID),
		zap.Error(cause))
	s.metrics.RecordEffectFailure(string(effect.Kind))
	s.publish(ctx, events.Event{
		Type:    events.EventSideEffectFailed,
		OrderID: run.orderID,
		ActorID: run.cmd.ActorID,
		Payload: events.SideEffectFailedPayload{
			Effect:    string(effect.Kind),
			ChannelID: run.channelID,
			Error:     cause.Error(),
		},
	})

	err := apperrors.NewSideEffectFailed(failureText(run.decision.Event, effect.Kind, cause), cause)
	return s.gateway.Reply(ctx, run.cmd, apperrors.ToDomainError(err).Message)
}

func failureText(event lifecycle.Event, kind lifecycle.EffectKind, cause error) string {
	if errors.Is(cause, platform.ErrNotFound) {
		return fmt.Sprintf("Could not finish %s: the order channel no longer exists.", event.Label())
	}
	switch kind {
	case lifecycle.EffectAllocateID:
		return "Could not allocate an order number. Please try again later."
	case lifecycle.EffectCreateChannel:
		return "Could not create your order channel. Please try again later."
	}
	return fmt.Sprintf("Could not finish %s. Please contact an admin.", event.Label())
}

func (s *OrderService) render(run *execution, text string) string {
	requester := ""
	if run.requesterID != "" {
		requester = s.gateway.Mention(run.requesterID)
	}
	return strings.NewReplacer(
		lifecycle.PlaceholderRequester, requester,
		lifecycle.PlaceholderChannel, s.gateway.ChannelMention(run.channelID),
		lifecycle.PlaceholderOrder, run.orderID.String(),
	).Replace(text)
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func deleteKey(channelID string) string { return "delete:" + channelID }
