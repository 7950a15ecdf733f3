// Package lifecycle decides whether a command may move an order to its
// next state and which platform side effects that move requires. It
// performs no I/O of its own beyond the member lookup callers inject.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/order-desk/internal/access"
	"github.com/spec-kit/order-desk/internal/domain"
	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

// Event is a lifecycle trigger, one per slash command.
type Event string

const (
	EventOpen            Event = "open"
	EventMarkDoable      Event = "markDoable"
	EventMarkNotDoable   Event = "markNotDoable"
	EventRequestRevision Event = "requestRevision"
	EventComplete        Event = "complete"
)

var eventAliases = map[string]Event{
	"open":            EventOpen,
	"start":           EventOpen,
	"markdoable":      EventMarkDoable,
	"doable":          EventMarkDoable,
	"marknotdoable":   EventMarkNotDoable,
	"notdoable":       EventMarkNotDoable,
	"requestrevision": EventRequestRevision,
	"revision":        EventRequestRevision,
	"complete":        EventComplete,
}

// ParseEvent maps a command name to its event. Matching ignores case.
func ParseEvent(name string) (Event, bool) {
	ev, ok := eventAliases[strings.ToLower(strings.TrimSpace(name))]
	return ev, ok
}

// Events lists every event in command-registration order.
func Events() []Event {
	return []Event{EventOpen, EventMarkDoable, EventMarkNotDoable, EventRequestRevision, EventComplete}
}

// Label is the human wording used in notices.
func (e Event) Label() string {
	switch e {
	case EventOpen:
		return "opening an order"
	case EventMarkDoable:
		return "marking it as doable"
	case EventMarkNotDoable:
		return "marking it as not doable"
	case EventRequestRevision:
		return "requesting a revision"
	case EventComplete:
		return "completing it"
	}
	return string(e)
}

type role int

const (
	roleAnyone role = iota
	roleAdmin
	roleRequester
)

type transition struct {
	from []domain.OrderState
	to   domain.OrderState
	role role
	// notifies marks events whose message is addressed to the requester.
	notifies bool
}

var transitions = map[Event]transition{
	EventOpen: {
		to:   domain.OrderStateOpen,
		role: roleAnyone,
	},
	EventMarkDoable: {
		from:     []domain.OrderState{domain.OrderStateOpen},
		to:       domain.OrderStateDoable,
		role:     roleAdmin,
		notifies: true,
	},
	EventMarkNotDoable: {
		from:     []domain.OrderState{domain.OrderStateOpen},
		to:       domain.OrderStateNotDoable,
		role:     roleAdmin,
		notifies: true,
	},
	EventRequestRevision: {
		from:     []domain.OrderState{domain.OrderStateOpen, domain.OrderStateDoable},
		to:       domain.OrderStateOpen,
		role:     roleRequester,
		notifies: true,
	},
	EventComplete: {
		from: []domain.OrderState{domain.OrderStateOpen, domain.OrderStateDoable},
		to:   domain.OrderStateCompleted,
		role: roleAdmin,
	},
}

// CanTransition reports whether event is listed for the given state.
func CanTransition(current domain.OrderState, event Event) bool {
	t, ok := transitions[event]
	if !ok || event == EventOpen {
		return false
	}
	return slices.Contains(t.from, current)
}

// Settings carries the configured wording and timings.
type Settings struct {
	ContactEmail    string
	ArchiveCategory string
	GraceDelay      time.Duration
	// AnnounceFeedback enables the new-order notice in the feedback channel.
	AnnounceFeedback bool
}

// MemberLister loads the members of the channel the command ran in.
type MemberLister func() ([]domain.Member, error)

// Request is everything the machine needs to judge one command.
type Request struct {
	Event          Event
	ActorID        string
	InIntake       bool
	InOrderChannel bool
	// Current is ignored for EventOpen.
	Current domain.OrderState
	Members MemberLister
}

// Decision is an accepted transition and its ordered side effects.
type Decision struct {
	Event       Event
	From        domain.OrderState
	To          domain.OrderState
	RequesterID string
	Effects     []Effect
}

// Machine validates commands against the transition table.
type Machine struct {
	policy   *access.Policy
	settings Settings
}

// NewMachine builds a machine for the given admin policy.
func NewMachine(policy *access.Policy, settings Settings) *Machine {
	return &Machine{policy: policy, settings: settings}
}

// Decide checks context, role, availability and requester resolution in
// that order. The first violation is returned as a *apperrors.DomainError
// whose Message is safe to show the actor; any other error comes from the
// member lookup.
func (m *Machine) Decide(req Request) (Decision, error) {
	t, ok := transitions[req.Event]
	if !ok {
		return Decision{}, apperrors.NewValidationError("unknown command", map[string]any{"event": string(req.Event)})
	}

	if req.Event == EventOpen {
		if !req.InIntake {
			return Decision{}, apperrors.NewContextViolation(msgWrongIntake)
		}
		return m.decideOpen(req), nil
	}

	if !req.InOrderChannel {
		return Decision{}, apperrors.NewContextViolation(msgWrongChannel)
	}

	isAdmin := m.policy.IsAdmin(req.ActorID)
	switch t.role {
	case roleAdmin:
		if !isAdmin {
			return Decision{}, apperrors.NewForbidden(msgNotAdmin)
		}
	case roleRequester:
		if isAdmin {
			return Decision{}, apperrors.NewForbidden(msgNotRequester)
		}
	}

	if !CanTransition(req.Current, req.Event) {
		return Decision{}, apperrors.NewTransitionUnavailable(unavailableText(req.Event, req.Current), map[string]any{
			"event": string(req.Event),
			"state": string(req.Current),
		})
	}

	requesterID, err := m.requester(req, t.notifies)
	if err != nil {
		return Decision{}, err
	}
	if t.role == roleRequester && requesterID != req.ActorID {
		return Decision{}, apperrors.NewForbidden(msgNotRequester)
	}

	d := Decision{
		Event:       req.Event,
		From:        req.Current,
		To:          t.to,
		RequesterID: requesterID,
	}

	switch req.Event {
	case EventMarkDoable:
		d.Effects = []Effect{
			record(),
			reply(msgAckDoable),
			post(TargetOrderChannel, doableText(m.settings.ContactEmail)),
		}
	case EventMarkNotDoable:
		d.Effects = []Effect{
			record(),
			reply(msgAckNotDoable),
			post(TargetOrderChannel, msgRejected),
			scheduleDelete(m.settings.GraceDelay),
		}
	case EventRequestRevision:
		d.Effects = []Effect{
			record(),
			reply(msgAckRevision),
			post(TargetOrderChannel, msgRevision),
		}
	case EventComplete:
		d.Effects = []Effect{record(), archive(m.settings.ArchiveCategory)}
		if requesterID != "" {
			d.Effects = append(d.Effects, setWrite(requesterID, false))
		}
		d.Effects = append(d.Effects, reply(msgAckComplete), post(TargetOrderChannel, msgClosed))
	}
	return d, nil
}

func (m *Machine) decideOpen(req Request) Decision {
	visible := []string{req.ActorID}
	for _, id := range m.policy.Admins() {
		if id != req.ActorID {
			visible = append(visible, id)
		}
	}
	effects := []Effect{
		allocateID(),
		createChannel(visible),
		record(),
		post(TargetOrderChannel, msgWelcome),
		reply(msgChannelReady),
	}
	if m.settings.AnnounceFeedback {
		effects = append(effects, post(TargetFeedback, msgOrderAnnounce))
	}
	return Decision{
		Event:       EventOpen,
		To:          domain.OrderStateOpen,
		RequesterID: req.ActorID,
		Effects:     effects,
	}
}

// requester resolves the requester from live channel membership. When
// required is false a missing requester yields "" instead of an error.
func (m *Machine) requester(req Request, required bool) (string, error) {
	if req.Members == nil {
		if required {
			return "", apperrors.NewRequesterNotFound(msgRequesterNotFound)
		}
		return "", nil
	}
	members, err := req.Members()
	if err != nil {
		return "", fmt.Errorf("list channel members: %w", err)
	}
	member, err := m.policy.ResolveRequester(members)
	if errors.Is(err, access.ErrRequesterNotFound) {
		if required {
			return "", apperrors.NewRequesterNotFound(msgRequesterNotFound)
		}
		return "", nil
	}
	return member.ID, err
}
