package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-desk/internal/access"
	"github.com/spec-kit/order-desk/internal/domain"
	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

func newTestMachine() *Machine {
	return NewMachine(access.NewPolicy([]string{"A", "B"}), Settings{
		ContactEmail:     "orders@example.com",
		ArchiveCategory:  "Archived Orders",
		GraceDelay:       5 * time.Second,
		AnnounceFeedback: true,
	})
}

func members(ids ...string) MemberLister {
	return func() ([]domain.Member, error) {
		out := make([]domain.Member, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.Member{ID: id, Bot: id == "C"})
		}
		return out, nil
	}
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func TestParseEvent(t *testing.T) {
	tests := map[string]Event{
		"open":          EventOpen,
		"start":         EventOpen,
		"Doable":        EventMarkDoable,
		"markDoable":    EventMarkDoable,
		"notdoable":     EventMarkNotDoable,
		"markNotDoable": EventMarkNotDoable,
		" revision ":    EventRequestRevision,
		"complete":      EventComplete,
	}
	for name, want := range tests {
		got, ok := ParseEvent(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseEvent("close")
	assert.False(t, ok)
}

func TestDecideOpen(t *testing.T) {
	m := newTestMachine()

	d, err := m.Decide(Request{Event: EventOpen, ActorID: "D", InIntake: true})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStateOpen, d.To)
	assert.Equal(t, domain.OrderState(""), d.From)
	assert.Equal(t, "D", d.RequesterID)
	assert.Equal(t, []EffectKind{
		EffectAllocateID, EffectCreateChannel, EffectRecord, EffectPost, EffectReply, EffectPost,
	}, kinds(d.Effects))
	assert.Equal(t, []string{"D", "A", "B"}, d.Effects[1].MemberIDs)
	assert.Equal(t, TargetOrderChannel, d.Effects[3].Target)
	assert.Equal(t, TargetFeedback, d.Effects[5].Target)
}

func TestDecideOpenByAdminDoesNotDuplicateVisibility(t *testing.T) {
	d, err := newTestMachine().Decide(Request{Event: EventOpen, ActorID: "B", InIntake: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, d.Effects[1].MemberIDs)
}

func TestDecideOpenWithoutFeedback(t *testing.T) {
	m := NewMachine(access.NewPolicy([]string{"A"}), Settings{})
	d, err := m.Decide(Request{Event: EventOpen, ActorID: "D", InIntake: true})
	require.NoError(t, err)
	for _, e := range d.Effects {
		assert.NotEqual(t, TargetFeedback, e.Target)
	}
}

func TestDecideOpenOutsideIntake(t *testing.T) {
	d, err := newTestMachine().Decide(Request{Event: EventOpen, ActorID: "D", InOrderChannel: true})
	require.Error(t, err)
	assertCode(t, err, apperrors.CodeContextViolation)
	assert.Empty(t, d.Effects)
}

func TestDecideContextCheckComesFirst(t *testing.T) {
	// A non-admin outside an order channel gets the context notice, not the role notice.
	_, err := newTestMachine().Decide(Request{Event: EventMarkDoable, ActorID: "D", InIntake: true, Current: domain.OrderStateOpen})
	assertCode(t, err, apperrors.CodeContextViolation)
}

func TestDecideRoleGate(t *testing.T) {
	m := newTestMachine()
	for _, ev := range []Event{EventMarkDoable, EventMarkNotDoable, EventComplete} {
		t.Run(string(ev), func(t *testing.T) {
			called := false
			lister := func() ([]domain.Member, error) {
				called = true
				return nil, nil
			}
			d, err := m.Decide(Request{Event: ev, ActorID: "D", InOrderChannel: true, Current: domain.OrderStateOpen, Members: lister})
			require.Error(t, err)
			assertCode(t, err, apperrors.CodeForbidden)
			assert.Empty(t, d.Effects)
			assert.False(t, called, "members must not be loaded after a role violation")
		})
	}
}

func TestDecideMarkDoable(t *testing.T) {
	d, err := newTestMachine().Decide(Request{
		Event: EventMarkDoable, ActorID: "A", InOrderChannel: true,
		Current: domain.OrderStateOpen, Members: members("A", "B", "C", "D"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateDoable, d.To)
	assert.Equal(t, "D", d.RequesterID)
	assert.Equal(t, []EffectKind{EffectRecord, EffectReply, EffectPost}, kinds(d.Effects))
	assert.Contains(t, d.Effects[2].Text, "orders@example.com")
	assert.Contains(t, d.Effects[2].Text, PlaceholderRequester)
}

func TestDecideRequesterNotFound(t *testing.T) {
	for _, ev := range []Event{EventMarkDoable, EventMarkNotDoable} {
		t.Run(string(ev), func(t *testing.T) {
			d, err := newTestMachine().Decide(Request{
				Event: ev, ActorID: "A", InOrderChannel: true,
				Current: domain.OrderStateOpen, Members: members("A", "B"),
			})
			require.Error(t, err)
			assertCode(t, err, apperrors.CodeRequesterNotFound)
			assert.Empty(t, d.Effects)
		})
	}
}

func TestDecideMemberLookupFailure(t *testing.T) {
	boom := errors.New("gateway down")
	_, err := newTestMachine().Decide(Request{
		Event: EventMarkDoable, ActorID: "A", InOrderChannel: true, Current: domain.OrderStateOpen,
		Members: func() ([]domain.Member, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestDecideMarkNotDoable(t *testing.T) {
	d, err := newTestMachine().Decide(Request{
		Event: EventMarkNotDoable, ActorID: "B", InOrderChannel: true,
		Current: domain.OrderStateOpen, Members: members("D", "A"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateNotDoable, d.To)
	assert.Equal(t, []EffectKind{EffectRecord, EffectReply, EffectPost, EffectScheduleDelete}, kinds(d.Effects))
	assert.Equal(t, 5*time.Second, d.Effects[3].Delay)
}

func TestDecideRequestRevision(t *testing.T) {
	m := newTestMachine()
	for _, state := range []domain.OrderState{domain.OrderStateOpen, domain.OrderStateDoable} {
		d, err := m.Decide(Request{
			Event: EventRequestRevision, ActorID: "D", InOrderChannel: true,
			Current: state, Members: members("A", "D"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStateOpen, d.To)
		assert.Equal(t, state, d.From)
	}

	_, err := m.Decide(Request{
		Event: EventRequestRevision, ActorID: "A", InOrderChannel: true,
		Current: domain.OrderStateOpen, Members: members("A", "D"),
	})
	assertCode(t, err, apperrors.CodeForbidden, "admins are not requesters")

	_, err = m.Decide(Request{
		Event: EventRequestRevision, ActorID: "E", InOrderChannel: true,
		Current: domain.OrderStateOpen, Members: members("A", "D", "E"),
	})
	assertCode(t, err, apperrors.CodeForbidden, "only the resolved requester may ask")
}

func TestDecideComplete(t *testing.T) {
	m := newTestMachine()

	d, err := m.Decide(Request{
		Event: EventComplete, ActorID: "A", InOrderChannel: true,
		Current: domain.OrderStateDoable, Members: members("A", "C", "D"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateCompleted, d.To)
	assert.Equal(t, []EffectKind{EffectRecord, EffectArchive, EffectSetWrite, EffectReply, EffectPost}, kinds(d.Effects))
	assert.Equal(t, "Archived Orders", d.Effects[1].Category)
	assert.Equal(t, "D", d.Effects[2].MemberID)
	assert.False(t, d.Effects[2].Allowed)

	d, err = m.Decide(Request{
		Event: EventComplete, ActorID: "A", InOrderChannel: true,
		Current: domain.OrderStateOpen, Members: members("A", "B"),
	})
	require.NoError(t, err, "completion does not need a requester")
	assert.Equal(t, []EffectKind{EffectRecord, EffectArchive, EffectReply, EffectPost}, kinds(d.Effects))
}

func TestDecideUnavailableTransitions(t *testing.T) {
	m := newTestMachine()
	cases := []struct {
		event Event
		state domain.OrderState
		actor string
	}{
		{EventMarkDoable, domain.OrderStateDoable, "A"},
		{EventMarkNotDoable, domain.OrderStateDoable, "A"},
		{EventMarkDoable, domain.OrderStateCompleted, "A"},
		{EventComplete, domain.OrderStateCompleted, "A"},
		{EventComplete, domain.OrderStateNotDoable, "A"},
		{EventRequestRevision, domain.OrderStateCompleted, "D"},
		{EventRequestRevision, domain.OrderStateNotDoable, "D"},
	}
	for _, tc := range cases {
		t.Run(string(tc.event)+"/"+string(tc.state), func(t *testing.T) {
			d, err := m.Decide(Request{
				Event: tc.event, ActorID: tc.actor, InOrderChannel: true,
				Current: tc.state, Members: members("A", "D"),
			})
			require.Error(t, err)
			assertCode(t, err, apperrors.CodeTransitionUnavailable)
			assert.Empty(t, d.Effects)
			assert.False(t, CanTransition(tc.state, tc.event))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.OrderStateOpen, EventMarkDoable))
	assert.True(t, CanTransition(domain.OrderStateDoable, EventComplete))
	assert.True(t, CanTransition(domain.OrderStateDoable, EventRequestRevision))
	assert.False(t, CanTransition(domain.OrderStateOpen, EventOpen))
	assert.False(t, CanTransition(domain.OrderStateOpen, Event("close")))
}

func assertCode(t *testing.T, err error, code string, msgAndArgs ...any) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if assert.ErrorAs(t, err, &domainErr, msgAndArgs...) {
		assert.Equal(t, code, domainErr.Code, msgAndArgs...)
	}
}
