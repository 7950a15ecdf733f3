// Package access decides who an actor is relative to an order: an
// administrator, the order's requester, or neither.
package access

import (
	"errors"
	"sort"

	"github.com/spec-kit/order-desk/internal/domain"
)

// ErrRequesterNotFound is returned when a channel has no member that could be the requester.
var ErrRequesterNotFound = errors.New("requester not found in channel")

// Policy holds the static admin set.
type Policy struct {
	admins map[string]struct{}
}

// NewPolicy builds a policy for the given admin identities. Blank ids are ignored.
func NewPolicy(adminIDs []string) *Policy {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id == "" {
			continue
		}
		admins[id] = struct{}{}
	}
	return &Policy{admins: admins}
}

// IsAdmin reports whether actorID is a configured administrator.
func (p *Policy) IsAdmin(actorID string) bool {
	_, ok := p.admins[actorID]
	return ok
}

// Admins returns the admin ids in a stable order.
func (p *Policy) Admins() []string {
	out := make([]string, 0, len(p.admins))
	for id := range p.admins {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResolveRequester returns the first member that is neither an admin nor
// a bot. Ordering follows the platform's member enumeration, which the
// platform does not promise to keep stable; with a single requester per
// channel the result is the same either way.
func (p *Policy) ResolveRequester(members []domain.Member) (domain.Member, error) {
	for _, m := range members {
		if m.Bot || p.IsAdmin(m.ID) {
			continue
		}
		return m, nil
	}
	return domain.Member{}, ErrRequesterNotFound
}
