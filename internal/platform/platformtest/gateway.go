// Package platformtest provides an in-memory platform.Gateway for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/platform"
)

// Operation names recorded in Calls.
const (
	OpCreateChannel  = "create_channel"
	OpSendMessage    = "send_message"
	OpDeleteChannel  = "delete_channel"
	OpCreateCategory = "create_category"
	OpMoveChannel    = "move_channel"
	OpSetWrite       = "set_write"
	OpListMembers    = "list_members"
	OpReply          = "reply"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op        string
	ChannelID string
	Text      string
	MemberID  string
	Allowed   bool
}

// Channel is the fake's view of a text channel.
type Channel struct {
	ID       string
	GuildID  string
	Name     string
	Category string
	Members  []domain.Member
	// WriteDenied holds members whose send permission was revoked.
	WriteDenied map[string]bool
	Messages    []string
}

// Gateway records every call and keeps channels in memory.
type Gateway struct {
	mu         sync.Mutex
	nextID     int
	channels   map[string]*Channel
	categories map[string]map[string]bool
	bots       map[string]bool
	failures   map[string]error
	calls      []Call
}

// NewGateway returns an empty fake. botIDs are reported as automated members.
func NewGateway(botIDs ...string) *Gateway {
	bots := make(map[string]bool, len(botIDs))
	for _, id := range botIDs {
		bots[id] = true
	}
	return &Gateway{
		channels:   map[string]*Channel{},
		categories: map[string]map[string]bool{},
		bots:       bots,
		failures:   map[string]error{},
	}
}

// AddChannel registers an existing channel with the given member ids.
func (g *Gateway) AddChannel(guildID, channelID, name string, memberIDs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := &Channel{ID: channelID, GuildID: guildID, Name: name, WriteDenied: map[string]bool{}}
	for _, id := range memberIDs {
		ch.Members = append(ch.Members, domain.Member{ID: id, Bot: g.bots[id]})
	}
	g.channels[channelID] = ch
}

// AddCategory registers an existing category in a guild.
func (g *Gateway) AddCategory(guildID, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.category(guildID)[name] = true
}

// FailOn makes every later call of op return err. A nil err clears it.
func (g *Gateway) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// RemoveChannel simulates a channel deleted by someone else.
func (g *Gateway) RemoveChannel(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.channels, channelID)
}

// Channel returns a copy of the channel, if it exists.
func (g *Gateway) Channel(channelID string) (Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return Channel{}, false
	}
	cp := *ch
	cp.Members = append([]domain.Member(nil), ch.Members...)
	cp.Messages = append([]string(nil), ch.Messages...)
	cp.WriteDenied = make(map[string]bool, len(ch.WriteDenied))
	for k, v := range ch.WriteDenied {
		cp.WriteDenied[k] = v
	}
	return cp, true
}

// HasCategory reports whether the guild has the named category.
func (g *Gateway) HasCategory(guildID, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.categories[guildID][name]
}

// Calls returns the recorded calls in order.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallsOf returns the recorded calls for op.
func (g *Gateway) CallsOf(op string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Replies returns the private replies sent so far.
func (g *Gateway) Replies() []string {
	var out []string
	for _, c := range g.CallsOf(OpReply) {
		out = append(out, c.Text)
	}
	return out
}

func (g *Gateway) CreatePrivateChannel(ctx context.Context, guildID, name string, visibleTo []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpCreateChannel, Text: name})
	if err := g.failures[OpCreateChannel]; err != nil {
		return "", err
	}
	g.nextID++
	id := fmt.Sprintf("chan-%d", g.nextID)
	ch := &Channel{ID: id, GuildID: guildID, Name: name, WriteDenied: map[string]bool{}}
	for _, memberID := range visibleTo {
		ch.Members = append(ch.Members, domain.Member{ID: memberID, Bot: g.bots[memberID]})
	}
	g.channels[id] = ch
	return id, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpSendMessage, ChannelID: channelID, Text: text})
	if err := g.failures[OpSendMessage]; err != nil {
		return err
	}
	ch, ok := g.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	ch.Messages = append(ch.Messages, text)
	return nil
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpDeleteChannel, ChannelID: channelID})
	if err := g.failures[OpDeleteChannel]; err != nil {
		return err
	}
	if _, ok := g.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(g.channels, channelID)
	return nil
}

func (g *Gateway) MoveToCategory(ctx context.Context, guildID, channelID, category string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failures[OpMoveChannel]; err != nil {
		g.calls = append(g.calls, Call{Op: OpMoveChannel, ChannelID: channelID, Text: category})
		return err
	}
	ch, ok := g.channels[channelID]
	if !ok {
		g.calls = append(g.calls, Call{Op: OpMoveChannel, ChannelID: channelID, Text: category})
		return platform.ErrNotFound
	}
	if !g.category(guildID)[category] {
		g.calls = append(g.calls, Call{Op: OpCreateCategory, Text: category})
		g.category(guildID)[category] = true
	}
	g.calls = append(g.calls, Call{Op: OpMoveChannel, ChannelID: channelID, Text: category})
	ch.Category = category
	return nil
}

func (g *Gateway) SetMemberWritePermission(ctx context.Context, channelID, memberID string, allowed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpSetWrite, ChannelID: channelID, MemberID: memberID, Allowed: allowed})
	if err := g.failures[OpSetWrite]; err != nil {
		return err
	}
	ch, ok := g.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	ch.WriteDenied[memberID] = !allowed
	return nil
}

func (g *Gateway) ChannelMembers(ctx context.Context, guildID, channelID string) ([]domain.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpListMembers, ChannelID: channelID})
	if err := g.failures[OpListMembers]; err != nil {
		return nil, err
	}
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return append([]domain.Member(nil), ch.Members...), nil
}

func (g *Gateway) Reply(ctx context.Context, cmd platform.Command, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: OpReply, ChannelID: cmd.ChannelID, MemberID: cmd.ActorID, Text: text})
	return g.failures[OpReply]
}

func (g *Gateway) Mention(userID string) string { return "<@" + userID + ">" }

func (g *Gateway) ChannelMention(channelID string) string { return "<#" + channelID + ">" }

func (g *Gateway) category(guildID string) map[string]bool {
	cats, ok := g.categories[guildID]
	if !ok {
		cats = map[string]bool{}
		g.categories[guildID] = cats
	}
	return cats
}
