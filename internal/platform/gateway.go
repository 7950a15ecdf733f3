// Package platform describes what the order workflow needs from the chat
// platform. Adapters live in subpackages.
package platform

import (
	"context"
	"errors"

	"github.com/spec-kit/order-desk/internal/domain"
)

// ErrNotFound is returned when the target channel, category or member no longer exists.
var ErrNotFound = errors.New("platform object not found")

// Command is one inbound slash-command invocation.
type Command struct {
	// InteractionID identifies the invocation for private replies.
	InteractionID string
	Name          string
	ActorID       string
	ChannelID     string
	ChannelName   string
	// Category is the name of the channel's parent category, empty when
	// the channel has none.
	Category string
	GuildID  string
}

// CommandHandler consumes inbound commands.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// Gateway is the set of platform calls the orchestrator issues.
type Gateway interface {
	// CreatePrivateChannel creates a text channel hidden from everyone
	// except visibleTo, who may read and write.
	CreatePrivateChannel(ctx context.Context, guildID, name string, visibleTo []string) (string, error)
	SendMessage(ctx context.Context, channelID, text string) error
	DeleteChannel(ctx context.Context, channelID string) error
	// MoveToCategory moves the channel under the named category, creating
	// the category first when the guild has none by that name.
	MoveToCategory(ctx context.Context, guildID, channelID, category string) error
	SetMemberWritePermission(ctx context.Context, channelID, memberID string, allowed bool) error
	ChannelMembers(ctx context.Context, guildID, channelID string) ([]domain.Member, error)
	// Reply answers the invoking actor privately.
	Reply(ctx context.Context, cmd Command, text string) error

	Mention(userID string) string
	ChannelMention(channelID string) string
}
