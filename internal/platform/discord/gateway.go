// Package discord adapts a discordgo session to platform.Gateway.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/config"
	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/lifecycle"
	"github.com/spec-kit/order-desk/internal/platform"
)

// Discord JSON error codes that mean the target is gone.
const (
	codeUnknownChannel = 10003
	codeUnknownMember  = 10007
	codeUnknownMessage = 10008
	codeUnknownUser    = 10013
)

const handleTimeout = 2 * time.Minute

var _ platform.Gateway = (*Gateway)(nil)

// Gateway talks to one Discord guild through a bot session.
type Gateway struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger

	// interactions holds in-flight invocations keyed by interaction id.
	interactions sync.Map

	categoryMu sync.Mutex
	removers   []func()
}

// New builds a gateway. Open connects it.
func New(cfg config.DiscordConfig, logger *zap.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{session: session, guildID: cfg.GuildID, logger: logger.Named("discord")}, nil
}

// Open connects to Discord, registers the slash commands and starts
// delivering invocations to handler.
func (g *Gateway) Open(ctx context.Context, handler platform.CommandHandler, admins []string) error {
	g.removers = append(g.removers,
		g.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			g.logger.Info("discord session ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
		}),
		g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			g.dispatch(handler, i.Interaction)
		}),
	)

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	if err := g.registerCommands(ctx); err != nil {
		return err
	}
	g.warnMissingAdmins(ctx, admins)
	return nil
}

// Close disconnects the session.
func (g *Gateway) Close() error {
	for _, remove := range g.removers {
		remove()
	}
	g.removers = nil
	return g.session.Close()
}

func (g *Gateway) registerCommands(ctx context.Context) error {
	appID := g.session.State.User.ID
	registered, err := g.session.ApplicationCommandBulkOverwrite(appID, g.guildID, slashCommands(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register slash commands: %w", err)
	}
	g.logger.Info("slash commands registered", zap.Int("count", len(registered)), zap.String("guild_id", g.guildID))
	return nil
}

// warnMissingAdmins logs configured admins that are not guild members;
// they are silently left out of new order channels otherwise.
func (g *Gateway) warnMissingAdmins(ctx context.Context, admins []string) {
	if g.guildID == "" {
		return
	}
	for _, id := range admins {
		if _, err := g.session.GuildMember(g.guildID, id, discordgo.WithContext(ctx)); err != nil {
			g.logger.Warn("admin not found in guild", zap.String("admin_id", id), zap.Error(err))
		}
	}
}

func (g *Gateway) dispatch(handler platform.CommandHandler, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	// Acknowledge at once; every reply is then an ephemeral follow-up.
	if err := g.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx)); err != nil {
		g.logger.Warn("acknowledge interaction", zap.String("interaction_id", i.ID), zap.Error(err))
	}

	cmd := commandFromInteraction(i, g.resolveChannel(ctx, i.ChannelID))
	g.interactions.Store(i.ID, i)
	defer g.interactions.Delete(i.ID)

	if err := handler.Handle(ctx, cmd); err != nil {
		g.logger.Error("command handling failed",
			zap.String("command", cmd.Name),
			zap.String("channel_id", cmd.ChannelID),
			zap.Error(err))
	}
}

// resolveChannel looks up the channel name and its parent category name.
// Lookup failures are logged and leave the fields empty.
func (g *Gateway) resolveChannel(ctx context.Context, channelID string) channelInfo {
	ch, err := g.lookupChannel(ctx, channelID)
	if err != nil {
		g.logger.Warn("resolve channel", zap.String("channel_id", channelID), zap.Error(err))
		return channelInfo{}
	}
	info := channelInfo{name: ch.Name}
	if ch.ParentID == "" {
		return info
	}
	parent, err := g.lookupChannel(ctx, ch.ParentID)
	if err != nil {
		g.logger.Warn("resolve channel category", zap.String("channel_id", channelID), zap.String("parent_id", ch.ParentID), zap.Error(err))
		return info
	}
	info.category = parent.Name
	return info
}

func (g *Gateway) lookupChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := g.session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return g.session.Channel(channelID, discordgo.WithContext(ctx))
}

func (g *Gateway) CreatePrivateChannel(ctx context.Context, guildID, name string, visibleTo []string) (string, error) {
	ch, err := g.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: privateOverwrites(guildID, visibleTo),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return ch.ID, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelID, text string) error {
	_, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *Gateway) MoveToCategory(ctx context.Context, guildID, channelID, category string) error {
	parentID, err := g.ensureCategory(ctx, guildID, category)
	if err != nil {
		return err
	}
	_, err = g.session.ChannelEdit(channelID, &discordgo.ChannelEdit{ParentID: parentID}, discordgo.WithContext(ctx))
	return translate(err)
}

// ensureCategory is serialized so that concurrent completions do not
// create the category twice.
func (g *Gateway) ensureCategory(ctx context.Context, guildID, name string) (string, error) {
	g.categoryMu.Lock()
	defer g.categoryMu.Unlock()

	channels, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	if id, ok := findCategory(channels, name); ok {
		return id, nil
	}
	created, err := g.session.GuildChannelCreate(guildID, name, discordgo.ChannelTypeGuildCategory, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	g.logger.Info("category created", zap.String("guild_id", guildID), zap.String("category", name))
	return created.ID, nil
}

func (g *Gateway) SetMemberWritePermission(ctx context.Context, channelID, memberID string, allowed bool) error {
	allow, deny := memberPermissions(allowed)
	err := g.session.ChannelPermissionSet(channelID, memberID, discordgo.PermissionOverwriteTypeMember, allow, deny, discordgo.WithContext(ctx))
	return translate(err)
}

// ChannelMembers lists the members granted access through member
// overwrites, which is how order channels are shared.
func (g *Gateway) ChannelMembers(ctx context.Context, guildID, channelID string) ([]domain.Member, error) {
	ch, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	ids := memberOverwriteIDs(ch.PermissionOverwrites)
	members := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		m, err := g.session.GuildMember(guildID, id, discordgo.WithContext(ctx))
		if err != nil {
			err = translate(err)
			if errors.Is(err, platform.ErrNotFound) {
				continue
			}
			return nil, err
		}
		members = append(members, domain.Member{ID: id, Bot: m.User != nil && m.User.Bot})
	}
	return members, nil
}

func (g *Gateway) Reply(ctx context.Context, cmd platform.Command, text string) error {
	val, ok := g.interactions.Load(cmd.InteractionID)
	if !ok {
		return fmt.Errorf("interaction %s is no longer active", cmd.InteractionID)
	}
	_, err := g.session.FollowupMessageCreate(val.(*discordgo.Interaction), true, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *Gateway) Mention(userID string) string { return "<@" + userID + ">" }

func (g *Gateway) ChannelMention(channelID string) string { return "<#" + channelID + ">" }

// slashNames holds the registered name and description per event.
var slashNames = map[lifecycle.Event]struct{ name, description string }{
	lifecycle.EventOpen:            {"start", "Begin a new request"},
	lifecycle.EventMarkDoable:      {"doable", "Admin command to mark the order as doable"},
	lifecycle.EventMarkNotDoable:   {"notdoable", "Admin command to mark the order as not doable"},
	lifecycle.EventRequestRevision: {"revision", "Request a revision"},
	lifecycle.EventComplete:        {"complete", "Admin command to complete and archive the order"},
}

func slashCommands() []*discordgo.ApplicationCommand {
	events := lifecycle.Events()
	commands := make([]*discordgo.ApplicationCommand, 0, len(events))
	for _, ev := range events {
		cmd, ok := slashNames[ev]
		if !ok {
			cmd.name, cmd.description = strings.ToLower(string(ev)), ev.Label()
		}
		commands = append(commands, &discordgo.ApplicationCommand{Name: cmd.name, Description: cmd.description})
	}
	return commands
}

type channelInfo struct {
	name     string
	category string
}

func commandFromInteraction(i *discordgo.Interaction, ch channelInfo) platform.Command {
	cmd := platform.Command{
		InteractionID: i.ID,
		ChannelID:     i.ChannelID,
		ChannelName:   ch.name,
		Category:      ch.category,
		GuildID:       i.GuildID,
	}
	if i.Type == discordgo.InteractionApplicationCommand {
		cmd.Name = i.ApplicationCommandData().Name
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		cmd.ActorID = i.Member.User.ID
	case i.User != nil:
		cmd.ActorID = i.User.ID
	}
	return cmd
}

// privateOverwrites hides the channel from @everyone (whose role id is the
// guild id) and opens it to each listed member.
func privateOverwrites(guildID string, visibleTo []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}
	for _, id := range visibleTo {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	return overwrites
}

// memberPermissions keeps the channel visible while toggling send.
func memberPermissions(allowed bool) (allow, deny int64) {
	if allowed {
		return discordgo.PermissionViewChannel | discordgo.PermissionSendMessages, 0
	}
	return discordgo.PermissionViewChannel, discordgo.PermissionSendMessages
}

func memberOverwriteIDs(overwrites []*discordgo.PermissionOverwrite) []string {
	var ids []string
	for _, o := range overwrites {
		if o.Type != discordgo.PermissionOverwriteTypeMember {
			continue
		}
		if o.Allow&discordgo.PermissionViewChannel == 0 {
			continue
		}
		ids = append(ids, o.ID)
	}
	return ids
}

func findCategory(channels []*discordgo.Channel, name string) (string, bool) {
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == name {
			return ch.ID, true
		}
	}
	return "", false
}

// translate maps "unknown object" API failures to platform.ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case codeUnknownChannel, codeUnknownMember, codeUnknownMessage, codeUnknownUser:
			return fmt.Errorf("%w: %s", platform.ErrNotFound, restErr.Message.Message)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
	}
	return err
}
