package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/order-desk/internal/lifecycle"
	"github.com/spec-kit/order-desk/internal/platform"
)

func TestSlashCommandsMapToEvents(t *testing.T) {
	seen := map[lifecycle.Event]bool{}
	for _, c := range slashCommands() {
		ev, ok := lifecycle.ParseEvent(c.Name)
		require.True(t, ok, c.Name)
		seen[ev] = true
		assert.NotEmpty(t, c.Description)
	}
	for _, ev := range lifecycle.Events() {
		assert.True(t, seen[ev], ev)
	}
}

func TestCommandFromInteraction(t *testing.T) {
	i := &discordgo.Interaction{
		ID:        "int-1",
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "c1",
		GuildID:   "g1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "D"}},
		Data:      discordgo.ApplicationCommandInteractionData{Name: "doable"},
	}

	cmd := commandFromInteraction(i, channelInfo{name: "st-01", category: "Archived Orders"})

	assert.Equal(t, platform.Command{
		InteractionID: "int-1",
		Name:          "doable",
		ActorID:       "D",
		ChannelID:     "c1",
		ChannelName:   "st-01",
		Category:      "Archived Orders",
		GuildID:       "g1",
	}, cmd)
}

func TestPrivateOverwrites(t *testing.T) {
	overwrites := privateOverwrites("g1", []string{"D", "A"})

	require.Len(t, overwrites, 3)
	assert.Equal(t, "g1", overwrites[0].ID)
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, overwrites[0].Type)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), overwrites[0].Deny)
	assert.Equal(t, []string{"D", "A"}, memberOverwriteIDs(overwrites))
}

func TestMemberPermissionsKeepVisibility(t *testing.T) {
	allow, deny := memberPermissions(false)
	assert.NotZero(t, allow&discordgo.PermissionViewChannel)
	assert.NotZero(t, deny&discordgo.PermissionSendMessages)

	allow, deny = memberPermissions(true)
	assert.NotZero(t, allow&discordgo.PermissionSendMessages)
	assert.Zero(t, deny)
}

func TestMemberOverwriteIDsSkipsHiddenMembers(t *testing.T) {
	ids := memberOverwriteIDs([]*discordgo.PermissionOverwrite{
		{ID: "g1", Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionViewChannel},
		{ID: "X", Type: discordgo.PermissionOverwriteTypeMember, Deny: discordgo.PermissionViewChannel},
		{ID: "D", Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel},
	})
	assert.Equal(t, []string{"D"}, ids)
}

func TestFindCategory(t *testing.T) {
	channels := []*discordgo.Channel{
		{ID: "1", Name: "Archived Orders", Type: discordgo.ChannelTypeGuildText},
		{ID: "2", Name: "Archived Orders", Type: discordgo.ChannelTypeGuildCategory},
	}
	id, ok := findCategory(channels, "Archived Orders")
	assert.True(t, ok)
	assert.Equal(t, "2", id)

	_, ok = findCategory(channels, "archived orders")
	assert.False(t, ok)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	unknownChannel := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: codeUnknownChannel, Message: "Unknown Channel"},
	}
	assert.ErrorIs(t, translate(unknownChannel), platform.ErrNotFound)

	missingAccess := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: 50001, Message: "Missing Access"},
	}
	assert.NotErrorIs(t, translate(missingAccess), platform.ErrNotFound)

	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain))
}
