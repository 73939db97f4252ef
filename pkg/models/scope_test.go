package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoversWildcardAxes(t *testing.T) {
	hubWide := Scope{HubID: "h1"}

	// Empty binding axes match any query value.
	assert.True(t, hubWide.Covers(Scope{HubID: "h1", ServerID: "s1", ChannelID: "c1"}))
	assert.True(t, hubWide.Covers(Scope{HubID: "h1", ServerID: "s2"}))
	assert.False(t, hubWide.Covers(Scope{HubID: "h2", ServerID: "s1"}))
}

func TestCoversExactAxes(t *testing.T) {
	channelScoped := Scope{HubID: "h1", ServerID: "s1", ChannelID: "c1"}

	assert.True(t, channelScoped.Covers(Scope{HubID: "h1", ServerID: "s1", ChannelID: "c1"}))
	assert.False(t, channelScoped.Covers(Scope{HubID: "h1", ServerID: "s1", ChannelID: "c2"}))
	assert.False(t, channelScoped.Covers(Scope{HubID: "h1", ServerID: "s2", ChannelID: "c1"}))
}

func TestCoversUncheckedQueryAxis(t *testing.T) {
	serverScoped := Scope{HubID: "h1", ServerID: "s1"}

	// A query that leaves the channel axis empty is not checking it.
	assert.True(t, serverScoped.Covers(Scope{HubID: "h1", ServerID: "s1"}))
	// A channel-scoped binding does not cover a server-wide query axis
	// mismatch, but an unchecked axis on the query side passes.
	channelScoped := Scope{HubID: "h1", ServerID: "s1", ChannelID: "c1"}
	assert.True(t, channelScoped.Covers(Scope{HubID: "h1", ServerID: "s1"}))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Scope{}.IsEmpty())
	assert.False(t, Scope{HubID: "h1"}.IsEmpty())
	assert.False(t, Scope{ChannelID: "c1"}.IsEmpty())
}

func TestPermissionMatrix(t *testing.T) {
	// Hub admin and space owner carry the identical maximal set.
	assert.ElementsMatch(t, AllowedActions(RoleHubAdmin), AllowedActions(RoleSpaceOwner))

	// Moderators: kick and redact but no ban, no lock, no role management.
	assert.True(t, ActionAllowed(RoleSpaceModerator, ActionModerationKick))
	assert.True(t, ActionAllowed(RoleSpaceModerator, ActionModerationRedact))
	assert.True(t, ActionAllowed(RoleSpaceModerator, ActionChannelSlowMode))
	assert.False(t, ActionAllowed(RoleSpaceModerator, ActionModerationBan))
	assert.False(t, ActionAllowed(RoleSpaceModerator, ActionModerationUnban))
	assert.False(t, ActionAllowed(RoleSpaceModerator, ActionChannelLock))
	assert.False(t, ActionAllowed(RoleSpaceModerator, ActionChannelUnlock))
	assert.False(t, ActionAllowed(RoleSpaceModerator, ActionRoleGrant))

	// Members may only request voice tokens.
	assert.Equal(t, []Action{ActionVoiceToken}, AllowedActions(RoleMember))

	// Unknown roles have no actions.
	assert.Empty(t, AllowedActions(Role("nonsense")))
	assert.False(t, ActionAllowed(Role("nonsense"), ActionVoiceToken))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleHubAdmin))
	assert.True(t, ValidRole(RoleMember))
	assert.False(t, ValidRole(Role("admin")))
	assert.False(t, ValidRole(Role("")))
}
