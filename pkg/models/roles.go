package models

import "time"

// Role is the closed set of authority levels. Roles are ordered by
// capability within a scope level but not across levels: a space owner
// is not a hub admin.
type Role string

const (
	RoleHubAdmin       Role = "hub_admin"
	RoleSpaceOwner     Role = "space_owner"
	RoleSpaceModerator Role = "space_moderator"
	RoleMember         Role = "member"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleHubAdmin, RoleSpaceOwner, RoleSpaceModerator, RoleMember:
		return true
	}
	return false
}

// Action is the closed set of privileged operations gated by the
// permission matrix. New actions must be added here and placed in the
// matrix; handlers never pass free-form strings.
type Action string

const (
	ActionModerationKick   Action = "moderation.kick"
	ActionModerationBan    Action = "moderation.ban"
	ActionModerationUnban  Action = "moderation.unban"
	ActionModerationRedact Action = "moderation.redact"

	ActionChannelLock     Action = "channel.lock"
	ActionChannelUnlock   Action = "channel.unlock"
	ActionChannelSlowMode Action = "channel.slow_mode"

	ActionRoleGrant  Action = "role.grant"
	ActionRoleRevoke Action = "role.revoke"

	ActionSpaceCreate   Action = "space.create"
	ActionSpaceDelegate Action = "space.delegate"
	ActionSpaceTransfer Action = "space.transfer_ownership"
	ActionChannelCreate Action = "channel.create"

	ActionVoiceToken Action = "voice.token"
)

// rolePermissions is the permission matrix: pure data, no logic.
// Policy changes are edits to this table, never to the matcher.
// Hub admin and space owner carry the identical maximal set; the
// moderator set excludes ban/unban and posting-restriction changes
// (lock/unlock); members may only request voice/session tokens.
var rolePermissions = map[Role][]Action{
	RoleHubAdmin: {
		ActionModerationKick, ActionModerationBan, ActionModerationUnban, ActionModerationRedact,
		ActionChannelLock, ActionChannelUnlock, ActionChannelSlowMode,
		ActionRoleGrant, ActionRoleRevoke,
		ActionSpaceCreate, ActionSpaceDelegate, ActionSpaceTransfer, ActionChannelCreate,
		ActionVoiceToken,
	},
	RoleSpaceOwner: {
		ActionModerationKick, ActionModerationBan, ActionModerationUnban, ActionModerationRedact,
		ActionChannelLock, ActionChannelUnlock, ActionChannelSlowMode,
		ActionRoleGrant, ActionRoleRevoke,
		ActionSpaceCreate, ActionSpaceDelegate, ActionSpaceTransfer, ActionChannelCreate,
		ActionVoiceToken,
	},
	RoleSpaceModerator: {
		ActionModerationKick, ActionModerationRedact, ActionChannelSlowMode,
		ActionVoiceToken,
	},
	RoleMember: {
		ActionVoiceToken,
	},
}

// AllowedActions returns the action set for a role. The returned slice
// must not be mutated.
func AllowedActions(role Role) []Action {
	return rolePermissions[role]
}

// ActionAllowed reports whether the permission matrix grants action to role.
func ActionAllowed(role Role, action Action) bool {
	for _, a := range rolePermissions[role] {
		if a == action {
			return true
		}
	}
	return false
}

// RoleBinding grants a role to a subject over a scope. Static bindings
// are persisted and immutable except for deletion; ownership- and
// delegation-derived bindings are synthesized at evaluation time and
// never written back.
type RoleBinding struct {
	ID        string    `json:"id,omitempty" db:"id"`
	Subject   string    `json:"subject" db:"subject_user_id"`
	Role      Role      `json:"role" db:"role"`
	Scope     Scope     `json:"scope"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}
