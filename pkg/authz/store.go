package authz

import "creator-hub-backend/pkg/models"

// Store is the slice of persistence the authorization core consumes.
// *database.PostgresDatabase satisfies it; tests use an in-memory fake.
type Store interface {
	GetHub(hubID string) (*models.Hub, error)
	GetServer(serverID string) (*models.Server, error)
	GetChannel(channelID string) (*models.Channel, error)

	ListRoleBindingsBySubject(subject string) ([]models.RoleBinding, error)

	// FindActiveSpaceOwnerAssignment returns (nil, nil) when no active
	// assignment exists for the pair.
	FindActiveSpaceOwnerAssignment(serverID, userID string) (*models.SpaceOwnerAssignment, error)
	// ExpireStaleSpaceOwnerAssignments must be idempotent: flipping an
	// already-expired assignment is a no-op.
	ExpireStaleSpaceOwnerAssignments(serverID, userID string) error

	InsertModerationAction(rec *models.ModerationAction) error
}
