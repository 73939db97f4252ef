package database

import (
	"errors"

	"creator-hub-backend/pkg/models"

	"github.com/lib/pq"
)

// ErrNotFound is returned for lookups whose target row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when an insert-if-absent lost the race to
// another writer. Callers that tolerate the race check IsDuplicateKey.
var ErrDuplicateKey = errors.New("duplicate key")

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey reports whether err is a unique-constraint violation,
// either our sentinel or a raw Postgres 23505.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// DatabaseInterface is the persistence contract for the authorization
// core and the HTTP handlers. Durability and mutual exclusion
// (idempotency-key uniqueness, one active delegation per (server, user),
// atomic ownership transfer) are enforced by the store's own
// constraints, never by in-process locks: multiple instances of this
// process may run concurrently.
type DatabaseInterface interface {
	// Users
	GetUserByID(id string) (*models.User, error)

	// Hubs
	CreateHub(h *models.Hub) error
	GetHub(hubID string) (*models.Hub, error)

	// Servers (spaces)
	CreateServer(s *models.Server) error
	GetServer(serverID string) (*models.Server, error)
	ListServersByHub(hubID string) ([]models.Server, error)
	// TransferServerOwnership swaps the owner in a single row-scoped
	// update; the previous owner's implicit authority disappears the
	// instant the update commits.
	TransferServerOwnership(serverID, newOwnerUserID string) error

	// Channels
	CreateChannel(c *models.Channel) error
	GetChannel(channelID string) (*models.Channel, error)
	ListChannelsByServer(serverID string) ([]models.Channel, error)
	SetChannelSlowMode(channelID string, seconds int) error
	SetChannelLocked(channelID string, locked bool) error

	// Role bindings (static grants)
	CreateRoleBinding(b *models.RoleBinding) error
	DeleteRoleBinding(subject string, role models.Role, scope models.Scope) error
	ListRoleBindingsBySubject(subject string) ([]models.RoleBinding, error)

	// Space owner assignments (delegations)
	CreateSpaceOwnerAssignment(a *models.SpaceOwnerAssignment) error
	// FindActiveSpaceOwnerAssignment returns (nil, nil) when no active
	// assignment exists for the pair.
	FindActiveSpaceOwnerAssignment(serverID, userID string) (*models.SpaceOwnerAssignment, error)
	// ExpireStaleSpaceOwnerAssignments flips active assignments whose
	// expiry has passed to expired. Idempotent; flipping twice is a no-op.
	ExpireStaleSpaceOwnerAssignments(serverID, userID string) error
	RevokeSpaceOwnerAssignment(id string) error
	GetSpaceOwnerAssignment(id string) (*models.SpaceOwnerAssignment, error)

	// Audit log (append-only)
	InsertModerationAction(rec *models.ModerationAction) error
	ListModerationActions(hubID string, limit int) ([]models.ModerationAction, error)

	// Idempotency records
	// GetIdempotencyRecord returns (nil, nil) when the key is unknown.
	GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error)
	// InsertIdempotencyRecord is insert-if-absent; it returns
	// ErrDuplicateKey when another request already cached the key.
	InsertIdempotencyRecord(rec *models.IdempotencyRecord) error

	HealthCheck() error
	Close() error
}
