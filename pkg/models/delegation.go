package models

import "time"

type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRevoked AssignmentStatus = "revoked"
	AssignmentExpired AssignmentStatus = "expired"
)

// SpaceOwnerAssignment is a time-bounded delegation of space-owner
// authority over one server. Expiry is evaluated lazily: the row flips
// to expired the next time an authorization check touches the
// (server, user) pair, never by a background sweeper.
type SpaceOwnerAssignment struct {
	ID               string           `json:"id" db:"id"`
	ServerID         string           `json:"server_id" db:"server_id"`
	AssignedUserID   string           `json:"assigned_user_id" db:"assigned_user_id"`
	AssignedByUserID string           `json:"assigned_by_user_id" db:"assigned_by_user_id"`
	Status           AssignmentStatus `json:"status" db:"status"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// Lapsed reports whether the assignment's expiry has passed at t.
// A revoked or expired assignment is lapsed regardless of expiry.
func (a *SpaceOwnerAssignment) Lapsed(t time.Time) bool {
	if a.Status != AssignmentActive {
		return true
	}
	return a.ExpiresAt != nil && !a.ExpiresAt.After(t)
}
