package models

import "time"

// Hub is the top-level community a creator operates.
type Hub struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Server is a chat space under a hub. OwnerUserID always confers
// space-owner authority at this server's scope; it changes only through
// an ownership transfer, which is atomic (exactly one owner at any
// instant). MatrixSpaceID is the externally-hosted room id, empty when
// the room adapter was not configured at provisioning time.
type Server struct {
	ID            string    `json:"id" db:"id"`
	HubID         string    `json:"hub_id" db:"hub_id"`
	Name          string    `json:"name" db:"name"`
	OwnerUserID   string    `json:"owner_user_id" db:"owner_user_id"`
	MatrixSpaceID string    `json:"matrix_space_id,omitempty" db:"matrix_space_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Channel is a room under a server.
type Channel struct {
	ID              string    `json:"id" db:"id"`
	ServerID        string    `json:"server_id" db:"server_id"`
	Name            string    `json:"name" db:"name"`
	Kind            string    `json:"kind" db:"kind"` // "text" or "voice"
	MatrixRoomID    string    `json:"matrix_room_id,omitempty" db:"matrix_room_id"`
	SlowModeSeconds int       `json:"slow_mode_seconds" db:"slow_mode_seconds"`
	Locked          bool      `json:"locked" db:"locked"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
