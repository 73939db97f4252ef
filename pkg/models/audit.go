package models

import "time"

type AuditOutcome string

const (
	OutcomeGranted AuditOutcome = "granted"
	OutcomeDenied  AuditOutcome = "denied"
)

// ModerationAction is one row of the append-only audit log. Every
// privileged-action attempt produces exactly one record, whether or not
// it was authorized. Rows are never updated or deleted.
type ModerationAction struct {
	ID              string                 `json:"id" db:"id"`
	ActorUserID     string                 `json:"actor_user_id" db:"actor_user_id"`
	Action          Action                 `json:"action" db:"action"`
	Scope           Scope                  `json:"scope"`
	TargetUserID    string                 `json:"target_user_id,omitempty" db:"target_user_id"`
	TargetMessageID string                 `json:"target_message_id,omitempty" db:"target_message_id"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Outcome         AuditOutcome           `json:"outcome" db:"outcome"`
	Reason          string                 `json:"reason,omitempty" db:"reason"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}
