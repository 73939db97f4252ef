package models

import "time"

// IdempotencyRecord caches the first successful response for a
// client-supplied idempotency key. Created once per key
// (insert-if-absent, never upsert); a request replayed with the same
// key and payload hash returns ResponseJSON verbatim without re-running
// the workflow.
type IdempotencyRecord struct {
	Key          string    `json:"key" db:"key"`
	RequestHash  string    `json:"request_hash" db:"request_hash"`
	ResponseJSON string    `json:"response_json" db:"response_json"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
