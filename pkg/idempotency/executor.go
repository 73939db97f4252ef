package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/models"
)

// RecordStore is the slice of persistence the executor needs.
type RecordStore interface {
	// GetIdempotencyRecord returns (nil, nil) when the key is unknown.
	GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error)
	// InsertIdempotencyRecord is insert-if-absent and returns a
	// duplicate-key error when another request already cached the key.
	InsertIdempotencyRecord(rec *models.IdempotencyRecord) error
}

// Executor de-duplicates retried creation workflows. The first successful
// response for a key is cached; a replay with the identical payload
// returns it byte-for-byte without re-running the workflow, so external
// side effects happen at most once per key.
type Executor struct {
	db RecordStore
}

func NewExecutor(db RecordStore) *Executor {
	return &Executor{db: db}
}

// Run executes workflow under the idempotency key. An empty key opts out
// of de-duplication. A key replayed with a different payload fails with
// idempotency_conflict and does not execute the workflow. The executor
// does not manage distributed transactions: workflows order their own
// operations so the external, far-end-idempotent call happens before the
// local write.
func (e *Executor) Run(key string, payload interface{}, workflow func() (interface{}, error)) (json.RawMessage, error) {
	if key == "" {
		out, err := workflow()
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}

	hash, err := PayloadHash(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to hash payload: %w", err)
	}

	rec, err := e.db.GetIdempotencyRecord(key)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec.RequestHash != hash {
			return nil, authz.ErrIdempotencyConflict("idempotency key reuse with different payload")
		}
		return json.RawMessage(rec.ResponseJSON), nil
	}

	out, err := workflow()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow response: %w", err)
	}

	insErr := e.db.InsertIdempotencyRecord(&models.IdempotencyRecord{
		Key:          key,
		RequestHash:  hash,
		ResponseJSON: string(body),
	})
	if insErr != nil && !database.IsDuplicateKey(insErr) {
		return nil, insErr
	}
	// Losing the insert race is tolerated: this request still returns its
	// own computed response; later retries observe the cached winner.
	return body, nil
}

// PayloadHash digests a stable serialization of payload. Raw JSON bodies
// and Go values both normalize through a decode/re-encode pass, so key
// order and whitespace differences do not change the hash.
func PayloadHash(payload interface{}) (string, error) {
	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		raw = b
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("payload is not valid JSON: %w", err)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
