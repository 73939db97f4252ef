package idempotency

import (
	"errors"
	"testing"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordStore struct {
	records map[string]*models.IdempotencyRecord

	// forceDuplicate simulates losing the insert race: Get sees nothing
	// but the insert reports a conflict.
	forceDuplicate bool
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*models.IdempotencyRecord)}
}

func (f *fakeRecordStore) GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error) {
	if f.forceDuplicate {
		return nil, nil
	}
	return f.records[key], nil
}

func (f *fakeRecordStore) InsertIdempotencyRecord(rec *models.IdempotencyRecord) error {
	if f.forceDuplicate {
		return database.ErrDuplicateKey
	}
	if _, ok := f.records[rec.Key]; ok {
		return database.ErrDuplicateKey
	}
	f.records[rec.Key] = rec
	return nil
}

func TestReplayReturnsCachedResponseByteForByte(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	runs := 0
	workflow := func() (interface{}, error) {
		runs++
		return map[string]string{"server_id": "srv-1"}, nil
	}

	first, err := e.Run("key-1", []byte(`{"name":"general"}`), workflow)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	second, err := e.Run("key-1", []byte(`{"name":"general"}`), workflow)
	require.NoError(t, err)
	assert.Equal(t, 1, runs, "replay must not re-run the workflow")
	assert.Equal(t, []byte(first), []byte(second))
}

func TestReplayToleratesKeyOrderAndWhitespace(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	runs := 0
	workflow := func() (interface{}, error) {
		runs++
		return "ok", nil
	}

	_, err := e.Run("key-1", []byte(`{"a":1,"b":2}`), workflow)
	require.NoError(t, err)

	_, err = e.Run("key-1", []byte(`{ "b": 2, "a": 1 }`), workflow)
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestKeyReuseWithDifferentPayloadConflicts(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	runs := 0
	workflow := func() (interface{}, error) {
		runs++
		return "ok", nil
	}

	_, err := e.Run("key-1", []byte(`{"name":"general"}`), workflow)
	require.NoError(t, err)

	_, err = e.Run("key-1", []byte(`{"name":"other"}`), workflow)
	require.Error(t, err)
	assert.Equal(t, authz.CodeIdempotencyConflict, authz.CodeOf(err))
	assert.Equal(t, 1, runs, "a conflicting replay must not execute the workflow")
}

func TestEmptyKeyOptsOut(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	runs := 0
	workflow := func() (interface{}, error) {
		runs++
		return runs, nil
	}

	_, err := e.Run("", []byte(`{}`), workflow)
	require.NoError(t, err)
	_, err = e.Run("", []byte(`{}`), workflow)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.Empty(t, store.records)
}

func TestWorkflowErrorIsNotCached(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	calls := 0
	workflow := func() (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient failure")
		}
		return "ok", nil
	}

	_, err := e.Run("key-1", []byte(`{}`), workflow)
	require.Error(t, err)
	assert.Empty(t, store.records, "failures must not be cached")

	// The retry runs the workflow again and succeeds.
	out, err := e.Run("key-1", []byte(`{}`), workflow)
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(out))
	assert.Equal(t, 2, calls)
}

func TestLosingInsertRaceStillSucceeds(t *testing.T) {
	store := newFakeRecordStore()
	store.forceDuplicate = true
	e := NewExecutor(store)

	out, err := e.Run("key-1", []byte(`{}`), func() (interface{}, error) {
		return "mine", nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"mine"`, string(out))
}

func TestInvalidJSONPayloadRejected(t *testing.T) {
	store := newFakeRecordStore()
	e := NewExecutor(store)

	_, err := e.Run("key-1", []byte(`{not json`), func() (interface{}, error) {
		t.Fatal("workflow must not run")
		return nil, nil
	})
	require.Error(t, err)
}

func TestPayloadHashStable(t *testing.T) {
	h1, err := PayloadHash([]byte(`{"a":1,"b":[1,2]}`))
	require.NoError(t, err)
	h2, err := PayloadHash([]byte(`{"b": [1, 2], "a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := PayloadHash([]byte(`{"a":2,"b":[1,2]}`))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
