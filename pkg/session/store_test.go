package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStoreWithClient(rdb, ttl), mr
}

func TestExchangeIsOneShot(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "code-1", "user-42"))

	userID, err := store.Exchange(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	// The code is consumed atomically; a second redemption fails.
	_, err = store.Exchange(ctx, "code-1")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestUnknownCode(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	_, err := store.Exchange(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeExpiresAfterTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "code-1", "user-42"))
	mr.FastForward(2 * time.Minute)

	_, err := store.Exchange(ctx, "code-1")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestDefaultTTL(t *testing.T) {
	store, _ := newTestStore(t, 0)
	assert.Equal(t, 5*time.Minute, store.TTL())
}
