package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds pending login codes with a TTL, keyed by an opaque token.
// Codes are single-use and survive process restarts, so in-flight device
// handoffs are not dropped when instances scale or recycle.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// ErrCodeNotFound is returned when a code is unknown, expired, or
// already exchanged.
var ErrCodeNotFound = fmt.Errorf("session code not found or expired")

// NewStore connects to Redis via URL (redis://...).
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

// NewStoreWithClient is used by tests to inject a prepared client.
func NewStoreWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Put registers a pending code for a user; it expires after the TTL.
func (s *Store) Put(ctx context.Context, code, userID string) error {
	if err := s.rdb.Set(ctx, key(code), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session code: %w", err)
	}
	return nil
}

// Exchange consumes a code and returns the user it was issued to. The
// get-and-delete is atomic, so a code can be exchanged exactly once even
// under concurrent redemption attempts.
func (s *Store) Exchange(ctx context.Context, code string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, key(code)).Result()
	if err == redis.Nil {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to exchange session code: %w", err)
	}
	return userID, nil
}

// TTL returns the configured lifetime of a code.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func key(code string) string {
	return "session_code:" + code
}
