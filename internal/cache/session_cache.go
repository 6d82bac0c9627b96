package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// sessionRevokedPrefix is the key prefix for revoked session markers
	sessionRevokedPrefix = "session:revoked:"
)

// SessionRevocationCache keeps revocation markers for logged-out sessions so
// validation endpoints can reject a token without a database round trip.
// The database row stays the source of truth; the cache is an optimization.
type SessionRevocationCache struct {
	client *redis.Client
}

// NewSessionRevocationCache creates a SessionRevocationCache backed by the
// provided Redis client.
func NewSessionRevocationCache(client *redis.Client) *SessionRevocationCache {
	return &SessionRevocationCache{client: client}
}

// RevokeSession stores a revocation marker for the session token. The TTL
// should match the remaining lifetime of the session so markers expire with it.
func (c *SessionRevocationCache) RevokeSession(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, sessionRevokedPrefix+token, "1", ttl).Err()
}

// IsSessionRevoked reports whether a revocation marker exists for the token.
// Redis errors are reported as not-revoked so the database check still runs.
func (c *SessionRevocationCache) IsSessionRevoked(ctx context.Context, token string) bool {
	n, err := c.client.Exists(ctx, sessionRevokedPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}
