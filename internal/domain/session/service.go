package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/cache"
)

var (
	// ErrSessionInvalid is returned whether the session is missing, expired
	// or revoked; the cases are never distinguished to callers
	ErrSessionInvalid = errors.New("session expired or invalid")
)

// DefaultTTL is the default session lifetime when the caller supplies none
const DefaultTTL = 30 * 24 * time.Hour

// Service issues and validates opaque session tokens
type Service interface {
	Create(userID uint, provider string, ip, userAgent *string, ttl time.Duration) (*Session, error)
	Get(token string) (*Session, error)
	Invalidate(token string) bool
}

type service struct {
	repo            Repository
	revocationCache *cache.SessionRevocationCache
	newToken        func() string
}

// NewService creates a session Service without a revocation cache
func NewService(repo Repository) Service {
	return &service{repo: repo, newToken: uuid.NewString}
}

// NewServiceWithCache creates a session Service that additionally records
// revocations in Redis. A nil cache degrades to database-only behavior.
func NewServiceWithCache(repo Repository, revocationCache *cache.SessionRevocationCache) Service {
	return &service{repo: repo, revocationCache: revocationCache, newToken: uuid.NewString}
}

// Create generates an unguessable session token and persists the session.
// The TTL is caller-supplied; ttl <= 0 falls back to DefaultTTL. A token
// collision on insert is retried once and then surfaced as an error.
func (s *service) Create(userID uint, provider string, ip, userAgent *string, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	expiresAt := time.Now().UTC().Add(ttl)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		sess := &Session{
			UserID:       userID,
			SessionToken: s.newToken(),
			Provider:     provider,
			IPAddress:    ip,
			UserAgent:    userAgent,
			ExpiresAt:    &expiresAt,
			IsActive:     true,
		}
		if err := s.repo.Create(sess); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return sess, nil
	}
	return nil, lastErr
}

// Get returns the session only while it is valid
func (s *service) Get(token string) (*Session, error) {
	if s.revocationCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		revoked := s.revocationCache.IsSessionRevoked(ctx, token)
		cancel()
		if revoked {
			return nil, ErrSessionInvalid
		}
	}

	sess, err := s.repo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !sess.Valid(time.Now().UTC()) {
		return nil, ErrSessionInvalid
	}
	return sess, nil
}

// revocationTTL is how long a revocation marker must outlive its session:
// the remaining lifetime, or DefaultTTL for a non-expiring session. A value
// <= 0 means the session already lapsed and needs no marker at all.
func revocationTTL(sess *Session, now time.Time) time.Duration {
	if sess.ExpiresAt == nil {
		return DefaultTTL
	}
	return sess.ExpiresAt.Sub(now)
}

// Invalidate marks the session inactive and records the revocation in the
// cache for the session's remaining lifetime. Returns false only when the
// token never existed.
func (s *service) Invalidate(token string) bool {
	sess, err := s.repo.Invalidate(token)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("Failed to invalidate session", "error", err)
		}
		return false
	}

	if s.revocationCache != nil {
		if ttl := revocationTTL(sess, time.Now().UTC()); ttl > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.revocationCache.RevokeSession(ctx, token, ttl); err != nil {
				slog.Warn("Failed to store session revocation in Redis", "error", err)
			}
		}
	}
	return true
}
