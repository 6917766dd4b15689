package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/domain"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching operations.
// Implemented in memory for single-node deployments and with Redis otherwise.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// Cached Session Repository
// =============================================================================

// cachedSessionRepository is a read-through cache in front of a SessionRepository.
// Only positive lookups are cached; logout invalidates the entry.
type cachedSessionRepository struct {
	inner  SessionRepository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSessionRepository wraps inner with a session lookup cache.
// Cache failures are logged and fall back to inner.
func NewCachedSessionRepository(inner SessionRepository, cache Cache, ttl time.Duration, logger zerolog.Logger) SessionRepository {
	return &cachedSessionRepository{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_cache").Logger(),
	}
}

func sessionCacheKey(id uuid.UUID) string {
	return "session:" + id.String()
}

// Create stores the session. New sessions are cached on first lookup.
func (r *cachedSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	return r.inner.Create(ctx, session)
}

// GetIdentity resolves the session, consulting the cache first.
func (r *cachedSessionRepository) GetIdentity(ctx context.Context, sessionID uuid.UUID) (*domain.Identity, error) {
	key := sessionCacheKey(sessionID)

	data, err := r.cache.Get(ctx, key)
	if err == nil {
		var identity domain.Identity
		if err := json.Unmarshal(data, &identity); err == nil && identity.User != nil {
			return &identity, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn().Err(err).Msg("session cache read failed")
	}

	identity, err := r.inner.GetIdentity(ctx, sessionID)
	if err != nil || identity == nil {
		return identity, err
	}

	if data, err := json.Marshal(identity); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Msg("session cache write failed")
		}
	}

	return identity, nil
}

// Delete removes the session and invalidates its cache entry.
func (r *cachedSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	if err := r.inner.Delete(ctx, sessionID, userID); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, sessionCacheKey(sessionID)); err != nil {
		r.logger.Warn().Err(err).Msg("session cache invalidation failed")
	}
	return nil
}
