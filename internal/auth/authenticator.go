package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/domain"
	"github.com/prn-tf/photoshare/internal/metrics"
)

// DefaultSessionHeader is the request header carrying the session id.
const DefaultSessionHeader = "sessionid"

// SessionStore resolves session ids. It must return nil, nil for an unknown session.
type SessionStore interface {
	GetIdentity(ctx context.Context, sessionID uuid.UUID) (*domain.Identity, error)
}

// Authenticator turns a presented session credential into an optional identity.
type Authenticator struct {
	store   SessionStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewAuthenticator creates an Authenticator backed by store.
// m may be nil.
func NewAuthenticator(store SessionStore, m *metrics.Metrics, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate resolves credential to an identity.
//
// A missing, malformed or unknown credential yields nil, nil: the request is
// anonymous and each route decides whether that is acceptable. Only a store
// failure returns an error.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}

	sessionID, err := uuid.Parse(credential)
	if err != nil {
		a.logger.Debug().Msg("ignoring malformed session id")
		a.metrics.RecordSessionLookup("anonymous")
		return nil, nil
	}

	identity, err := a.store.GetIdentity(ctx, sessionID)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to resolve session")
		a.metrics.RecordSessionLookup("error")
		return nil, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	if identity == nil {
		a.metrics.RecordSessionLookup("anonymous")
		return nil, nil
	}

	a.metrics.RecordSessionLookup("hit")
	return identity, nil
}
