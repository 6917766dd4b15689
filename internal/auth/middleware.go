package auth

import (
	"context"
	"net/http"

	"github.com/prn-tf/photoshare/internal/domain"
)

// Config contains configuration for the auth middleware.
type Config struct {
	// SessionHeader is the header carrying the session id.
	SessionHeader string

	// SkipPaths are paths that are never authenticated.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		SessionHeader: DefaultSessionHeader,
		SkipPaths:     []string{"/health"},
	}
}

type identityContextKey struct{}

// Middleware resolves the session header on every request and attaches the
// resulting identity, if any, to the request context. Requests are never
// rejected for a bad credential; a store failure is answered with 500.
func Middleware(a *Authenticator, config Config) func(http.Handler) http.Handler {
	header := config.SessionHeader
	if header == "" {
		header = DefaultSessionHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			identity, err := a.Authenticate(r.Context(), r.Header.Get(header))
			if err != nil {
				writeAuthError(w)
				return
			}

			if identity != nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError writes the generic internal error envelope.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"message":"internal server error"}`))
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached by Middleware, or nil for
// an anonymous request.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	if identity, ok := ctx.Value(identityContextKey{}).(*domain.Identity); ok {
		return identity
	}
	return nil
}

// RequireIdentity returns the request identity or domain.ErrAuthenticationRequired.
func RequireIdentity(ctx context.Context) (*domain.Identity, error) {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return identity, nil
}
