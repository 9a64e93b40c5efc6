package auth

import (
	"context"
	"net/http"

	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/rs/zerolog/log"
)

// Identity is the caller resolved from the session token. It does not change
// for the lifetime of a request.
type Identity struct {
	UserID int64
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by AuthMiddleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// AuthMiddleware resolves the session cookie once per request.
// An invalid session clears the cookie and the request continues without an
// identity; strict endpoints reject it later.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := GetSessionCookie(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := ValidateToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Msg("Invalid session token")
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth rejects requests without an identity
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			apperrors.Write(w, r, apperrors.Unauthenticated())
			return
		}
		next.ServeHTTP(w, r)
	})
}
