package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/ariefcatur/restaurant-orders/internal/redisx"
)

type SessionStore interface {
	Issue(ctx context.Context, p auth.Principal) (string, error)
	Resolve(ctx context.Context, token string) (auth.Principal, error)
	Revoke(ctx context.Context, token string) error
}

// PrincipalSource reloads a session's principal so deleted users and role
// changes take effect before the session expires.
type PrincipalSource interface {
	Principal(ctx context.Context, userID string) (auth.Principal, error)
}

type tokenKey struct{}

// Authenticate resolves a bearer token into a principal on the request
// context. Requests without a token pass through anonymous; a bad token, or
// one whose user no longer exists, is rejected.
func Authenticate(log *slog.Logger, sessions SessionStore, principals PrincipalSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(h, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "malformed authorization header")
				return
			}
			sess, err := sessions.Resolve(r.Context(), token)
			if errors.Is(err, redisx.ErrSessionNotFound) {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token")
				return
			}
			if err != nil {
				log.Error("resolve session", slog.Any("err", err))
				writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
				return
			}
			p, err := principals.Principal(r.Context(), sess.UserID)
			if errors.Is(err, apperr.ErrNotFound) {
				if rerr := sessions.Revoke(r.Context(), token); rerr != nil {
					log.Warn("revoke session", slog.String("user_id", sess.UserID), slog.Any("err", rerr))
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token")
				return
			}
			if err != nil {
				respondError(w, r, log, err)
				return
			}
			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = context.WithValue(ctx, tokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func sessionToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey{}).(string)
	return t
}
