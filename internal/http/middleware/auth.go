package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/httputil"
)

type contextKey string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKey = "principal"

// TokenValidator resolves a session token to its principal.
type TokenValidator interface {
	Validate(token string) (domain.Principal, error)
}

// Auth creates middleware that resolves the session token, if any, into a
// principal on the request context. It never rejects; Gate decides access.
// Checks Authorization header first, then falls back to cookie for web clients.
func Auth(sessions TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString, _ = httputil.GetSessionTokenFromCookie(r)
			}

			if tokenString != "" {
				if p, err := sessions.Validate(tokenString); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom extracts the principal from the request context.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(domain.Principal)
	return p, ok
}
