package middleware

import (
	"net/http"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/httputil"
)

// RequireVerified creates middleware that requires a verified principal.
// Must be used after Auth middleware.
func RequireVerified() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
				return
			}

			if !p.IsVerified {
				httputil.Error(w, http.StatusForbidden, domain.ErrNotVerified.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
