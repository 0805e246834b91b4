package middleware

import (
	"net/http"

	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/httputil"
)

// RouteClass says who may reach a route.
type RouteClass int

const (
	// Open routes are reachable by anyone.
	Open RouteClass = iota
	// PublicOnly routes are for signed-out callers (sign-in, sign-up, verify).
	PublicOnly
	// Protected routes require a session.
	Protected
)

func (c RouteClass) String() string {
	switch c {
	case Open:
		return "open"
	case PublicOnly:
		return "public-only"
	case Protected:
		return "protected"
	}
	return "unknown"
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Allow Decision = iota
	Reject
	Redirect
)

// Authorize decides access for a route class given whether the caller has
// a valid session.
func Authorize(class RouteClass, authenticated bool) Decision {
	switch class {
	case Protected:
		if !authenticated {
			return Reject
		}
	case PublicOnly:
		if authenticated {
			return Redirect
		}
	}
	return Allow
}

// Gate enforces class on the routes it wraps. It must run after Auth.
// Rejected callers get 401; signed-in callers on public-only routes are
// redirected to dashboardPath.
func Gate(class RouteClass, dashboardPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, authenticated := PrincipalFrom(r.Context())

			switch Authorize(class, authenticated) {
			case Reject:
				httputil.Error(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
				return
			case Redirect:
				http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
