package middleware

import (
	"net/http"

	"github.com/mojzu/sso/internal/domain"
)

// RequireRoot rejects any request that did not authenticate with the
// root key. Service administration endpoints (create/read service) are
// root-only per §4.1.
func RequireRoot(writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsRootFromContext(r.Context()) {
				writeErr(w, r, domain.ErrForbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireService rejects root-authenticated requests, for endpoints
// that only make sense scoped to a single service (user/key/provider
// operations).
func RequireService(writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ServiceFromContext(r.Context()); !ok {
				writeErr(w, r, domain.ErrForbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that did not resolve a secondary user
// credential (the User-Authorization header).
func RequireUser(writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); !ok {
				writeErr(w, r, domain.ErrForbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
