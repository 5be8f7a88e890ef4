package middleware

import (
	"net/http"

	"github.com/mojzu/sso/internal/authpipeline"
	"github.com/mojzu/sso/internal/domain"
)

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

const headerUserAuthorization = "User-Authorization"

// Auth resolves the primary Authorization header into either root
// authority or a service, and — when a secondary User-Authorization
// header is present — a user scoped to that service, per §4.5's
// classify-then-scope pipeline. Header parse errors are passed through
// as-is; every resolution failure from the pipeline is replaced with
// Forbidden here. The first error rejects the request.
func Auth(p *authpipeline.Pipeline, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := authpipeline.ParseAuthorization(r.Header.Get("Authorization"))
			if err != nil {
				writeErr(w, r, err)
				return
			}

			svc, err := p.AuthenticateEither(r.Context(), cred)
			if err != nil {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			id := Identity{}
			if svc != nil {
				id.Service = svc
			} else {
				id.Root = true
			}

			if userHeader := r.Header.Get(headerUserAuthorization); userHeader != "" && svc != nil {
				userCred, err := authpipeline.ParseAuthorization(userHeader)
				if err != nil {
					writeErr(w, r, err)
					return
				}
				usr, key, err := p.AuthenticateUser(r.Context(), *svc, userCred)
				if err != nil {
					writeErr(w, r, domain.ErrForbidden())
					return
				}
				id.User = &usr
				id.UserKey = &key
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
