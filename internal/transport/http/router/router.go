package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mojzu/sso/internal/authpipeline"
	http_handlers "github.com/mojzu/sso/internal/transport/http/handlers"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	ResetPasswordRequest(w http.ResponseWriter, r *http.Request)
	ResetPasswordConfirm(w http.ResponseWriter, r *http.Request)
	UpdateEmail(w http.ResponseWriter, r *http.Request)
	UpdatePassword(w http.ResponseWriter, r *http.Request)
	Revoke(w http.ResponseWriter, r *http.Request)
}

type TokenHandler interface {
	Refresh(w http.ResponseWriter, r *http.Request)
}

type OAuthHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
}

type ServiceHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type UserHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type KeyHandler interface {
	CreateRoot(w http.ResponseWriter, r *http.Request)
	CreateService(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
}

type AuditHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

// Deps wires every route to its handler and middleware. Rate limiters are
// optional (nil skips the guard) the way the teacher's router left its own
// RL* fields optional for tests that don't care about throttling.
type Deps struct {
	Health  HealthHandler
	Auth    AuthHandler
	Token   TokenHandler
	OAuth   OAuthHandler
	Service ServiceHandler
	User    UserHandler
	Key     KeyHandler
	Audit   AuditHandler

	Pipeline       *authpipeline.Pipeline
	InternalSecret string

	RLLogin        func(http.Handler) http.Handler
	RLResetRequest func(http.Handler) http.Handler
	RLOAuthStart   func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("nil authentication pipeline")
	}

	authMW := middleware.Auth(deps.Pipeline, response.WriteError)
	requireRoot := middleware.RequireRoot(response.WriteError)
	requireService := middleware.RequireService(response.WriteError)
	requireUser := middleware.RequireUser(response.WriteError)
	internalAuthMW := middleware.InternalAuth(deps.InternalSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/whoami", http_handlers.WhoAmI)

		// --- Local password provider (§4.6), service-scoped ---
		r.Route("/auth", func(r chi.Router) {
			r.Use(requireService)

			if deps.RLLogin != nil {
				r.With(deps.RLLogin).Post("/login", deps.Auth.Login)
			} else {
				r.Post("/login", deps.Auth.Login)
			}

			if deps.RLResetRequest != nil {
				r.With(deps.RLResetRequest).Post("/password/reset/request", deps.Auth.ResetPasswordRequest)
			} else {
				r.Post("/password/reset/request", deps.Auth.ResetPasswordRequest)
			}
			r.Post("/password/reset/confirm", deps.Auth.ResetPasswordConfirm)
			r.Post("/revoke", deps.Auth.Revoke)

			r.With(requireUser).Post("/email", deps.Auth.UpdateEmail)
			r.With(requireUser).Post("/password", deps.Auth.UpdatePassword)
		})

		// --- Token refresh (§4.2, §4.3), service-scoped ---
		if deps.Token != nil {
			r.With(requireService).Post("/token/refresh", deps.Token.Refresh)
		}

		// --- OAuth2 provider (§4.7), service-scoped ---
		if deps.OAuth != nil {
			r.Route("/oauth/{provider}", func(r chi.Router) {
				r.Use(requireService)
				if deps.RLOAuthStart != nil {
					r.With(deps.RLOAuthStart).Get("/start", deps.OAuth.Start)
				} else {
					r.Get("/start", deps.OAuth.Start)
				}
				r.Get("/callback", deps.OAuth.Callback)
			})
		}

		// --- Service admin surface (§4.1), root-only ---
		r.Route("/services", func(r chi.Router) {
			r.Use(requireRoot)
			r.Post("/", deps.Service.Create)
			r.Get("/{id}", deps.Service.Get)
		})

		// --- User admin surface, root-only (no self-service registration) ---
		r.Route("/users", func(r chi.Router) {
			r.Use(requireRoot)
			r.Post("/", deps.User.Create)
			r.Get("/{id}", deps.User.Get)
			r.Delete("/{id}", deps.User.Delete)
		})

		// --- Key admin surface (§4.2), root-only ---
		r.Route("/keys", func(r chi.Router) {
			r.Use(requireRoot)
			r.Post("/root", deps.Key.CreateRoot)
			r.Post("/service", deps.Key.CreateService)
			r.Post("/user", deps.Key.CreateUser)
			r.Get("/{id}", deps.Key.Get)
			r.Patch("/{id}", deps.Key.Update)
		})

		// --- Audit listing (§4.4); every route is masked by serviceMask,
		// so root and service credentials share the same routes ---
		if deps.Audit != nil {
			r.Route("/audit", func(r chi.Router) {
				r.Get("/", deps.Audit.List)
				r.Get("/{id}", deps.Audit.Get)
				r.Patch("/{id}", deps.Audit.Update)
			})
		}
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(internalAuthMW)
		r.Get("/users/{id}", deps.User.Get)
	})

	return r, nil
}
