package http_handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/oauth2provider"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// OAuthHandler drives the GitHub and Microsoft OAuth2 shapes (§4.7).
type OAuthHandler struct {
	engine *oauth2provider.Engine
}

func NewOAuthHandler(engine *oauth2provider.Engine) *OAuthHandler {
	return &OAuthHandler{engine: engine}
}

// Start returns the provider's authorization URL for the caller to
// redirect the end user to.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	svc, ok := middleware.ServiceFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return
	}
	provider := chi.URLParam(r, "provider")

	authURL, err := h.engine.Start(r.Context(), svc, provider)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.OAuth2StartData{URL: authURL})
}

// Callback consumes the provider's redirect and, on success, bounces the
// browser to the service's local callback URL carrying the token payload
// as query parameters (§6).
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	svc, ok := middleware.ServiceFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return
	}
	provider := chi.URLParam(r, "provider")
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	tok, err := h.engine.Callback(r.Context(), svc, provider, state, code)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	q := url.Values{}
	q.Set("access_token", tok.AccessToken)
	q.Set("refresh_token", tok.RefreshToken)
	q.Set("access_token_expires", strconv.FormatInt(tok.AccessTokenExpires.Unix(), 10))
	q.Set("refresh_token_expires", strconv.FormatInt(tok.RefreshTokenExpires.Unix(), 10))
	q.Set("type", "oauth2_login")

	http.Redirect(w, r, svc.ProviderLocalURL+"?"+q.Encode(), http.StatusFound)
}
