package http_handlers

import (
	"net/http"

	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/localauth"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// AuthHandler exposes the local-password provider (§4.6) over HTTP. Every
// route requires a service credential already resolved by
// middleware.Auth; a missing service in context is this handler's own
// programming error (it must always sit behind middleware.RequireService),
// not a client mistake, so it maps to ErrForbidden like any other
// resolution miss rather than a dedicated 500.
type AuthHandler struct {
	provider *localauth.Provider
}

func NewAuthHandler(provider *localauth.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

func (h *AuthHandler) currentService(w http.ResponseWriter, r *http.Request) (domain.Service, bool) {
	svc, ok := middleware.ServiceFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return domain.Service{}, false
	}
	return svc, true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}

	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	tok, meta, err := h.provider.Login(r.Context(), svc, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.LoginData{
		UserID:       tok.UserID,
		Tokens:       dto.NewTokenView(tok),
		PasswordMeta: dto.NewPasswordMetaView(meta),
	})
}

func (h *AuthHandler) ResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}

	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	// Always succeeds from the caller's point of view — no enumeration
	// of which emails exist (§4.6).
	h.provider.RequestPasswordReset(r.Context(), svc, req.Email)
	response.NoContent(w)
}

func (h *AuthHandler) ResetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}

	var req dto.ResetPasswordConfirmRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.provider.ConfirmPasswordReset(r.Context(), svc, req.Token, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return
	}

	var req dto.UpdateEmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.provider.UpdateEmail(r.Context(), svc, userID, req.Password, req.NewEmail); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return
	}

	var req dto.UpdatePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.provider.UpdatePassword(r.Context(), svc, userID, req.Password, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.currentService(w, r)
	if !ok {
		return
	}

	var req dto.RevokeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.provider.Revoke(r.Context(), svc, req.Token); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}
