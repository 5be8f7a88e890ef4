package http_handlers

import (
	"net/http"

	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/tokenrefresh"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// TokenHandler exposes refresh-token rotation (§4.2) over HTTP.
type TokenHandler struct {
	refresh *tokenrefresh.Engine
}

func NewTokenHandler(refresh *tokenrefresh.Engine) *TokenHandler {
	return &TokenHandler{refresh: refresh}
}

func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	svc, ok := middleware.ServiceFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrForbidden())
		return
	}

	var req dto.RefreshRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	tok, err := h.refresh.Refresh(r.Context(), svc, req.RefreshToken)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.RefreshData{UserID: tok.UserID, Tokens: dto.NewTokenView(tok)})
}
