package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// ServiceHandler manages service rows. Every route sits behind
// middleware.RequireRoot: services are the tenant boundary itself, so
// only the root credential may create or inspect them (§4.1).
type ServiceHandler struct {
	store store.Store
}

func NewServiceHandler(s store.Store) *ServiceHandler {
	return &ServiceHandler{store: s}
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ServiceCreateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	svc := domain.Service{
		IsEnabled:                  req.IsEnabled,
		Name:                       req.Name,
		URL:                        req.URL,
		ProviderLocalURL:           req.ProviderLocalURL,
		ProviderGithubOAuth2URL:    req.ProviderGithubOAuth2URL,
		ProviderMicrosoftOAuth2URL: req.ProviderMicrosoftOAuth2URL,
		UserAllowRegister:          req.UserAllowRegister,
		UserEmailText:              req.UserEmailText,
	}
	if err := svc.Check(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	created, err := h.store.Services().Create(r.Context(), svc)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewServiceView(created))
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("id", "uuid"))
		return
	}

	svc, err := h.store.Services().ReadByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if svc == nil {
		response.WriteError(w, r, domain.ErrServiceNotFound())
		return
	}
	response.OK(w, dto.NewServiceView(*svc))
}
