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

// UserHandler manages user rows. There is no self-service registration
// surface (§4.7's "no user is auto-created" applies everywhere): every
// /v1 route sits behind middleware.RequireRoot, and Get is also served
// under /internal behind middleware.InternalAuth.
type UserHandler struct {
	store store.Store
}

func NewUserHandler(s store.Store) *UserHandler {
	return &UserHandler{store: s}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.UserCreateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	usr := domain.User{
		IsEnabled:          req.IsEnabled,
		Name:               req.Name,
		Email:              req.Email,
		Locale:             req.Locale,
		Timezone:           req.Timezone,
		PasswordAllowReset: req.PasswordAllowReset,
	}

	created, err := h.store.Users().Create(r.Context(), usr)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewUserView(created))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	usr, err := h.store.Users().ReadByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if usr == nil {
		response.WriteError(w, r, domain.ErrUserNotFound())
		return
	}
	response.OK(w, dto.NewUserView(*usr))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.store.Users().Delete(r.Context(), id); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

func parseURLID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.UUID{}, domain.ErrInvalidField(param, "uuid")
	}
	return id, nil
}
