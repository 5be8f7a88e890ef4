package http_handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/keyengine"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// KeyHandler mints and updates key rows across all three kinds (§4.2).
// Every route sits behind middleware.RequireRoot; service and user keys
// name their service in the request body.
type KeyHandler struct {
	keys *keyengine.Engine
}

func NewKeyHandler(keys *keyengine.Engine) *KeyHandler {
	return &KeyHandler{keys: keys}
}

func (h *KeyHandler) CreateRoot(w http.ResponseWriter, r *http.Request) {
	var req dto.KeyCreateRootRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	created, err := h.keys.CreateRoot(r.Context(), req.IsEnabled, req.Name)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewKeyWithValueView(created))
}

func (h *KeyHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req dto.KeyCreateServiceRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("service_id", "uuid"))
		return
	}

	created, err := h.keys.CreateService(r.Context(), req.IsEnabled, req.Name, serviceID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewKeyWithValueView(created))
}

func (h *KeyHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.KeyCreateUserRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("service_id", "uuid"))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("user_id", "uuid"))
		return
	}

	created, err := h.keys.CreateUser(r.Context(), req.IsEnabled, domain.KeyType(req.Type), req.Name, serviceID, userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewKeyWithValueView(created))
}

func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	found, err := h.keys.ReadByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewKeyView(found.Key))
}

func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.KeyUpdateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	updated, err := h.keys.Update(r.Context(), id, req.IsEnabled, req.IsRevoked, req.Name)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewKeyView(updated))
}
