package http_handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/audit"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
)

const auditListDefaultLimit = 50

// AuditHandler exposes the range-cursor listing and bounded-update
// surface of §4.4. Root sees every row; a service credential is always
// masked to its own service_id.
type AuditHandler struct {
	audit       *audit.Engine
	updateGrace time.Duration
}

func NewAuditHandler(eng *audit.Engine, updateGrace time.Duration) *AuditHandler {
	return &AuditHandler{audit: eng, updateGrace: updateGrace}
}

func (h *AuditHandler) serviceMask(r *http.Request) *uuid.UUID {
	if middleware.IsRootFromContext(r.Context()) {
		return nil
	}
	svc, ok := middleware.ServiceFromContext(r.Context())
	if !ok {
		return nil
	}
	return &svc.ID
}

func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	row, err := h.audit.ReadByID(r.Context(), id, h.serviceMask(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewAuditView(*row))
}

func (h *AuditHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseURLID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.AuditUpdateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	row, err := h.audit.Update(r.Context(), id, domain.AuditUpdate{
		Subject:    req.Subject,
		Data:       req.Data,
		StatusCode: req.StatusCode,
	}, h.updateGrace)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewAuditView(*row))
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := domain.AuditListQuery{Limit: auditListDefaultLimit}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.WriteError(w, r, domain.ErrInvalidField("limit", "int"))
			return
		}
		query.Limit = n
	}
	if v := q.Get("created_le"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.WriteError(w, r, domain.ErrInvalidField("created_le", "rfc3339"))
			return
		}
		query.CreatedLe = &t
	}
	if v := q.Get("created_ge"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.WriteError(w, r, domain.ErrInvalidField("created_ge", "rfc3339"))
			return
		}
		query.CreatedGe = &t
	}
	if v := q.Get("offset_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.WriteError(w, r, domain.ErrInvalidField("offset_id", "uuid"))
			return
		}
		query.OffsetID = &id
	}

	filter := domain.AuditListFilter{ServiceID: h.serviceMask(r)}
	if v := q.Get("subject"); v != "" {
		filter.Subject = &v
	}
	if v := q["type"]; len(v) > 0 {
		filter.Type = v
	}
	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.WriteError(w, r, domain.ErrInvalidField("user_id", "uuid"))
			return
		}
		filter.UserID = &id
	}

	rows, err := h.audit.List(r.Context(), query, filter)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	views := make([]dto.AuditView, 0, len(rows))
	for _, row := range rows {
		views = append(views, dto.NewAuditView(row))
	}
	response.OK(w, dto.AuditListData{Rows: views})
}
