package http_handlers

import (
	"net/http"

	"github.com/mojzu/sso/internal/transport/http/dto"
	"github.com/mojzu/sso/internal/transport/http/middleware"
	"github.com/mojzu/sso/internal/transport/http/response"
)

// WhoAmI reports which identity kind the presented credential resolved
// to, for clients that want to probe a key without attempting a scoped
// operation.
func WhoAmI(w http.ResponseWriter, r *http.Request) {
	data := dto.WhoAmIData{Root: middleware.IsRootFromContext(r.Context())}
	if svc, ok := middleware.ServiceFromContext(r.Context()); ok {
		data.ServiceID = &svc.ID
	}
	if usr, ok := middleware.UserFromContext(r.Context()); ok {
		data.UserID = &usr.ID
	}
	response.OK(w, data)
}
