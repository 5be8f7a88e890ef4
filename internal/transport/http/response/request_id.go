package response

import (
	"net/http"

	appctx "github.com/mojzu/sso/internal/pkg/context"
)

// RequestIDFromContext extracts the request ID set by middleware.RequestID.
func RequestIDFromContext(r *http.Request) string {
	return appctx.GetRequestID(r.Context())
}
