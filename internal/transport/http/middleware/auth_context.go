package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type ctxKey string

const (
	ctxService ctxKey = "auth_service"
	ctxRoot    ctxKey = "auth_root_key"
	ctxUser    ctxKey = "auth_user"
	ctxUserKey ctxKey = "auth_user_key"
)

// Identity is what the Auth middleware resolves an Authorization header
// into: either root authority (Service nil), or a service, optionally
// with a secondary user credential attached (§4.5).
type Identity struct {
	Service *domain.Service
	Root    bool
	User    *domain.User
	UserKey *domain.Key
}

// IsRoot reports whether the request authenticated as the root key.
func (id Identity) IsRoot() bool { return id.Root }

// WithIdentity seeds ctx with a resolved Identity. Exported for tests in
// other transport packages that need to simulate an authenticated request
// without running the full Auth middleware.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if id.Service != nil {
		ctx = context.WithValue(ctx, ctxService, *id.Service)
	}
	if id.Root {
		ctx = context.WithValue(ctx, ctxRoot, true)
	}
	if id.User != nil {
		ctx = context.WithValue(ctx, ctxUser, *id.User)
	}
	if id.UserKey != nil {
		ctx = context.WithValue(ctx, ctxUserKey, *id.UserKey)
	}
	return ctx
}

// ServiceFromContext returns the authenticated service, if the request
// authenticated via a service key rather than the root key.
func ServiceFromContext(ctx context.Context) (domain.Service, bool) {
	v, ok := ctx.Value(ctxService).(domain.Service)
	return v, ok
}

// IsRootFromContext reports whether the request authenticated as root.
func IsRootFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(ctxRoot).(bool)
	return v
}

// UserFromContext returns the secondary user credential resolved for a
// service-scoped request, if one was present.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	v, ok := ctx.Value(ctxUser).(domain.User)
	return v, ok
}

// UserKeyFromContext returns the key the secondary user credential
// resolved to.
func UserKeyFromContext(ctx context.Context) (domain.Key, bool) {
	v, ok := ctx.Value(ctxUserKey).(domain.Key)
	return v, ok
}

// UserIDFromContext is a convenience accessor for handlers that only
// need the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}
