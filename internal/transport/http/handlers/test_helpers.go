package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/transport/http/middleware"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadJSON decodes a response.Envelope's "data" field from r into out.
func mustReadJSON(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope failed; body=%s err=%v", string(raw), err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode envelope data failed; body=%s err=%v", string(raw), err)
	}
}

// withURLParam injects a chi URL param (e.g. /users/{id}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

// withService seeds req's context with a service identity, simulating
// what middleware.Auth would have resolved.
func withService(req *http.Request, svc domain.Service) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{Service: &svc}))
}

// withServiceUser seeds req's context with a service identity plus a
// secondary user credential.
func withServiceUser(req *http.Request, svc domain.Service, usr domain.User) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{Service: &svc, User: &usr}))
}

// withRoot seeds req's context with the root identity.
func withRoot(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{Root: true}))
}
