// Package csrf is the single-use, service-scoped nonce registry from §4.2.
// It backs two distinct uses with the same primitive: the CSRF code bound
// into a refresh/register/reset/revoke JWT's x-csrf claim (key == value),
// and the PKCE verifier held between a Microsoft OAuth2 authorize
// redirect and its callback (key == provider state, value == verifier).
// A row is readable exactly once; Consume deletes it atomically.
package csrf

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

type Registry struct {
	store store.Store
}

func New(s store.Store) *Registry {
	return &Registry{store: s}
}

func randomToken() (string, error) {
	buf := make([]byte, 21)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return strings.TrimRight(base32.StdEncoding.EncodeToString(buf), "="), nil
}

// Generate creates a fresh key==value nonce, the shape a CSRF-bound JWT
// needs: the same random string goes into both the x-csrf claim and the
// registry row, so consuming the row by key returns the value the caller
// compares the claim against.
func (r *Registry) Generate(ctx context.Context, serviceID uuid.UUID, ttl time.Duration) (string, error) {
	value, err := randomToken()
	if err != nil {
		return "", err
	}
	row, err := r.store.Csrf().Create(ctx, domain.CsrfCreate{
		Key: value, Value: value, ServiceID: serviceID, TTL: ttl,
	})
	if err != nil {
		return "", err
	}
	return row.Key, nil
}

// Store inserts an explicit key/value pair, used for the PKCE flow where
// the key is the provider-issued state parameter and the value is the
// locally generated code verifier.
func (r *Registry) Store(ctx context.Context, serviceID uuid.UUID, key, value string, ttl time.Duration) error {
	_, err := r.store.Csrf().Create(ctx, domain.CsrfCreate{
		Key: key, Value: value, ServiceID: serviceID, TTL: ttl,
	})
	return err
}

// Consume atomically deletes and returns the row for key. A second call
// with the same key, or a call after ttl has passed, both report
// ErrCsrfNotFoundOrUsed — the caller cannot distinguish "already consumed"
// from "never existed" (§8 "refresh consumes the CSRF token exactly
// once").
func (r *Registry) Consume(ctx context.Context, serviceID uuid.UUID, key string) (string, error) {
	row, err := r.store.Csrf().Read(ctx, key)
	if err != nil {
		return "", err
	}
	if row == nil || row.ServiceID != serviceID {
		return "", domain.ErrCsrfNotFoundOrUsed()
	}
	return row.Value, nil
}

// Sweep purges expired rows. Run under store.AdvisoryLock with the CSRF
// sweep namespace so only one process does this at a time (§5).
func (r *Registry) Sweep(ctx context.Context) (int64, error) {
	return r.store.Csrf().Sweep(ctx, time.Now())
}
