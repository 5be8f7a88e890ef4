// Package keyengine implements key creation, routing-aware reads, and
// revocation for the three key kinds (root, service, user), grounded on
// the original system's Key::create_root/create_service/create_user/read
// family. The at-most-one-enabled Token/Totp constraint is enforced here
// with a pre-check against store.KeyRepo.CountEnabledByType before the
// insert races the database's partial unique index, which is the
// authoritative backstop under concurrency.
package keyengine

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// generateValue produces a base32-encoded random secret of
// domain.KeyValueBytes bytes, unpadded, matching the size of the
// original system's libreauth-generated key values.
func generateValue() (string, error) {
	buf := make([]byte, domain.KeyValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return strings.TrimRight(base32.StdEncoding.EncodeToString(buf), "="), nil
}

func (e *Engine) CreateRoot(ctx context.Context, isEnabled bool, name string) (domain.KeyWithValue, error) {
	value, err := generateValue()
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	return e.store.Keys().Create(ctx, domain.KeyCreate{
		IsEnabled: isEnabled,
		Type:      domain.KeyTypeKey,
		Name:      name,
		Value:     value,
	})
}

func (e *Engine) CreateService(ctx context.Context, isEnabled bool, name string, serviceID uuid.UUID) (domain.KeyWithValue, error) {
	svc, err := e.store.Services().ReadByID(ctx, serviceID)
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if svc == nil {
		return domain.KeyWithValue{}, domain.ErrServiceNotFound()
	}
	value, err := generateValue()
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	return e.store.Keys().Create(ctx, domain.KeyCreate{
		IsEnabled: isEnabled,
		Type:      domain.KeyTypeKey,
		Name:      name,
		Value:     value,
		ServiceID: &serviceID,
	})
}

// CreateUser rejects a second enabled Token or Totp key for the same
// (service, user) pair before even generating a value, so an enumeration
// attempt against the constraint never burns a secret.
func (e *Engine) CreateUser(ctx context.Context, isEnabled bool, t domain.KeyType, name string, serviceID, userID uuid.UUID) (domain.KeyWithValue, error) {
	if isEnabled {
		switch t {
		case domain.KeyTypeToken:
			n, err := e.store.Keys().CountEnabledByType(ctx, serviceID, userID, domain.KeyTypeToken)
			if err != nil {
				return domain.KeyWithValue{}, err
			}
			if n != 0 {
				return domain.KeyWithValue{}, domain.ErrKeyUserTokenConstraint()
			}
		case domain.KeyTypeTotp:
			n, err := e.store.Keys().CountEnabledByType(ctx, serviceID, userID, domain.KeyTypeTotp)
			if err != nil {
				return domain.KeyWithValue{}, err
			}
			if n != 0 {
				return domain.KeyWithValue{}, domain.ErrKeyUserTotpConstraint()
			}
		}
	}

	svc, err := e.store.Services().ReadByID(ctx, serviceID)
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if svc == nil {
		return domain.KeyWithValue{}, domain.ErrServiceNotFound()
	}
	usr, err := e.store.Users().ReadByID(ctx, userID)
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if usr == nil {
		return domain.KeyWithValue{}, domain.ErrUserNotFound()
	}

	value, err := generateValue()
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	return e.store.Keys().Create(ctx, domain.KeyCreate{
		IsEnabled: isEnabled,
		Type:      t,
		Name:      name,
		Value:     value,
		ServiceID: &serviceID,
		UserID:    &userID,
	})
}

// ReadByRootValue, ReadByServiceValue, ReadByUser and ReadByUserValue are
// thin routed reads; a miss on any of them is reported as ErrKeyNotFound
// regardless of whether the value exists under a different kind (§4.1).
func (e *Engine) ReadByRootValue(ctx context.Context, value string) (domain.KeyWithValue, error) {
	k, err := e.store.Keys().Read(ctx, domain.KeyReadRootValue(value))
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if k == nil {
		return domain.KeyWithValue{}, domain.ErrKeyNotFound()
	}
	return *k, nil
}

func (e *Engine) ReadByServiceValue(ctx context.Context, value string) (domain.KeyWithValue, error) {
	k, err := e.store.Keys().Read(ctx, domain.KeyReadServiceValue(value))
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if k == nil {
		return domain.KeyWithValue{}, domain.ErrKeyNotFound()
	}
	return *k, nil
}

func (e *Engine) ReadByUser(ctx context.Context, serviceID, userID uuid.UUID, t domain.KeyType) (domain.KeyWithValue, error) {
	k, err := e.store.Keys().Read(ctx, domain.KeyReadUserID(serviceID, userID, t, true, false))
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if k == nil {
		return domain.KeyWithValue{}, domain.ErrKeyNotFound()
	}
	return *k, nil
}

func (e *Engine) ReadByUserValue(ctx context.Context, serviceID uuid.UUID, value string, t domain.KeyType) (domain.KeyWithValue, error) {
	k, err := e.store.Keys().Read(ctx, domain.KeyReadUserValue(serviceID, value, t, true, false))
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if k == nil {
		return domain.KeyWithValue{}, domain.ErrKeyNotFound()
	}
	return *k, nil
}

func (e *Engine) ReadByID(ctx context.Context, id uuid.UUID) (domain.KeyWithValue, error) {
	k, err := e.store.Keys().Read(ctx, domain.KeyReadByID(id))
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if k == nil {
		return domain.KeyWithValue{}, domain.ErrKeyNotFound()
	}
	return *k, nil
}

func (e *Engine) Update(ctx context.Context, id uuid.UUID, isEnabled, isRevoked *bool, name *string) (domain.Key, error) {
	return e.store.Keys().Update(ctx, id, domain.KeyUpdate{IsEnabled: isEnabled, IsRevoked: isRevoked, Name: name})
}

// RevokeAllForUser disables and revokes every key belonging to a user in one call,
// used when a user is disabled or deleted so no previously issued secret
// continues to authenticate.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	disabled := false
	revoked := true
	return e.store.Keys().UpdateManyByUser(ctx, userID, domain.KeyUpdate{IsEnabled: &disabled, IsRevoked: &revoked})
}
