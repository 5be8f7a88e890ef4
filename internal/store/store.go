// Package store defines the persistence contract for services, users,
// keys, CSRF rows, and audit rows. Postgres is the only implementation
// (internal/store/postgres); the interface exists so the engine packages
// (keyengine, jwtengine, csrf, audit) depend on a narrow contract rather
// than a concrete driver, mirroring the teacher's auth.UserRepo port.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type ServiceRepo interface {
	Create(ctx context.Context, s domain.Service) (domain.Service, error)
	ReadByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)
}

type UserRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	ReadByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ReadByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// KeyRepo is the routing-aware key store: every Read call must apply
// exactly the routing rule encoded by the domain.KeyRead variant.
type KeyRepo interface {
	Create(ctx context.Context, c domain.KeyCreate) (domain.KeyWithValue, error)
	Read(ctx context.Context, read domain.KeyRead) (*domain.KeyWithValue, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.KeyUpdate) (domain.Key, error)
	UpdateManyByUser(ctx context.Context, userID uuid.UUID, upd domain.KeyUpdate) (int64, error)
	CountEnabledByType(ctx context.Context, serviceID, userID uuid.UUID, t domain.KeyType) (int64, error)
}

// CsrfRepo exposes the single-use registry. Read is an atomic
// fetch-and-delete: a row is readable at most once (§4.2, §8).
type CsrfRepo interface {
	Create(ctx context.Context, c domain.CsrfCreate) (domain.Csrf, error)
	Read(ctx context.Context, key string) (*domain.Csrf, error)
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

type AuditRepo interface {
	Create(ctx context.Context, c domain.AuditCreate) (domain.Audit, error)
	ReadByID(ctx context.Context, id uuid.UUID, serviceIDMask *uuid.UUID) (*domain.Audit, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.AuditUpdate, graceWindow time.Duration) (*domain.Audit, error)
	List(ctx context.Context, q domain.AuditListQuery, f domain.AuditListFilter) ([]domain.Audit, error)
}

// Store bundles every repo the engine packages need; postgres.Store
// implements it over a single *sql.DB / connection pool.
type Store interface {
	Services() ServiceRepo
	Users() UserRepo
	Keys() KeyRepo
	Csrf() CsrfRepo
	Audit() AuditRepo

	// AdvisoryLock runs fn while holding a transaction-scoped Postgres
	// advisory lock in the given namespace (released automatically at
	// transaction end, per §5 "cross-thread locking").
	AdvisoryLock(ctx context.Context, namespace int64, fn func(ctx context.Context) error) error
}
