// Package postgres implements store.Store over database/sql with the
// jackc/pgx/v5 stdlib driver, following the teacher's UserRepo shape:
// one struct per table wrapping *sql.DB, hand-written SQL, explicit
// row scanning, domain errors at the boundary.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

// NewDB opens a connection pool and fails fast with a ping. Unlike the
// teacher's db.go, the debug branch never prints connection string bytes —
// only the parsed host and database name are logged by the caller.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// Store implements store.Store over a shared *sql.DB.
type Store struct {
	db *sql.DB

	services *ServiceRepo
	users    *UserRepo
	keys     *KeyRepo
	csrf     *CsrfRepo
	audit    *AuditRepo
}

func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		services: &ServiceRepo{db: db},
		users:    &UserRepo{db: db},
		keys:     &KeyRepo{db: db},
		csrf:     &CsrfRepo{db: db},
		audit:    &AuditRepo{db: db},
	}
}

func (s *Store) Services() store.ServiceRepo { return s.services }
func (s *Store) Users() store.UserRepo       { return s.users }
func (s *Store) Keys() store.KeyRepo         { return s.keys }
func (s *Store) Csrf() store.CsrfRepo        { return s.csrf }
func (s *Store) Audit() store.AuditRepo      { return s.audit }

// AdvisoryLock takes a transaction-scoped exclusive advisory lock in the
// given namespace, runs fn, and releases the lock on commit/rollback —
// Postgres releases pg_advisory_xact_lock automatically at transaction end.
func (s *Store) AdvisoryLock(ctx context.Context, namespace int64, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, namespace); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
