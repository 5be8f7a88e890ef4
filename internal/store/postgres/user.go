package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepo) scan(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.IsEnabled, &u.Name, &u.Email, &u.Locale, &u.Timezone, &u.PasswordHash, &u.PasswordAllowReset, &u.PasswordRequireUpdate)
	return u, err
}

const userSelect = `SELECT id, is_enabled, name, email, locale, timezone, password_hash, password_allow_reset, password_require_update FROM "user"`

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = domain.NewID()
	}
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	const q = `
INSERT INTO "user" (id, is_enabled, name, email, locale, timezone, password_hash, password_allow_reset, password_require_update)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, is_enabled, name, email, locale, timezone, password_hash, password_allow_reset, password_require_update;
`
	out, err := r.scan(r.db.QueryRowContext(ctx, q, u.ID, u.IsEnabled, u.Name, u.Email, u.Locale, u.Timezone, u.PasswordHash, u.PasswordAllowReset, u.PasswordRequireUpdate))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *UserRepo) ReadByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := r.scan(r.db.QueryRowContext(ctx, userSelect+` WHERE id = $1;`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return &u, nil
}

func (r *UserRepo) ReadByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	u, err := r.scan(r.db.QueryRowContext(ctx, userSelect+` WHERE email = $1;`, email))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return &u, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE "user" SET password_hash = $2, updated_at = NOW() WHERE id = $1;`, id, hash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	email = normalizeEmail(email)
	res, err := r.db.ExecContext(ctx, `UPDATE "user" SET email = $2, updated_at = NOW() WHERE id = $1;`, id, email)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.ErrEmailAlreadyExists()
		}
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	// Cascades to key rows via the foreign key ON DELETE CASCADE; a second
	// delete against the same id affects zero rows and is not an error —
	// idempotent per §8 "round-trip / idempotence".
	_, err := r.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1;`, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
