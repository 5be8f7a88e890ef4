package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/mojzu/sso/internal/domain"
)

type CsrfRepo struct {
	db *sql.DB
}

func (r *CsrfRepo) Create(ctx context.Context, c domain.CsrfCreate) (domain.Csrf, error) {
	ttl := time.Now().Add(c.TTL)
	const q = `
INSERT INTO csrf (key, value, service_id, ttl)
VALUES ($1,$2,$3,$4)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, service_id = EXCLUDED.service_id, ttl = EXCLUDED.ttl
RETURNING key, value, service_id, ttl;
`
	var out domain.Csrf
	err := r.db.QueryRowContext(ctx, q, c.Key, c.Value, c.ServiceID, ttl).Scan(&out.Key, &out.Value, &out.ServiceID, &out.TTL)
	if err != nil {
		return domain.Csrf{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// Read consumes the token: the row is deleted in the same statement that
// reads it, via DELETE ... RETURNING, so a token can never be read twice
// even under concurrent requests racing on the same key (§5, §8 "refresh
// consumes the CSRF token exactly once"). A row past its ttl is treated
// as absent even though it is still physically deleted here, matching the
// lazy-sweep model described in §4.2.
func (r *CsrfRepo) Read(ctx context.Context, key string) (*domain.Csrf, error) {
	const q = `DELETE FROM csrf WHERE key = $1 RETURNING key, value, service_id, ttl;`
	var out domain.Csrf
	err := r.db.QueryRowContext(ctx, q, key).Scan(&out.Key, &out.Value, &out.ServiceID, &out.TTL)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	if out.Expired(time.Now()) {
		return nil, nil
	}
	return &out, nil
}

// Sweep deletes rows past ttl as of now. Run periodically under the CSRF
// sweep advisory lock so at most one process does this at a time.
func (r *CsrfRepo) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM csrf WHERE ttl < $1;`, now)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
