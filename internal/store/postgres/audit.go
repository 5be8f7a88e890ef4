package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type AuditRepo struct {
	db *sql.DB
}

const auditColumns = `id, created_at, updated_at, user_agent, remote, forwarded, type, subject, data, status_code, key_id, service_id, user_id, user_key_id`

func scanAudit(row *sql.Row) (domain.Audit, error) {
	var a domain.Audit
	var forwarded, subject sql.NullString
	var statusCode sql.NullInt64
	var keyID, serviceID, userID, userKeyID sql.NullString
	var data []byte
	err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.UserAgent, &a.Remote, &forwarded, &a.Type, &subject, &data, &statusCode, &keyID, &serviceID, &userID, &userKeyID)
	if err != nil {
		return domain.Audit{}, err
	}
	if forwarded.Valid {
		a.Forwarded = &forwarded.String
	}
	if subject.Valid {
		a.Subject = &subject.String
	}
	if statusCode.Valid {
		v := int(statusCode.Int64)
		a.StatusCode = &v
	}
	if len(data) > 0 {
		m := map[string]any{}
		if err := json.Unmarshal(data, &m); err == nil {
			a.Data = m
		}
	}
	for dst, src := range map[**uuid.UUID]sql.NullString{&a.KeyID: keyID, &a.ServiceID: serviceID, &a.UserID: userID, &a.UserKeyID: userKeyID} {
		if src.Valid {
			id, perr := uuid.Parse(src.String)
			if perr == nil {
				*dst = &id
			}
		}
	}
	return a, nil
}

func (r *AuditRepo) Create(ctx context.Context, c domain.AuditCreate) (domain.Audit, error) {
	id := domain.NewID()
	var data []byte
	if c.Data != nil {
		b, err := json.Marshal(c.Data)
		if err != nil {
			return domain.Audit{}, domain.ErrInternal(err)
		}
		data = b
	}
	const q = `
INSERT INTO audit (id, user_agent, remote, forwarded, type, subject, data, status_code, key_id, service_id, user_id, user_key_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING ` + auditColumns + `;
`
	out, err := scanAudit(r.db.QueryRowContext(ctx, q, id, c.UserAgent, c.Remote, c.Forwarded, c.Type, c.Subject, data, c.StatusCode, c.KeyID, c.ServiceID, c.UserID, c.UserKeyID))
	if err != nil {
		return domain.Audit{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// ReadByID applies the service mask when the caller is service-scoped: a
// record belonging to a different service must not be visible, the same
// cross-tenant isolation rule as key routing (§3, §8 "cross-service leak
// prevention").
func (r *AuditRepo) ReadByID(ctx context.Context, id uuid.UUID, serviceIDMask *uuid.UUID) (*domain.Audit, error) {
	q := `SELECT ` + auditColumns + ` FROM audit WHERE id = $1`
	args := []any{id}
	if serviceIDMask != nil {
		q += ` AND service_id = $2`
		args = append(args, *serviceIDMask)
	}
	out, err := scanAudit(r.db.QueryRowContext(ctx, q+`;`, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return &out, nil
}

// Update patches subject, data, and status_code only, and only while the
// row is still inside graceWindow of its creation. Anything else reports
// NotFound rather than silently declining, per the resolved Open Question
// on audit updates: a caller outside the window gets the same signal as a
// caller naming an id that never existed.
func (r *AuditRepo) Update(ctx context.Context, id uuid.UUID, upd domain.AuditUpdate, graceWindow time.Duration) (*domain.Audit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer tx.Rollback()

	var createdAt time.Time
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM audit WHERE id = $1 FOR UPDATE;`, id).Scan(&createdAt); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAuditNotFound()
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	if time.Since(createdAt) > graceWindow {
		return nil, domain.ErrAuditUpdateWindowClosed()
	}

	var data []byte
	if upd.Data != nil {
		b, merr := json.Marshal(upd.Data)
		if merr != nil {
			return nil, domain.ErrInternal(merr)
		}
		data = b
	}

	row := tx.QueryRowContext(ctx, `
UPDATE audit SET
  subject = COALESCE($2, subject),
  data = COALESCE($3, data),
  status_code = COALESCE($4, status_code),
  updated_at = NOW()
WHERE id = $1
RETURNING `+auditColumns+`;
`, id, upd.Subject, nullIfEmptyJSON(data), upd.StatusCode)

	out, err := scanAudit(row)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return &out, nil
}

func nullIfEmptyJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// List implements the three range-cursor shapes from §4.4: CreatedLe alone
// walks backward from the bound, CreatedGe alone walks forward, and both
// set together bounds on both sides, always ascending. OffsetID breaks ties
// among rows sharing a created_at value: it resolves to the offset row's
// own created_at and is AND-ed in as a (created_at, id) tuple comparison
// consistent with the page's sort direction, so a page starting after
// offset_id is always a strict suffix of the full ordered sequence — it
// never re-serves a row already seen, even when many rows share one
// created_at value.
func (r *AuditRepo) List(ctx context.Context, q domain.AuditListQuery, f domain.AuditListFilter) ([]domain.Audit, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	ascending := false
	order := "created_at DESC, id DESC"
	switch {
	case q.CreatedLe != nil && q.CreatedGe != nil:
		where = append(where, "created_at <= "+arg(*q.CreatedLe))
		where = append(where, "created_at >= "+arg(*q.CreatedGe))
		order = "created_at ASC, id ASC"
		ascending = true
	case q.CreatedLe != nil:
		where = append(where, "created_at <= "+arg(*q.CreatedLe))
		order = "created_at DESC, id DESC"
	case q.CreatedGe != nil:
		where = append(where, "created_at >= "+arg(*q.CreatedGe))
		order = "created_at ASC, id ASC"
		ascending = true
	}
	if q.OffsetID != nil {
		var offsetCreatedAt time.Time
		err := r.db.QueryRowContext(ctx, `SELECT created_at FROM audit WHERE id = $1;`, *q.OffsetID).Scan(&offsetCreatedAt)
		if err != nil {
			if isNoRows(err) {
				return nil, domain.ErrAuditNotFound()
			}
			return nil, domain.ErrDBUnavailable(err)
		}
		createdArg := arg(offsetCreatedAt)
		idArg := arg(*q.OffsetID)
		if ascending {
			where = append(where, "(created_at > "+createdArg+" OR (created_at = "+createdArg+" AND id > "+idArg+"))")
		} else {
			where = append(where, "(created_at < "+createdArg+" OR (created_at = "+createdArg+" AND id < "+idArg+"))")
		}
	}
	if len(f.ID) > 0 {
		where = append(where, "id = ANY("+arg(f.ID)+")")
	}
	if len(f.Type) > 0 {
		where = append(where, "type = ANY("+arg(f.Type)+")")
	}
	if f.Subject != nil {
		where = append(where, "subject = "+arg(*f.Subject))
	}
	if f.ServiceID != nil {
		where = append(where, "service_id = "+arg(*f.ServiceID))
	}
	if f.UserID != nil {
		where = append(where, "user_id = "+arg(*f.UserID))
	}

	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)

	query := "SELECT " + auditColumns + " FROM audit WHERE " + join(where, " AND ") +
		" ORDER BY " + order + " LIMIT " + placeholder(len(args)) + ";"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.Audit
	for rows.Next() {
		var a domain.Audit
		var forwarded, subject sql.NullString
		var statusCode sql.NullInt64
		var keyID, serviceID, userID, userKeyID sql.NullString
		var data []byte
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.UserAgent, &a.Remote, &forwarded, &a.Type, &subject, &data, &statusCode, &keyID, &serviceID, &userID, &userKeyID); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		if forwarded.Valid {
			a.Forwarded = &forwarded.String
		}
		if subject.Valid {
			a.Subject = &subject.String
		}
		if statusCode.Valid {
			v := int(statusCode.Int64)
			a.StatusCode = &v
		}
		if len(data) > 0 {
			m := map[string]any{}
			if err := json.Unmarshal(data, &m); err == nil {
				a.Data = m
			}
		}
		if keyID.Valid {
			id, perr := uuid.Parse(keyID.String)
			if perr == nil {
				a.KeyID = &id
			}
		}
		if serviceID.Valid {
			id, perr := uuid.Parse(serviceID.String)
			if perr == nil {
				a.ServiceID = &id
			}
		}
		if userID.Valid {
			id, perr := uuid.Parse(userID.String)
			if perr == nil {
				a.UserID = &id
			}
		}
		if userKeyID.Valid {
			id, perr := uuid.Parse(userKeyID.String)
			if perr == nil {
				a.UserKeyID = &id
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
