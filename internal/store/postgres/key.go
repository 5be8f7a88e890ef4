package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type KeyRepo struct {
	db *sql.DB
}

const keySelect = `SELECT id, is_enabled, is_revoked, type, name, value, service_id, user_id FROM key`

func scanKeyWithValue(row *sql.Row) (domain.KeyWithValue, error) {
	var k domain.KeyWithValue
	var serviceID, userID sql.NullString
	err := row.Scan(&k.ID, &k.IsEnabled, &k.IsRevoked, &k.Type, &k.Name, &k.Value, &serviceID, &userID)
	if err != nil {
		return domain.KeyWithValue{}, err
	}
	if serviceID.Valid {
		id, perr := uuid.Parse(serviceID.String)
		if perr == nil {
			k.ServiceID = &id
		}
	}
	if userID.Valid {
		id, perr := uuid.Parse(userID.String)
		if perr == nil {
			k.UserID = &id
		}
	}
	return k, nil
}

func (r *KeyRepo) Create(ctx context.Context, c domain.KeyCreate) (domain.KeyWithValue, error) {
	id := domain.NewID()
	const q = `
INSERT INTO key (id, is_enabled, is_revoked, type, name, value, service_id, user_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, is_enabled, is_revoked, type, name, value, service_id, user_id;
`
	out, err := scanKeyWithValue(r.db.QueryRowContext(ctx, q, id, c.IsEnabled, c.IsRevoked, c.Type, c.Name, c.Value, c.ServiceID, c.UserID))
	if err != nil {
		if isUniqueViolation(err) {
			if c.Type == domain.KeyTypeToken {
				return domain.KeyWithValue{}, domain.ErrKeyUserTokenConstraint()
			}
			if c.Type == domain.KeyTypeTotp {
				return domain.KeyWithValue{}, domain.ErrKeyUserTotpConstraint()
			}
		}
		return domain.KeyWithValue{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// Read applies exactly one routing rule per domain.KeyRead variant. A root
// lookup only ever matches service_id IS NULL AND user_id IS NULL; a
// service lookup only matches service_id IS NOT NULL AND user_id IS NULL;
// a user lookup requires both columns set plus an exact type and
// enabled/revoked match. This is the whole key-kind-confusion defense:
// presenting a service value through the root path, or vice versa, simply
// returns no row — never a match on value alone.
func (r *KeyRepo) Read(ctx context.Context, read domain.KeyRead) (*domain.KeyWithValue, error) {
	var row *sql.Row
	switch {
	case read.IsIDVariant():
		row = r.db.QueryRowContext(ctx, keySelect+` WHERE id = $1;`, read.ID())
	case read.IsRootValueVariant():
		row = r.db.QueryRowContext(ctx, keySelect+` WHERE value = $1 AND service_id IS NULL AND user_id IS NULL;`, read.RootValue())
	case read.IsServiceValueVariant():
		row = r.db.QueryRowContext(ctx, keySelect+` WHERE value = $1 AND service_id IS NOT NULL AND user_id IS NULL;`, read.ServiceValue())
	case read.IsUserVariant():
		if read.ByValue() {
			row = r.db.QueryRowContext(ctx,
				keySelect+` WHERE value = $1 AND service_id = $2 AND user_id IS NOT NULL AND type = $3 AND is_enabled = $4 AND is_revoked = $5;`,
				read.UserValue(), read.UserServiceID(), read.UserType(), read.UserEnabled(), read.UserRevoked())
		} else {
			row = r.db.QueryRowContext(ctx,
				keySelect+` WHERE service_id = $1 AND user_id = $2 AND type = $3 AND is_enabled = $4 AND is_revoked = $5;`,
				read.UserServiceID(), read.UserID(), read.UserType(), read.UserEnabled(), read.UserRevoked())
		}
	default:
		return nil, domain.ErrKeyNotFound()
	}

	out, err := scanKeyWithValue(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return &out, nil
}

func (r *KeyRepo) Update(ctx context.Context, id uuid.UUID, upd domain.KeyUpdate) (domain.Key, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Key{}, domain.ErrDBUnavailable(err)
	}
	defer tx.Rollback()

	var cur domain.Key
	var serviceID, userID sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT id, is_enabled, is_revoked, type, name, service_id, user_id FROM key WHERE id = $1 FOR UPDATE;`, id).
		Scan(&cur.ID, &cur.IsEnabled, &cur.IsRevoked, &cur.Type, &cur.Name, &serviceID, &userID)
	if err != nil {
		if isNoRows(err) {
			return domain.Key{}, domain.ErrKeyNotFound()
		}
		return domain.Key{}, domain.ErrDBUnavailable(err)
	}

	isEnabled := cur.IsEnabled
	if upd.IsEnabled != nil {
		isEnabled = *upd.IsEnabled
	}
	// Revocation is monotonic: once true, never cleared by an update.
	isRevoked := cur.IsRevoked
	if upd.IsRevoked != nil && !cur.IsRevoked {
		isRevoked = *upd.IsRevoked
	}
	name := cur.Name
	if upd.Name != nil {
		name = *upd.Name
	}

	_, err = tx.ExecContext(ctx, `UPDATE key SET is_enabled=$2, is_revoked=$3, name=$4, updated_at=NOW() WHERE id=$1;`, id, isEnabled, isRevoked, name)
	if err != nil {
		return domain.Key{}, domain.ErrDBUnavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Key{}, domain.ErrDBUnavailable(err)
	}

	cur.IsEnabled = isEnabled
	cur.IsRevoked = isRevoked
	cur.Name = name
	if serviceID.Valid {
		sid, _ := uuid.Parse(serviceID.String)
		cur.ServiceID = &sid
	}
	if userID.Valid {
		uid, _ := uuid.Parse(userID.String)
		cur.UserID = &uid
	}
	return cur, nil
}

// UpdateManyByUser is used for mass invalidation on user disable/delete
// (§4.1 "update_many_by_user"). Revocation monotonicity is preserved the
// same way as Update.
func (r *KeyRepo) UpdateManyByUser(ctx context.Context, userID uuid.UUID, upd domain.KeyUpdate) (int64, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{userID}
	i := 2
	if upd.IsEnabled != nil {
		sets = append(sets, fieldAssign("is_enabled", i))
		args = append(args, *upd.IsEnabled)
		i++
	}
	if upd.IsRevoked != nil {
		// monotonic: only ever sets is_revoked TRUE via OR against current value
		sets = append(sets, "is_revoked = is_revoked OR "+placeholder(i))
		args = append(args, *upd.IsRevoked)
		i++
	}
	if upd.Name != nil {
		sets = append(sets, fieldAssign("name", i))
		args = append(args, *upd.Name)
		i++
	}
	q := "UPDATE key SET " + join(sets, ", ") + " WHERE user_id = $1;"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *KeyRepo) CountEnabledByType(ctx context.Context, serviceID, userID uuid.UUID, t domain.KeyType) (int64, error) {
	const q = `SELECT COUNT(1) FROM key WHERE service_id = $1 AND user_id = $2 AND type = $3 AND is_enabled = TRUE;`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, serviceID, userID, t).Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps *pgconn.PgError; code 23505 is unique_violation.
	type pgErrCode interface{ SQLState() string }
	if pe, ok := err.(pgErrCode); ok {
		return pe.SQLState() == "23505"
	}
	return false
}

func fieldAssign(field string, idx int) string {
	return field + " = " + placeholder(idx)
}

func placeholder(idx int) string {
	return "$" + itoa(idx)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
