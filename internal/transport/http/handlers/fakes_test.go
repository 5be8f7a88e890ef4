package http_handlers

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

// fakeStore is the map-backed store.Store double shared by handler tests,
// following the same pattern used by internal/localauth and
// internal/oauth2provider's own fakes_test.go.
type fakeStore struct {
	services map[uuid.UUID]domain.Service
	users    map[uuid.UUID]domain.User
	keys     map[uuid.UUID]domain.KeyWithValue
	csrfRows map[string]domain.Csrf
	audits   map[uuid.UUID]domain.Audit
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		services: map[uuid.UUID]domain.Service{},
		users:    map[uuid.UUID]domain.User{},
		keys:     map[uuid.UUID]domain.KeyWithValue{},
		csrfRows: map[string]domain.Csrf{},
		audits:   map[uuid.UUID]domain.Audit{},
	}
}

func (f *fakeStore) Services() store.ServiceRepo { return fakeServiceRepo{f} }
func (f *fakeStore) Users() store.UserRepo       { return fakeUserRepo{f} }
func (f *fakeStore) Keys() store.KeyRepo         { return fakeKeyRepo{f} }
func (f *fakeStore) Csrf() store.CsrfRepo        { return fakeCsrfRepo{f} }
func (f *fakeStore) Audit() store.AuditRepo      { return fakeAuditRepo{f} }

func (f *fakeStore) AdvisoryLock(ctx context.Context, namespace int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCsrfRepo struct{ f *fakeStore }

func (r fakeCsrfRepo) Create(ctx context.Context, c domain.CsrfCreate) (domain.Csrf, error) {
	row := domain.Csrf{Key: c.Key, Value: c.Value, ServiceID: c.ServiceID, TTL: time.Now().Add(c.TTL)}
	r.f.csrfRows[row.Key] = row
	return row, nil
}

func (r fakeCsrfRepo) Read(ctx context.Context, key string) (*domain.Csrf, error) {
	row, ok := r.f.csrfRows[key]
	if !ok {
		return nil, nil
	}
	delete(r.f.csrfRows, key)
	return &row, nil
}

func (r fakeCsrfRepo) Sweep(ctx context.Context, now time.Time) (int64, error) { return 0, nil }

type fakeServiceRepo struct{ f *fakeStore }

func (r fakeServiceRepo) Create(ctx context.Context, s domain.Service) (domain.Service, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.f.services[s.ID] = s
	return s, nil
}

func (r fakeServiceRepo) ReadByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	s, ok := r.f.services[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type fakeUserRepo struct{ f *fakeStore }

func (r fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.f.users[u.ID] = u
	return u, nil
}

func (r fakeUserRepo) ReadByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUserRepo) ReadByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	u := r.f.users[id]
	u.PasswordHash = hash
	r.f.users[id] = u
	return nil
}

func (r fakeUserRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	u := r.f.users[id]
	u.Email = email
	r.f.users[id] = u
	return nil
}

func (r fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.f.users, id)
	return nil
}

type fakeKeyRepo struct{ f *fakeStore }

func (r fakeKeyRepo) Create(ctx context.Context, c domain.KeyCreate) (domain.KeyWithValue, error) {
	k := domain.KeyWithValue{
		Key: domain.Key{
			ID: uuid.New(), IsEnabled: c.IsEnabled, IsRevoked: c.IsRevoked,
			Type: c.Type, Name: c.Name, ServiceID: c.ServiceID, UserID: c.UserID,
		},
		Value: c.Value,
	}
	r.f.keys[k.ID] = k
	return k, nil
}

func (r fakeKeyRepo) Read(ctx context.Context, read domain.KeyRead) (*domain.KeyWithValue, error) {
	for _, k := range r.f.keys {
		switch {
		case read.IsIDVariant():
			if k.ID == read.ID() {
				return &k, nil
			}
		case read.IsUserVariant():
			if k.UserID == nil || k.ServiceID == nil {
				continue
			}
			if *k.ServiceID != read.UserServiceID() || k.Type != read.UserType() ||
				k.IsEnabled != read.UserEnabled() || k.IsRevoked != read.UserRevoked() {
				continue
			}
			if read.ByValue() {
				if k.Value == read.UserValue() {
					return &k, nil
				}
			} else if *k.UserID == read.UserID() {
				return &k, nil
			}
		}
	}
	return nil, nil
}

func (r fakeKeyRepo) Update(ctx context.Context, id uuid.UUID, upd domain.KeyUpdate) (domain.Key, error) {
	k, ok := r.f.keys[id]
	if !ok {
		return domain.Key{}, domain.ErrKeyNotFound()
	}
	if upd.IsEnabled != nil {
		k.IsEnabled = *upd.IsEnabled
	}
	if upd.IsRevoked != nil {
		k.IsRevoked = *upd.IsRevoked
	}
	if upd.Name != nil {
		k.Name = *upd.Name
	}
	r.f.keys[id] = k
	return k.Key, nil
}

func (r fakeKeyRepo) UpdateManyByUser(ctx context.Context, userID uuid.UUID, upd domain.KeyUpdate) (int64, error) {
	return 0, nil
}

func (r fakeKeyRepo) CountEnabledByType(ctx context.Context, serviceID, userID uuid.UUID, t domain.KeyType) (int64, error) {
	var n int64
	for _, k := range r.f.keys {
		if k.ServiceID != nil && *k.ServiceID == serviceID && k.UserID != nil && *k.UserID == userID && k.Type == t && k.IsEnabled {
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct{ f *fakeStore }

func (r fakeAuditRepo) Create(ctx context.Context, c domain.AuditCreate) (domain.Audit, error) {
	now := time.Now()
	row := domain.Audit{
		ID: uuid.New(), CreatedAt: now, UpdatedAt: now,
		UserAgent: c.UserAgent, Remote: c.Remote, Forwarded: c.Forwarded,
		Type: c.Type, Subject: c.Subject, Data: c.Data,
		StatusCode: c.StatusCode, KeyID: c.KeyID, ServiceID: c.ServiceID,
		UserID: c.UserID, UserKeyID: c.UserKeyID,
	}
	r.f.audits[row.ID] = row
	return row, nil
}

func (r fakeAuditRepo) ReadByID(ctx context.Context, id uuid.UUID, serviceIDMask *uuid.UUID) (*domain.Audit, error) {
	row, ok := r.f.audits[id]
	if !ok {
		return nil, nil
	}
	if serviceIDMask != nil && (row.ServiceID == nil || *row.ServiceID != *serviceIDMask) {
		return nil, nil
	}
	return &row, nil
}

func (r fakeAuditRepo) Update(ctx context.Context, id uuid.UUID, upd domain.AuditUpdate, graceWindow time.Duration) (*domain.Audit, error) {
	row, ok := r.f.audits[id]
	if !ok {
		return nil, nil
	}
	if time.Since(row.CreatedAt) > graceWindow {
		return nil, domain.ErrAuditUpdateWindowClosed()
	}
	if upd.Subject != nil {
		row.Subject = upd.Subject
	}
	if upd.Data != nil {
		row.Data = upd.Data
	}
	if upd.StatusCode != nil {
		row.StatusCode = upd.StatusCode
	}
	row.UpdatedAt = time.Now()
	r.f.audits[id] = row
	return &row, nil
}

func (r fakeAuditRepo) List(ctx context.Context, q domain.AuditListQuery, f domain.AuditListFilter) ([]domain.Audit, error) {
	var rows []domain.Audit
	for _, row := range r.f.audits {
		if f.ServiceID != nil && (row.ServiceID == nil || *row.ServiceID != *f.ServiceID) {
			continue
		}
		if f.UserID != nil && (row.UserID == nil || *row.UserID != *f.UserID) {
			continue
		}
		if f.Subject != nil && (row.Subject == nil || *row.Subject != *f.Subject) {
			continue
		}
		if len(f.Type) > 0 {
			match := false
			for _, t := range f.Type {
				if row.Type == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if q.CreatedLe != nil && row.CreatedAt.After(*q.CreatedLe) {
			continue
		}
		if q.CreatedGe != nil && row.CreatedAt.Before(*q.CreatedGe) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if q.Limit > 0 && int64(len(rows)) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}
