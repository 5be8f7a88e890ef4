package oauth2provider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/store"
)

// fakeClient stubs a provider Client without any network traffic: code
// and accessToken are both treated as opaque, and ExchangeCode checks the
// verifier it was handed matches what the test configured, mirroring what
// a real PKCE check enforces server-side at the provider.
type fakeClient struct {
	configured   bool
	pkce         bool
	wantVerifier string
	exchangeErr  error
	email        string
	emailErr     error
}

func (c *fakeClient) IsConfigured() bool { return c.configured }
func (c *fakeClient) UsesPKCE() bool     { return c.pkce }
func (c *fakeClient) AuthURL(state, codeChallenge string) string {
	return "https://provider.test/authorize?state=" + state + "&challenge=" + codeChallenge
}
func (c *fakeClient) ExchangeCode(ctx context.Context, code, verifier string) (string, error) {
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	if c.pkce && verifier != c.wantVerifier {
		return "", domain.New(domain.KindBadRequest, "bad_verifier", "pkce verifier mismatch")
	}
	return "access-" + code, nil
}
func (c *fakeClient) UserEmail(ctx context.Context, accessToken string) (string, error) {
	if c.emailErr != nil {
		return "", c.emailErr
	}
	return c.email, nil
}

type fakeStore struct {
	services map[uuid.UUID]domain.Service
	users    map[uuid.UUID]domain.User
	keys     map[uuid.UUID]domain.KeyWithValue
	csrfRows map[string]domain.Csrf
	audits   []domain.Audit
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		services: map[uuid.UUID]domain.Service{},
		users:    map[uuid.UUID]domain.User{},
		keys:     map[uuid.UUID]domain.KeyWithValue{},
		csrfRows: map[string]domain.Csrf{},
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

type fakeAuditRepo struct{ f *fakeStore }

func (r fakeAuditRepo) Create(ctx context.Context, c domain.AuditCreate) (domain.Audit, error) {
	row := domain.Audit{
		ID: uuid.New(), Type: c.Type, Subject: c.Subject, Data: c.Data,
		StatusCode: c.StatusCode, KeyID: c.KeyID, ServiceID: c.ServiceID,
		UserID: c.UserID, UserKeyID: c.UserKeyID,
	}
	r.f.audits = append(r.f.audits, row)
	return row, nil
}

func (r fakeAuditRepo) ReadByID(ctx context.Context, id uuid.UUID, serviceIDMask *uuid.UUID) (*domain.Audit, error) {
	return nil, nil
}

func (r fakeAuditRepo) Update(ctx context.Context, id uuid.UUID, upd domain.AuditUpdate, graceWindow time.Duration) (*domain.Audit, error) {
	return nil, nil
}

func (r fakeAuditRepo) List(ctx context.Context, q domain.AuditListQuery, f domain.AuditListFilter) ([]domain.Audit, error) {
	return r.f.audits, nil
}
