package authpipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/jwtengine"
	"github.com/mojzu/sso/internal/keyengine"
	"github.com/mojzu/sso/internal/store"
)

// Pipeline resolves credentials into the entities they authenticate. Every
// miss along the way — wrong key kind, disabled row, expired token,
// signature mismatch — collapses to a generic not-found/forbidden error so
// a caller probing the boundary learns nothing about which counterparty is
// absent (§4.1, §8 scenario 5).
type Pipeline struct {
	store store.Store
	keys  *keyengine.Engine
	jwt   *jwtengine.Engine
}

func New(s store.Store, keys *keyengine.Engine, jwt *jwtengine.Engine) *Pipeline {
	return &Pipeline{store: s, keys: keys, jwt: jwt}
}

// AuthenticateRoot resolves a root key. Only the key scheme is ever valid
// at the root layer; a bearer token is never a root credential.
func (p *Pipeline) AuthenticateRoot(ctx context.Context, cred Credential) (domain.Key, error) {
	if cred.Scheme != SchemeKey {
		return domain.Key{}, domain.ErrKeyNotFound()
	}
	k, err := p.keys.ReadByRootValue(ctx, cred.Value)
	if err != nil {
		return domain.Key{}, err
	}
	if !k.Active() {
		return domain.Key{}, domain.ErrKeyNotFound()
	}
	return k.Key, nil
}

// AuthenticateService resolves a service key and checks the owning service
// is enabled, mirroring key_service_authenticate_try + Service::check.
func (p *Pipeline) AuthenticateService(ctx context.Context, cred Credential) (domain.Service, domain.Key, error) {
	if cred.Scheme != SchemeKey {
		return domain.Service{}, domain.Key{}, domain.ErrKeyNotFound()
	}
	k, err := p.keys.ReadByServiceValue(ctx, cred.Value)
	if err != nil {
		return domain.Service{}, domain.Key{}, err
	}
	if !k.Active() || k.ServiceID == nil {
		return domain.Service{}, domain.Key{}, domain.ErrKeyNotFound()
	}
	svc, err := p.store.Services().ReadByID(ctx, *k.ServiceID)
	if err != nil {
		return domain.Service{}, domain.Key{}, err
	}
	if svc == nil {
		return domain.Service{}, domain.Key{}, domain.ErrServiceNotFound()
	}
	if err := svc.Check(); err != nil {
		return domain.Service{}, domain.Key{}, err
	}
	return *svc, k.Key, nil
}

// AuthenticateEither tries a service key first and falls back to a root
// key, matching key_authenticate's try/or_else shape: a nil *domain.Service
// return means the credential authenticated as root.
func (p *Pipeline) AuthenticateEither(ctx context.Context, cred Credential) (*domain.Service, error) {
	svc, _, err := p.AuthenticateService(ctx, cred)
	if err == nil {
		return &svc, nil
	}
	if _, rootErr := p.AuthenticateRoot(ctx, cred); rootErr == nil {
		return nil, nil
	}
	return nil, err
}

// AuthenticateUser verifies a user-scoped credential (a plain key or a
// bearer access token) within service's scope, matching
// user_key_token_authenticate: a key credential requires a KeyTypeKey row;
// a token credential is unsafely decoded to find the signing key, then
// safely re-verified against it before the user is trusted.
func (p *Pipeline) AuthenticateUser(ctx context.Context, service domain.Service, cred Credential) (domain.User, domain.Key, error) {
	switch cred.Scheme {
	case SchemeKey:
		return p.authenticateUserKey(ctx, service, cred.Value)
	case SchemeToken:
		return p.authenticateUserToken(ctx, service, cred.Value)
	default:
		return domain.User{}, domain.Key{}, domain.ErrCredentialMalformed()
	}
}

func (p *Pipeline) authenticateUserKey(ctx context.Context, service domain.Service, value string) (domain.User, domain.Key, error) {
	k, err := p.keys.ReadByUserValue(ctx, service.ID, value, domain.KeyTypeKey)
	if err != nil {
		return domain.User{}, domain.Key{}, err
	}
	if !k.Active() || k.UserID == nil {
		return domain.User{}, domain.Key{}, domain.ErrKeyNotFound()
	}
	usr, err := p.readUserChecked(ctx, *k.UserID)
	if err != nil {
		return domain.User{}, domain.Key{}, err
	}
	return usr, k.Key, nil
}

func (p *Pipeline) authenticateUserToken(ctx context.Context, service domain.Service, token string) (domain.User, domain.Key, error) {
	userID, typ, err := p.jwt.UnsafeUser(token, service.ID)
	if err != nil {
		return domain.User{}, domain.Key{}, err
	}
	if typ != jwtengine.TypeAccess {
		return domain.User{}, domain.Key{}, domain.ErrJwtInvalidOrExpired()
	}

	usr, err := p.readUserChecked(ctx, userID)
	if err != nil {
		return domain.User{}, domain.Key{}, err
	}

	k, err := p.keys.ReadByUser(ctx, service.ID, userID, domain.KeyTypeToken)
	if err != nil {
		return domain.User{}, domain.Key{}, err
	}
	if !k.Active() {
		return domain.User{}, domain.Key{}, domain.ErrKeyNotFound()
	}

	if _, err := p.jwt.Decode(service.ID, userID, jwtengine.TypeAccess, k.Value, token); err != nil {
		return domain.User{}, domain.Key{}, err
	}
	return usr, k.Key, nil
}

func (p *Pipeline) readUserChecked(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := p.store.Users().ReadByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if u == nil {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if err := u.Check(); err != nil {
		return domain.User{}, err
	}
	return *u, nil
}
