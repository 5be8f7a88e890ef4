package oauth2provider

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/audit"
	"github.com/mojzu/sso/internal/csrf"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/jwtengine"
	"github.com/mojzu/sso/internal/keyengine"
	"github.com/mojzu/sso/internal/store"
	"github.com/rs/zerolog"
)

const (
	// ProviderGitHub and ProviderMicrosoft are the only two shapes §4.7
	// defines; any other name is a bad request.
	ProviderGitHub    = "github"
	ProviderMicrosoft = "microsoft"

	auditTypeStart    = "auth_oauth2_start"
	auditTypeCallback = "auth_oauth2_callback"
)

// TokenTTL bundles the access/refresh lifetimes minted on a successful
// callback, and doubles as the CSRF row TTL for the pending authorization
// (§4.7: "TTL = access_token_expires").
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// Engine drives both provider shapes over the shared CSRF registry, key
// engine, and JWT engine — the same primitives localauth mints
// Access+Refresh pairs with, so a login via GitHub or Microsoft produces a
// token indistinguishable in shape from a local-password login (§6).
type Engine struct {
	store  store.Store
	keys   *keyengine.Engine
	jwt    *jwtengine.Engine
	csrf   *csrf.Registry
	audit  *audit.Engine
	log    zerolog.Logger
	ttl    TokenTTL
	github Client
	msft   Client
}

func New(s store.Store, keys *keyengine.Engine, jwt *jwtengine.Engine, csrfReg *csrf.Registry, auditEngine *audit.Engine, log zerolog.Logger, ttl TokenTTL, github, microsoft Client) *Engine {
	return &Engine{
		store: s, keys: keys, jwt: jwt, csrf: csrfReg, audit: auditEngine,
		log: log, ttl: ttl, github: github, msft: microsoft,
	}
}

func (e *Engine) client(provider string) (Client, error) {
	switch provider {
	case ProviderGitHub:
		return e.github, nil
	case ProviderMicrosoft:
		return e.msft, nil
	default:
		return nil, domain.New(domain.KindBadRequest, "oauth2_unknown_provider", "unknown oauth2 provider")
	}
}

// generatePKCE produces a verifier/challenge pair for the Microsoft flow;
// GitHub's Start never calls this.
func generatePKCE() (verifier, challenge string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", domain.ErrRandomFailed(err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Start generates the provider authorization URL, persisting whatever the
// callback will need to verify the round trip: for GitHub a bare
// state==state CSRF row, for Microsoft a state->verifier row (§4.7 step 1).
func (e *Engine) Start(ctx context.Context, service domain.Service, provider string) (string, error) {
	entry := audit.New(auditTypeStart).WithService(service.ID)

	client, err := e.client(provider)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return "", err
	}
	if client == nil || !client.IsConfigured() {
		e.audit.Record(ctx, entry.WithStatus(400))
		return "", domain.ErrOAuth2ProviderUnconfigured(provider)
	}

	state, err := randomState()
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(500))
		return "", err
	}

	var challenge string
	if client.UsesPKCE() {
		verifier, c, err := generatePKCE()
		if err != nil {
			e.audit.Record(ctx, entry.WithStatus(500))
			return "", err
		}
		challenge = c
		if err := e.csrf.Store(ctx, service.ID, state, verifier, e.ttl.Access); err != nil {
			e.audit.Record(ctx, entry.WithStatus(500))
			return "", err
		}
	} else {
		if err := e.csrf.Store(ctx, service.ID, state, state, e.ttl.Access); err != nil {
			e.audit.Record(ctx, entry.WithStatus(500))
			return "", err
		}
	}

	e.audit.Record(ctx, entry.WithStatus(200))
	return client.AuthURL(state, challenge), nil
}

// Callback consumes the pending CSRF row, exchanges code at the provider,
// reads the account email, and logs in an existing enabled user in the
// service scope. No account is ever created here: an unknown or
// unreachable email fails bad-request (§4.7).
func (e *Engine) Callback(ctx context.Context, service domain.Service, provider, state, code string) (domain.UserToken, error) {
	entry := audit.New(auditTypeCallback).WithService(service.ID)

	client, err := e.client(provider)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}

	verifier, err := e.csrf.Consume(ctx, service.ID, state)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}

	accessToken, err := client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrOAuth2ProviderFailed(err)
	}

	email, err := client.UserEmail(ctx, accessToken)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrOAuth2ProviderFailed(err)
	}

	usr, key, err := e.lookupLoginKey(ctx, service, email)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}
	entry = entry.WithUser(usr.ID).WithKey(key.Key.ID)

	tok, err := e.mintAccessRefresh(ctx, service, usr.ID, key.Value)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(500))
		return domain.UserToken{}, err
	}
	e.audit.Record(ctx, entry.WithStatus(200))
	return tok, nil
}

// lookupLoginKey collapses unknown email, disabled user, and missing
// Token key into the same ErrOAuth2UnknownEmail (§4.7 "callback on unknown
// email fails bad-request"): no auto-creation means any of these three is
// equally "no account can complete this login".
func (e *Engine) lookupLoginKey(ctx context.Context, service domain.Service, email string) (domain.User, domain.KeyWithValue, error) {
	usr, err := e.store.Users().ReadByEmail(ctx, email)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, err
	}
	if usr == nil || !usr.IsEnabled {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrOAuth2UnknownEmail()
	}
	key, err := e.keys.ReadByUser(ctx, service.ID, usr.ID, domain.KeyTypeToken)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrOAuth2UnknownEmail()
	}
	return *usr, key, nil
}

func (e *Engine) mintAccessRefresh(ctx context.Context, service domain.Service, userID uuid.UUID, keyValue string) (domain.UserToken, error) {
	access, accessExp, err := e.jwt.Encode(service.ID, userID, jwtengine.TypeAccess, keyValue, e.ttl.Access)
	if err != nil {
		return domain.UserToken{}, err
	}
	csrfValue, err := e.csrf.Generate(ctx, service.ID, e.ttl.Refresh)
	if err != nil {
		return domain.UserToken{}, err
	}
	refresh, refreshExp, err := e.jwt.EncodeCSRF(service.ID, userID, jwtengine.TypeRefresh, keyValue, e.ttl.Refresh, csrfValue)
	if err != nil {
		return domain.UserToken{}, err
	}
	return domain.UserToken{
		UserID:              userID,
		AccessToken:         access,
		AccessTokenExpires:  accessExp,
		RefreshToken:        refresh,
		RefreshTokenExpires: refreshExp,
	}, nil
}
