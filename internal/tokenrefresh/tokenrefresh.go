// Package tokenrefresh implements the token_refresh operation shared by
// every provider in §4.3/§4.5: a Refresh token is CSRF-bound and
// one-shot, so redeeming it consumes the CSRF row that proves the
// caller holds the latest-minted refresh token and mints a fresh
// Access+Refresh pair signed by the same user key. This lives outside
// internal/localauth since refresh applies equally to tokens minted by
// the OAuth2 provider, mirroring how the original system's Jwt/Csrf
// layer has no notion of which provider a token came from.
package tokenrefresh

import (
	"context"
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

const auditTypeRefresh = "auth_token_refresh"

type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

type Engine struct {
	store store.Store
	keys  *keyengine.Engine
	jwt   *jwtengine.Engine
	csrf  *csrf.Registry
	audit *audit.Engine
	log   zerolog.Logger
	ttl   TokenTTL
}

func New(s store.Store, keys *keyengine.Engine, jwt *jwtengine.Engine, csrfReg *csrf.Registry, auditEngine *audit.Engine, log zerolog.Logger, ttl TokenTTL) *Engine {
	return &Engine{store: s, keys: keys, jwt: jwt, csrf: csrfReg, audit: auditEngine, log: log, ttl: ttl}
}

// Refresh decodes a Refresh token via the unsafe-prelude-then-safe-decode
// sequence, consumes its bound CSRF row exactly once, and mints a fresh
// Access+Refresh pair against the same user key. A reused refresh token
// fails BadRequest on the second call since its CSRF row is already
// gone (§8 scenario 2).
func (e *Engine) Refresh(ctx context.Context, service domain.Service, refreshToken string) (domain.UserToken, error) {
	entry := audit.New(auditTypeRefresh).WithService(service.ID)

	userID, typ, err := e.jwt.UnsafeUser(refreshToken, service.ID)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}
	if typ != jwtengine.TypeRefresh {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrJwtInvalidOrExpired()
	}

	usr, err := e.store.Users().ReadByID(ctx, userID)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(500))
		return domain.UserToken{}, err
	}
	if usr == nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrJwtInvalidOrExpired()
	}
	if err := usr.Check(); err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrJwtInvalidOrExpired()
	}
	entry = entry.WithUser(usr.ID)

	key, err := e.keys.ReadByUser(ctx, service.ID, userID, domain.KeyTypeToken)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrJwtInvalidOrExpired()
	}
	entry = entry.WithKey(key.Key.ID)

	decoded, err := e.jwt.Decode(service.ID, userID, jwtengine.TypeRefresh, key.Value, refreshToken)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}
	if decoded.Csrf == nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, domain.ErrCsrfNotFoundOrUsed()
	}
	if _, err := e.csrf.Consume(ctx, service.ID, *decoded.Csrf); err != nil {
		e.audit.Record(ctx, entry.WithStatus(400))
		return domain.UserToken{}, err
	}

	tok, err := e.mintAccessRefresh(ctx, service, usr.ID, key.Value)
	if err != nil {
		e.audit.Record(ctx, entry.WithStatus(500))
		return domain.UserToken{}, err
	}
	e.audit.Record(ctx, entry.WithStatus(200))
	return tok, nil
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
