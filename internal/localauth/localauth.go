// Package localauth implements the local-password provider of §4.6:
// login, password reset (request + confirm), email/password update, and
// the shared token-revoke confirm every CSRF-bound mail link ends in.
// Every operation is grounded on the original system's Auth core (login,
// reset_password, reset_password_confirm, update_email, update_password)
// translated onto this repo's authpipeline/keyengine/jwtengine/csrf
// primitives, with the audit-closure idiom from the teacher's
// internal/application/auth/ban.go generalized to record every outcome.
package localauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/audit"
	"github.com/mojzu/sso/internal/csrf"
	"github.com/mojzu/sso/internal/domain"
	"github.com/mojzu/sso/internal/jwtengine"
	"github.com/mojzu/sso/internal/keyengine"
	"github.com/mojzu/sso/internal/mailer"
	"github.com/mojzu/sso/internal/passwordmeta"
	"github.com/mojzu/sso/internal/security/password"
	"github.com/mojzu/sso/internal/store"
	"github.com/rs/zerolog"
)

const (
	auditTypeLogin          = "auth_local_login"
	auditTypeResetRequest   = "auth_local_reset_password"
	auditTypeResetConfirm   = "auth_local_reset_password_confirm"
	auditTypeUpdateEmail    = "auth_local_update_email"
	auditTypeUpdatePassword = "auth_local_update_password"
	auditTypeRevoke         = "auth_local_revoke"
)

// TokenTTL bundles the lifetimes login mints tokens with; every other
// flow (reset, update, revoke) uses Short as the CSRF row and
// short-lived-JWT lifetime, matching §4.3's "short" lifetime class.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
	Short   time.Duration
}

type Provider struct {
	store  store.Store
	keys   *keyengine.Engine
	jwt    *jwtengine.Engine
	csrf   *csrf.Registry
	hasher *password.Hasher
	meta   *passwordmeta.Checker
	audit  *audit.Engine
	mail   mailer.Sink
	log    zerolog.Logger
	ttl    TokenTTL
}

func New(
	s store.Store,
	keys *keyengine.Engine,
	jwt *jwtengine.Engine,
	csrfReg *csrf.Registry,
	hasher *password.Hasher,
	meta *passwordmeta.Checker,
	auditEngine *audit.Engine,
	mail mailer.Sink,
	log zerolog.Logger,
	ttl TokenTTL,
) *Provider {
	return &Provider{
		store: s, keys: keys, jwt: jwt, csrf: csrfReg,
		hasher: hasher, meta: meta, audit: auditEngine, mail: mail,
		log: log, ttl: ttl,
	}
}

// mintAccessRefresh signs an Access token (no CSRF) and a CSRF-bound
// Refresh token against keyValue, matching UserToken's four-field shape
// (§6).
func (p *Provider) mintAccessRefresh(ctx context.Context, service domain.Service, userID uuid.UUID, keyValue string) (domain.UserToken, error) {
	access, accessExp, err := p.jwt.Encode(service.ID, userID, jwtengine.TypeAccess, keyValue, p.ttl.Access)
	if err != nil {
		return domain.UserToken{}, err
	}
	csrfValue, err := p.csrf.Generate(ctx, service.ID, p.ttl.Refresh)
	if err != nil {
		return domain.UserToken{}, err
	}
	refresh, refreshExp, err := p.jwt.EncodeCSRF(service.ID, userID, jwtengine.TypeRefresh, keyValue, p.ttl.Refresh, csrfValue)
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

// Login verifies email+password against the service's Token-typed user
// key and mints an Access+Refresh pair. Every distinguishable failure —
// unknown email, disabled user, missing Token key, wrong password — is
// reported as the same ErrLoginFailed so a caller cannot enumerate valid
// emails (§4.6, §8 scenario 6).
func (p *Provider) Login(ctx context.Context, service domain.Service, email, pw string) (domain.UserToken, domain.PasswordMeta, error) {
	meta := p.meta.Evaluate(ctx, pw)
	entry := audit.New(auditTypeLogin).WithService(service.ID)

	usr, key, err := p.lookupLoginKey(ctx, service, email)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(401))
		return domain.UserToken{}, meta, err
	}
	entry = entry.WithUser(usr.ID).WithKey(key.Key.ID)

	if cmpErr := p.hasher.Compare(usr.PasswordHash, pw); cmpErr != nil {
		p.audit.Record(ctx, entry.WithStatus(401))
		return domain.UserToken{}, meta, domain.ErrLoginFailed()
	}
	if p.hasher.NeedsUpdate(usr.PasswordHash) {
		if rehashed, err := p.hasher.Hash(pw); err == nil {
			_ = p.store.Users().UpdatePasswordHash(ctx, usr.ID, rehashed)
		}
	}

	tok, err := p.mintAccessRefresh(ctx, service, usr.ID, key.Value)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return domain.UserToken{}, meta, err
	}
	p.audit.Record(ctx, entry.WithStatus(200))
	return tok, meta, nil
}

func (p *Provider) lookupLoginKey(ctx context.Context, service domain.Service, email string) (domain.User, domain.KeyWithValue, error) {
	usr, err := p.store.Users().ReadByEmail(ctx, email)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, err
	}
	if usr == nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrLoginFailed()
	}
	if err := usr.Check(); err != nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrLoginFailed()
	}
	if !usr.HasPassword() {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrLoginFailed()
	}
	key, err := p.keys.ReadByUser(ctx, service.ID, usr.ID, domain.KeyTypeToken)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrLoginFailed()
	}
	return *usr, key, nil
}

// RequestPasswordReset never reports failure to the caller: an unknown
// email, a disabled user, a user with password_allow_reset=false, or a
// mail-sink error are all logged and swallowed (§4.6).
func (p *Provider) RequestPasswordReset(ctx context.Context, service domain.Service, email string) {
	entry := audit.New(auditTypeResetRequest).WithService(service.ID)

	usr, err := p.store.Users().ReadByEmail(ctx, email)
	if err != nil || usr == nil || !usr.IsEnabled || !usr.PasswordAllowReset {
		p.audit.Record(ctx, entry.WithStatus(200))
		return
	}
	entry = entry.WithUser(usr.ID)

	key, err := p.keys.ReadByUser(ctx, service.ID, usr.ID, domain.KeyTypeToken)
	if err != nil {
		p.log.Warn().Err(err).Msg("reset password: no token key for user")
		p.audit.Record(ctx, entry.WithStatus(200))
		return
	}
	entry = entry.WithKey(key.Key.ID)

	csrfValue, err := p.csrf.Generate(ctx, service.ID, p.ttl.Short)
	if err != nil {
		p.log.Warn().Err(err).Msg("reset password: csrf generation failed")
		p.audit.Record(ctx, entry.WithStatus(200))
		return
	}
	token, _, err := p.jwt.EncodeCSRF(service.ID, usr.ID, jwtengine.TypeResetPassword, key.Value, p.ttl.Short, csrfValue)
	if err != nil {
		p.log.Warn().Err(err).Msg("reset password: token signing failed")
		p.audit.Record(ctx, entry.WithStatus(200))
		return
	}

	resetURL := service.ProviderLocalURL + "?type=reset_password&token=" + token
	body := mailer.ResetPasswordBody(service.Name, resetURL)
	if err := p.mail.Send(ctx, mailer.Message{To: usr.Email, FromName: service.UserEmailText, Subject: "Reset your password", Text: body}); err != nil {
		p.log.Warn().Err(err).Msg("reset password: mail send failed")
	}
	p.audit.Record(ctx, entry.WithStatus(200))
}

// ConfirmPasswordReset decodes a ResetPassword token via the unsafe
// prelude, consumes its bound CSRF row exactly once, updates the
// password hash, and mints + emails a Revoke token so the change can be
// undone (§4.6).
func (p *Provider) ConfirmPasswordReset(ctx context.Context, service domain.Service, token, newPassword string) error {
	entry := audit.New(auditTypeResetConfirm).WithService(service.ID)

	usr, key, decoded, err := p.decodeUserToken(ctx, service, token, jwtengine.TypeResetPassword)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(400))
		return err
	}
	entry = entry.WithUser(usr.ID).WithKey(key.Key.ID)

	if decoded.Csrf == nil {
		p.audit.Record(ctx, entry.WithStatus(400))
		return domain.ErrCsrfNotFoundOrUsed()
	}
	if _, err := p.csrf.Consume(ctx, service.ID, *decoded.Csrf); err != nil {
		p.audit.Record(ctx, entry.WithStatus(400))
		return err
	}

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}
	if err := p.store.Users().UpdatePasswordHash(ctx, usr.ID, hash); err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}

	p.mintAndSendRevoke(ctx, service, usr, key, mailer.ResetPasswordConfirmBody)
	p.audit.Record(ctx, entry.WithStatus(200))
	return nil
}

// UpdateEmail re-verifies the caller's password before changing email,
// then notifies both the old and new address with a Revoke link (§4.6).
func (p *Provider) UpdateEmail(ctx context.Context, service domain.Service, userID uuid.UUID, pw, newEmail string) error {
	entry := audit.New(auditTypeUpdateEmail).WithService(service.ID).WithUser(userID)

	usr, key, err := p.verifyUserPassword(ctx, service, userID, pw)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(401))
		return err
	}
	entry = entry.WithKey(key.Key.ID)

	oldEmail := usr.Email
	diff := audit.NewDiffBuilder().Compare("email", newEmail, oldEmail)
	if err := p.store.Users().UpdateEmail(ctx, usr.ID, newEmail); err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}

	revokeToken, err := p.mintRevokeToken(ctx, service, usr.ID, key.Value)
	if err == nil {
		revokeURL := service.ProviderLocalURL + "?type=revoke&token=" + revokeToken
		body := mailer.UpdateEmailBody(service.Name, newEmail, revokeURL)
		_ = p.mail.Send(ctx, mailer.Message{To: oldEmail, FromName: service.UserEmailText, Subject: "Your email address changed", Text: body})
		_ = p.mail.Send(ctx, mailer.Message{To: newEmail, FromName: service.UserEmailText, Subject: "Your email address changed", Text: body})
	}

	p.audit.Record(ctx, entry.WithDiff(diff).WithStatus(200))
	return nil
}

// UpdatePassword re-verifies the caller's password before changing it,
// analogous to UpdateEmail (§4.6).
func (p *Provider) UpdatePassword(ctx context.Context, service domain.Service, userID uuid.UUID, pw, newPassword string) error {
	entry := audit.New(auditTypeUpdatePassword).WithService(service.ID).WithUser(userID)

	usr, key, err := p.verifyUserPassword(ctx, service, userID, pw)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(401))
		return err
	}
	entry = entry.WithKey(key.Key.ID)

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}
	if err := p.store.Users().UpdatePasswordHash(ctx, usr.ID, hash); err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}

	p.mintAndSendRevoke(ctx, service, usr, key, func(name, revokeURL string) string {
		return mailer.UpdatePasswordBody(name, revokeURL)
	})
	p.audit.Record(ctx, entry.WithStatus(200))
	return nil
}

// Revoke decodes a Revoke token and disables+revokes the user key it was
// minted from, invalidating every token signed with that key (§4.6).
func (p *Provider) Revoke(ctx context.Context, service domain.Service, token string) error {
	entry := audit.New(auditTypeRevoke).WithService(service.ID)

	usr, key, decoded, err := p.decodeUserToken(ctx, service, token, jwtengine.TypeRevoke)
	if err != nil {
		p.audit.Record(ctx, entry.WithStatus(400))
		return err
	}
	entry = entry.WithUser(usr.ID).WithKey(key.Key.ID)

	if decoded.Csrf != nil {
		if _, err := p.csrf.Consume(ctx, service.ID, *decoded.Csrf); err != nil {
			p.audit.Record(ctx, entry.WithStatus(400))
			return err
		}
	}

	disabled := false
	revoked := true
	if _, err := p.keys.Update(ctx, key.Key.ID, &disabled, &revoked, nil); err != nil {
		p.audit.Record(ctx, entry.WithStatus(500))
		return err
	}
	p.audit.Record(ctx, entry.WithStatus(200))
	return nil
}

func (p *Provider) verifyUserPassword(ctx context.Context, service domain.Service, userID uuid.UUID, pw string) (domain.User, domain.KeyWithValue, error) {
	usr, err := p.store.Users().ReadByID(ctx, userID)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, err
	}
	if usr == nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrUserNotFound()
	}
	if err := usr.Check(); err != nil {
		return domain.User{}, domain.KeyWithValue{}, err
	}
	if cmpErr := p.hasher.Compare(usr.PasswordHash, pw); cmpErr != nil {
		return domain.User{}, domain.KeyWithValue{}, domain.ErrLoginFailed()
	}
	key, err := p.keys.ReadByUser(ctx, service.ID, usr.ID, domain.KeyTypeToken)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, err
	}
	return *usr, key, nil
}

// decodeUserToken runs the unsafe-prelude-then-safe-decode sequence
// shared by every CSRF-bound confirm flow: find which user the token
// claims, load their Token-typed signing key, and re-verify the
// signature and type against it.
func (p *Provider) decodeUserToken(ctx context.Context, service domain.Service, token string, wantType jwtengine.Type) (domain.User, domain.KeyWithValue, jwtengine.Decoded, error) {
	userID, typ, err := p.jwt.UnsafeUser(token, service.ID)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, err
	}
	if typ != wantType {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	usr, err := p.store.Users().ReadByID(ctx, userID)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, err
	}
	if usr == nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	if err := usr.Check(); err != nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, err
	}
	key, err := p.keys.ReadByUser(ctx, service.ID, userID, domain.KeyTypeToken)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	decoded, err := p.jwt.Decode(service.ID, userID, wantType, key.Value, token)
	if err != nil {
		return domain.User{}, domain.KeyWithValue{}, jwtengine.Decoded{}, err
	}
	return *usr, key, decoded, nil
}

func (p *Provider) mintRevokeToken(ctx context.Context, service domain.Service, userID uuid.UUID, keyValue string) (string, error) {
	csrfValue, err := p.csrf.Generate(ctx, service.ID, p.ttl.Short)
	if err != nil {
		return "", err
	}
	token, _, err := p.jwt.EncodeCSRF(service.ID, userID, jwtengine.TypeRevoke, keyValue, p.ttl.Short, csrfValue)
	return token, err
}

func (p *Provider) mintAndSendRevoke(ctx context.Context, service domain.Service, usr domain.User, key domain.KeyWithValue, render func(serviceName, revokeURL string) string) {
	token, err := p.mintRevokeToken(ctx, service, usr.ID, key.Value)
	if err != nil {
		p.log.Warn().Err(err).Msg("revoke token minting failed")
		return
	}
	revokeURL := service.ProviderLocalURL + "?type=revoke&token=" + token
	body := render(service.Name, revokeURL)
	if err := p.mail.Send(ctx, mailer.Message{To: usr.Email, FromName: service.UserEmailText, Subject: "Security notice", Text: body}); err != nil {
		p.log.Warn().Err(err).Msg("revoke notification mail send failed")
	}
}
