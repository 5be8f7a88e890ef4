// Package jwtengine signs and verifies the five claim types from §4.3:
// access, refresh, register, reset-password and revoke tokens. Encoding
// and decoding always happens with the target user's key value as the
// HS256 secret, never a service-wide secret — so revoking or rotating one
// user's key invalidates exactly that user's tokens and no others,
// grounded on the original system's Jwt::encode/decode pair in jwt.rs.
package jwtengine

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

// Type mirrors JwtType's i64 discriminant so the x-type claim round-trips
// as a plain number, matching the wire shape the original system used.
type Type int64

const (
	TypeAccess        Type = 0
	TypeRefresh       Type = 1
	TypeRegister      Type = 2
	TypeResetPassword Type = 3
	TypeRevoke        Type = 4
)

func (t Type) Valid() bool { return t >= TypeAccess && t <= TypeRevoke }

type claims struct {
	XType Type    `json:"x-type"`
	XCsrf *string `json:"x-csrf,omitempty"`
	jwt.RegisteredClaims
}

type Engine struct{}

func New() *Engine { return &Engine{} }

// Encode signs a claim-free (no CSRF) token: used only for access tokens.
func (e *Engine) Encode(serviceID, userID uuid.UUID, t Type, keyValue string, ttl time.Duration) (string, time.Time, error) {
	return e.encode(serviceID, userID, t, keyValue, ttl, nil)
}

// EncodeCSRF signs a token carrying an x-csrf claim equal to csrfValue.
// Every non-access token type is CSRF-bound (§4.3): refresh, register,
// reset-password, and revoke all require the caller to also hold the
// matching single-use CSRF row.
func (e *Engine) EncodeCSRF(serviceID, userID uuid.UUID, t Type, keyValue string, ttl time.Duration, csrfValue string) (string, time.Time, error) {
	return e.encode(serviceID, userID, t, keyValue, ttl, &csrfValue)
}

func (e *Engine) encode(serviceID, userID uuid.UUID, t Type, keyValue string, ttl time.Duration, csrf *string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	c := claims{
		XType: t,
		XCsrf: csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    serviceID.String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString([]byte(keyValue))
	if err != nil {
		return "", time.Time{}, domain.ErrTokenSignFailed(err)
	}
	return signed, exp, nil
}

// Decoded is the result of a verified decode: the token's claimed expiry
// and, for CSRF-bound types, the csrf value the caller must still consume
// against the registry.
type Decoded struct {
	Expiry time.Time
	Csrf   *string
}

// Decode safely verifies a token against serviceID, userID, wantType and
// keyValue. A mismatch on issuer, subject, expiry, signature or x-type all
// collapse to the same ErrJwtInvalidOrExpired — the caller cannot tell
// which check failed, matching the original decode()'s flat DriverError.
func (e *Engine) Decode(serviceID, userID uuid.UUID, wantType Type, keyValue, token string) (Decoded, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrJwtInvalidOrExpired()
		}
		return []byte(keyValue), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(serviceID.String()),
		jwt.WithSubject(userID.String()),
	)
	if err != nil {
		return Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	if c.XType != wantType {
		return Decoded{}, domain.ErrJwtInvalidOrExpired()
	}
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	return Decoded{Expiry: exp, Csrf: c.XCsrf}, nil
}

// UnsafeUser is the "unsafe prelude" pattern from jwt.rs's
// decode_unsafe_user: parses the token's claims WITHOUT verifying the
// signature, just enough to discover which user's key should be loaded to
// perform the real, signature-checked Decode. This is the only place a
// token's claims are trusted before signature verification, and the
// result is only ever used to pick a key to verify against — never to
// authorize anything by itself.
func (e *Engine) UnsafeUser(token string, serviceID uuid.UUID) (uuid.UUID, Type, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	var c claims
	_, _, err := parser.ParseUnverified(token, &c)
	if err != nil {
		return uuid.Nil, 0, domain.ErrJwtInvalidOrExpired()
	}
	iss, err := uuid.Parse(c.Issuer)
	if err != nil || iss != serviceID {
		return uuid.Nil, 0, domain.ErrJwtInvalidOrExpired()
	}
	sub, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, 0, domain.ErrJwtInvalidOrExpired()
	}
	if !c.XType.Valid() {
		return uuid.Nil, 0, domain.ErrJwtInvalidOrExpired()
	}
	return sub, c.XType, nil
}
