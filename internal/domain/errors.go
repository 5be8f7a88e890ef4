package domain

import (
	"errors"
	"fmt"
)

// ErrKind maps domain errors onto the five-member taxonomy of §7 plus an
// internal split for HTTP status mapping (Infrastructure and Internal both
// render as a generic 5xx to callers; audit keeps the more specific code).
type ErrKind string

const (
	KindUnauthenticated ErrKind = "unauthenticated" // 401
	KindForbidden       ErrKind = "forbidden"       // 403
	KindBadRequest      ErrKind = "bad_request"     // 400
	KindNotFound        ErrKind = "not_found"       // 404
	KindInfrastructure  ErrKind = "infrastructure"  // 503
	KindInternal        ErrKind = "internal"        // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ----------------------
// Unauthenticated (401) — credential missing, malformed, or wrong kind.
// ----------------------

func ErrCredentialMissing() *Error {
	return New(KindUnauthenticated, "credential_missing", "missing Authorization credential")
}

func ErrCredentialMalformed() *Error {
	return New(KindUnauthenticated, "credential_malformed", "malformed Authorization credential")
}

// ----------------------
// Forbidden (403) — authenticated but disallowed, or a miss along the key
// routing path that MUST NOT disclose which counterparty is absent.
// ----------------------

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "forbidden")
}

// ErrKeyNotFound covers every miss along a key lookup path: wrong kind
// (service value presented to a root lookup, etc.) and genuine absence are
// indistinguishable to the caller by design (§4.1).
func ErrKeyNotFound() *Error {
	return New(KindForbidden, "key_not_found", "forbidden")
}

func ErrKeyDisabled() *Error {
	return New(KindForbidden, "key_disabled", "forbidden")
}

func ErrKeyRevoked() *Error {
	return New(KindForbidden, "key_revoked", "forbidden")
}

func ErrServiceDisabled() *Error {
	return New(KindForbidden, "service_disabled", "forbidden")
}

// ErrRateLimited reports a fixed-window rate-limit rejection. The
// five-member taxonomy of §7 has no dedicated "too many requests" kind,
// so this collapses onto Forbidden like every other access rejection
// ambient to the transport layer.
func ErrRateLimited(routeKey string) *Error {
	return WithMeta(New(KindForbidden, "rate_limited", "rate limit exceeded"), map[string]string{
		"route": routeKey,
	})
}

func ErrUserDisabled() *Error {
	return New(KindForbidden, "user_disabled", "forbidden")
}

// ----------------------
// BadRequest (400) — validation failures and every provider-side miss that
// must not leak presence/absence of a counterparty.
// ----------------------

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindBadRequest, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindBadRequest, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindBadRequest, "invalid_json", "invalid JSON body", cause)
}

// ErrLoginFailed collapses unknown-email, disabled-user and wrong-password
// into one shape — enumeration resistance at the provider layer, §4.6/§8
// scenario 6.
func ErrLoginFailed() *Error {
	return New(KindBadRequest, "login_failed", "invalid credentials")
}

func ErrUserKeyNotFound() *Error {
	return New(KindBadRequest, "user_key_not_found", "no matching credential")
}

func ErrServiceNotFound() *Error {
	return New(KindBadRequest, "service_not_found", "service not found")
}

func ErrUserNotFound() *Error {
	return New(KindBadRequest, "user_not_found", "user not found")
}

func ErrEmailAlreadyExists() *Error {
	return New(KindBadRequest, "email_already_exists", "email already registered")
}

func ErrCsrfNotFoundOrUsed() *Error {
	return New(KindBadRequest, "csrf_not_found_or_used", "csrf token not found or already used")
}

func ErrJwtInvalidOrExpired() *Error {
	return New(KindBadRequest, "jwt_invalid_or_expired", "token invalid or expired")
}

func ErrKeyUserTokenConstraint() *Error {
	return New(KindBadRequest, "key_user_token_constraint", "an enabled token key already exists for this user")
}

func ErrKeyUserTotpConstraint() *Error {
	return New(KindBadRequest, "key_user_totp_constraint", "an enabled totp key already exists for this user")
}

func ErrTotpInvalid() *Error {
	return New(KindBadRequest, "totp_invalid", "totp code invalid")
}

func ErrOAuth2ProviderFailed(cause error) *Error {
	return Wrap(KindBadRequest, "oauth2_provider_failed", "oauth2 provider exchange failed", cause)
}

func ErrOAuth2UnknownEmail() *Error {
	return New(KindBadRequest, "oauth2_unknown_email", "no user found for provider email")
}

func ErrOAuth2ProviderUnconfigured(provider string) *Error {
	return WithMeta(New(KindBadRequest, "oauth2_provider_unconfigured", "oauth2 provider not configured"), map[string]string{
		"provider": provider,
	})
}

// ----------------------
// NotFound (404) — only for direct reads by id.
// ----------------------

func ErrAuditNotFound() *Error {
	return New(KindNotFound, "audit_not_found", "audit row not found")
}

func ErrAuditUpdateWindowClosed() *Error {
	return New(KindNotFound, "audit_update_window_closed", "audit row is outside the update grace window")
}

// ----------------------
// Infrastructure / Internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrMailUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "mail_unavailable", "mail sink unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
