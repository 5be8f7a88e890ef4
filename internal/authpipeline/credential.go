// Package authpipeline resolves an Authorization header into a root key, a
// service plus its key, or a service plus an authenticated user, the same
// try-service-then-fall-back-to-root shape as
// sso/src/driver/pattern.rs::key_authenticate and its *_checked helpers.
package authpipeline

import (
	"strings"

	"github.com/mojzu/sso/internal/domain"
)

// Scheme is the credential kind carried by an Authorization value.
type Scheme int

const (
	SchemeKey Scheme = iota
	SchemeToken
)

// Credential is the parsed Authorization header, the Go analogue of the
// original system's HeaderAuthType sum type (kept as a tagged struct rather
// than an interface since there are exactly two variants and no third is
// expected — see SPEC_FULL.md's "credential polymorphism" note).
type Credential struct {
	Scheme Scheme
	Value  string
}

// ParseAuthorization accepts both the bare `<value>` form (implicit key
// scheme) and the explicit `key <value>` / `token <value>` forms.
func ParseAuthorization(header string) (Credential, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Credential{}, domain.ErrCredentialMissing()
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 1 {
		// A lone scheme word ("key " trims to "key") carries no value.
		switch strings.ToLower(parts[0]) {
		case "key", "token":
			return Credential{}, domain.ErrCredentialMalformed()
		}
		return Credential{Scheme: SchemeKey, Value: parts[0]}, nil
	}

	value := strings.TrimSpace(parts[1])
	if value == "" {
		return Credential{}, domain.ErrCredentialMalformed()
	}
	switch strings.ToLower(parts[0]) {
	case "key":
		return Credential{Scheme: SchemeKey, Value: value}, nil
	case "token":
		return Credential{Scheme: SchemeToken, Value: value}, nil
	default:
		return Credential{}, domain.ErrCredentialMalformed()
	}
}

// Header renders the explicit form, used whenever this repo composes a
// header itself rather than merely accepting one.
func (c Credential) Header() string {
	if c.Scheme == SchemeToken {
		return "token " + c.Value
	}
	return "key " + c.Value
}
