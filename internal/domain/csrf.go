package domain

import (
	"time"

	"github.com/google/uuid"
)

// Csrf is a short-lived, single-use, service-scoped nonce. It serves two
// roles: a CSRF code embedded in a CSRF-bound JWT's x-csrf claim (value ==
// key), and PKCE verifier storage for the Microsoft OAuth2 flow (key ==
// provider state, value == PKCE verifier). Reading a row deletes it.
type Csrf struct {
	Key       string
	Value     string
	ServiceID uuid.UUID
	TTL       time.Time // absolute expiry
}

func (c *Csrf) Expired(now time.Time) bool {
	return now.After(c.TTL)
}

// CsrfCreate is the insertion payload. Key is stored exactly as given; an
// empty Key is not replaced by the store. csrf.Registry supplies a fresh
// random high-entropy key (the JWT CSRF-bound path always wants
// key==value, so the generator writes both in one call).
type CsrfCreate struct {
	Key       string
	Value     string
	ServiceID uuid.UUID
	TTL       time.Duration
}
