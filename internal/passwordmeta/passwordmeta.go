// Package passwordmeta computes the advisory password-quality metadata
// attached to login/register/reset responses: a zxcvbn strength score and
// a k-anonymity breach check against the Pwned Passwords range API. Either
// signal is allowed to degrade to nil on failure; neither ever blocks the
// primary auth flow (see sso/src/driver/pattern.rs::password_meta, whose
// "warn and continue" shape this mirrors).
package passwordmeta

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ccojocar/zxcvbn-go"
	"github.com/mojzu/sso/internal/domain"
	"github.com/rs/zerolog"
)

const defaultPwnedRangeURL = "https://api.pwnedpasswords.com/range/"

// Checker evaluates password strength and, optionally, breach exposure.
type Checker struct {
	PwnedEnabled bool
	RangeURL     string // override for tests, defaults to the live API
	HTTPClient   *http.Client
	Log          zerolog.Logger
}

func New(pwnedEnabled bool, log zerolog.Logger) *Checker {
	return &Checker{
		PwnedEnabled: pwnedEnabled,
		RangeURL:     defaultPwnedRangeURL,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		Log:          log,
	}
}

// Evaluate mirrors password_meta's three-way match on the input: empty
// password is the invalid sentinel, a present password gets scored and
// checked, and callers with no password at all (oauth2 provisioning) get
// the zero value.
func (c *Checker) Evaluate(ctx context.Context, password string) domain.PasswordMeta {
	if password == "" {
		return domain.PasswordMetaInvalid()
	}

	var meta domain.PasswordMeta

	score := c.strength(password)
	meta.PasswordStrength = &score

	pwned, err := c.pwned(ctx, password)
	if err != nil {
		c.Log.Warn().Err(err).Msg("password pwned check failed")
	} else {
		meta.PasswordPwned = &pwned
	}

	return meta
}

func (c *Checker) strength(password string) int {
	result := zxcvbn.PasswordStrength(password, nil)
	return result.Score
}

// sha1Prefix returns the uppercase hex SHA1 digest split into the 5-char
// prefix sent to the range API and the remaining suffix compared locally.
func sha1Prefix(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	return hash[:5], hash[5:]
}

// pwned hashes password with SHA1 and sends only the first five hex
// characters of the digest to the range endpoint, matching every
// k-anonymity client for this API: the server can narrow down to roughly
// a thousand candidate suffixes but never learns which password it was.
func (c *Checker) pwned(ctx context.Context, password string) (bool, error) {
	if !c.PwnedEnabled {
		return false, domain.New(domain.KindInfrastructure, "pwned_passwords_disabled", "pwned passwords check is disabled")
	}

	prefix, suffix := sha1Prefix(password)
	url := c.RangeURL
	if url == "" {
		url = defaultPwnedRangeURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+prefix, nil)
	if err != nil {
		return false, domain.ErrInternal(err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, domain.Wrap(domain.KindInfrastructure, "pwned_passwords_unreachable", "pwned passwords api unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, domain.Wrap(domain.KindInfrastructure, "pwned_passwords_bad_status", "pwned passwords api error status", fmt.Errorf("status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		if line[:colon] == suffix {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, domain.Wrap(domain.KindInfrastructure, "pwned_passwords_read_failed", "pwned passwords response read failed", err)
	}
	return false, nil
}
