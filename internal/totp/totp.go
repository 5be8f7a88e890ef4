// Package totp verifies RFC 6238 time-based one-time codes against a
// Totp-type key's seed value, the same otp/totp library dexidp/dex wires
// into its second-factor handler (server/totphandler.go), reused here for
// the Totp key kind from §4.1/§4.8 instead of dex's connector sessions.
package totp

import (
	"time"

	"github.com/pquerna/otp"
	pquernatotp "github.com/pquerna/otp/totp"

	"github.com/mojzu/sso/internal/domain"
)

// Verify checks code against the base32 seed held in a Totp key's value.
// A skew of 1 (accepting the previous and next 30-second step) absorbs
// ordinary clock drift between client and server without materially
// widening the guessing window.
func Verify(seed, code string) error {
	ok, err := pquernatotp.ValidateCustom(code, seed, time.Now(), pquernatotp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return domain.ErrTotpInvalid()
	}
	return nil
}

// GenerateSeed returns a fresh base32 TOTP secret suitable as a Totp
// key's value. Key creation in keyengine does not call it; Totp keys get
// the same random value as other key types.
func GenerateSeed(issuer, accountName string) (string, error) {
	key, err := pquernatotp.Generate(pquernatotp.GenerateOpts{Issuer: issuer, AccountName: accountName})
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return key.Secret(), nil
}
