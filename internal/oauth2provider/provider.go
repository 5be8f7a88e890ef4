// Package oauth2provider implements the two OAuth2 login shapes of §4.7:
// GitHub (no PKCE) and Microsoft Graph (PKCE S256). Both exchange a
// provider authorization code for an access token, read the account's
// email from the provider's user-info endpoint, and log in an existing
// user in the service scope — no account is ever auto-created, grounded
// on the teacher's internal/infrastructure/oauth/google.go client shape
// and internal/application/auth/oauth.go's Start/Callback split.
package oauth2provider

import "context"

// Client is the per-provider surface Engine drives. codeChallenge is
// empty and ignored for providers that don't use PKCE (GitHub); for them
// the verifier passed to ExchangeCode is the stored state and is ignored.
type Client interface {
	// IsConfigured reports whether credentials were supplied for this
	// provider; an unconfigured provider can still be compiled in but
	// never started.
	IsConfigured() bool
	AuthURL(state, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (accessToken string, err error)
	UserEmail(ctx context.Context, accessToken string) (email string, err error)
	// UsesPKCE reports whether Start must mint a verifier/challenge pair
	// for this provider.
	UsesPKCE() bool
}
