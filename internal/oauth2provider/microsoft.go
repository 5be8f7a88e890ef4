package oauth2provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MicrosoftClient drives the Microsoft Graph v2.0 authorization-code flow
// with PKCE S256; the token request also carries the client secret, and
// the client counts as configured only when that secret is set.
type MicrosoftClient struct {
	clientID     string
	clientSecret string
	tenant       string
	redirectURI  string
	httpClient   *http.Client
}

func NewMicrosoftClient(clientID, clientSecret, tenant, redirectURI string) *MicrosoftClient {
	if tenant == "" {
		tenant = "common"
	}
	return &MicrosoftClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tenant:       tenant,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *MicrosoftClient) IsConfigured() bool { return c.clientID != "" && c.clientSecret != "" }
func (c *MicrosoftClient) UsesPKCE() bool     { return true }

func (c *MicrosoftClient) authBase() string {
	return "https://login.microsoftonline.com/" + c.tenant + "/oauth2/v2.0"
}

func (c *MicrosoftClient) AuthURL(state, codeChallenge string) string {
	params := url.Values{
		"client_id":             {c.clientID},
		"redirect_uri":          {c.redirectURI},
		"response_type":         {"code"},
		"response_mode":         {"query"},
		"scope":                 {"offline_access https://graph.microsoft.com/User.Read"},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	return c.authBase() + "/authorize?" + params.Encode()
}

type microsoftTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

func (c *MicrosoftClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error) {
	data := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {c.redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase()+"/token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("microsoft token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read microsoft token response: %w", err)
	}
	var tok microsoftTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse microsoft token response: %w", err)
	}
	if tok.Error != "" {
		return "", fmt.Errorf("microsoft token exchange failed: %s: %s", tok.Error, tok.ErrorDesc)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("microsoft token exchange returned no access_token: %s", string(body))
	}
	return tok.AccessToken, nil
}

type microsoftUser struct {
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// UserEmail prefers the mail field; guest and some work/school accounts
// leave it empty, so userPrincipalName (itself email-shaped for these
// tenants) is the fallback.
func (c *MicrosoftClient) UserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://graph.microsoft.com/v1.0/me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("microsoft graph /me request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read microsoft graph response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("microsoft graph /me request failed: %s", string(body))
	}
	var u microsoftUser
	if err := json.Unmarshal(body, &u); err != nil {
		return "", fmt.Errorf("failed to parse microsoft graph user: %w", err)
	}
	if u.Mail != "" {
		return u.Mail, nil
	}
	if u.UserPrincipalName != "" {
		return u.UserPrincipalName, nil
	}
	return "", fmt.Errorf("microsoft graph user has no mail or userPrincipalName")
}
