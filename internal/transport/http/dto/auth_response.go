package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

// TokenView is the wire shape of domain.UserToken.
type TokenView struct {
	AccessToken         string    `json:"access_token"`
	AccessTokenExpires  time.Time `json:"access_token_expires"`
	RefreshToken        string    `json:"refresh_token"`
	RefreshTokenExpires time.Time `json:"refresh_token_expires"`
}

func NewTokenView(t domain.UserToken) TokenView {
	return TokenView{
		AccessToken:         t.AccessToken,
		AccessTokenExpires:  t.AccessTokenExpires,
		RefreshToken:        t.RefreshToken,
		RefreshTokenExpires: t.RefreshTokenExpires,
	}
}

// PasswordMetaView carries the advisory strength/breach signals of §4.8;
// either field may be nil when the check failed or was skipped.
type PasswordMetaView struct {
	PasswordStrength *int  `json:"password_strength,omitempty"`
	PasswordPwned    *bool `json:"password_pwned,omitempty"`
}

func NewPasswordMetaView(m domain.PasswordMeta) PasswordMetaView {
	return PasswordMetaView{PasswordStrength: m.PasswordStrength, PasswordPwned: m.PasswordPwned}
}

// LoginData is returned by the login endpoint.
type LoginData struct {
	UserID       uuid.UUID        `json:"user_id"`
	Tokens       TokenView        `json:"tokens"`
	PasswordMeta PasswordMetaView `json:"password_meta"`
}

// RefreshData is returned by the refresh endpoint.
type RefreshData struct {
	UserID uuid.UUID `json:"user_id"`
	Tokens TokenView `json:"tokens"`
}

// OAuth2StartData carries the provider authorization URL the client
// should redirect the end user to.
type OAuth2StartData struct {
	URL string `json:"url"`
}

// -------- Service / user / key / audit admin views --------

type ServiceView struct {
	ID                         uuid.UUID `json:"id"`
	IsEnabled                  bool      `json:"is_enabled"`
	Name                       string    `json:"name"`
	URL                        string    `json:"url"`
	ProviderLocalURL           string    `json:"provider_local_url"`
	ProviderGithubOAuth2URL    string    `json:"provider_github_oauth2_url"`
	ProviderMicrosoftOAuth2URL string    `json:"provider_microsoft_oauth2_url"`
	UserAllowRegister          bool      `json:"user_allow_register"`
	UserEmailText              string    `json:"user_email_text"`
}

func NewServiceView(s domain.Service) ServiceView {
	return ServiceView{
		ID:                         s.ID,
		IsEnabled:                  s.IsEnabled,
		Name:                       s.Name,
		URL:                        s.URL,
		ProviderLocalURL:           s.ProviderLocalURL,
		ProviderGithubOAuth2URL:    s.ProviderGithubOAuth2URL,
		ProviderMicrosoftOAuth2URL: s.ProviderMicrosoftOAuth2URL,
		UserAllowRegister:          s.UserAllowRegister,
		UserEmailText:              s.UserEmailText,
	}
}

type UserView struct {
	ID                 uuid.UUID `json:"id"`
	IsEnabled          bool      `json:"is_enabled"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Locale             string    `json:"locale"`
	Timezone           string    `json:"timezone"`
	HasPassword        bool      `json:"has_password"`
	PasswordAllowReset bool      `json:"password_allow_reset"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:                 u.ID,
		IsEnabled:          u.IsEnabled,
		Name:               u.Name,
		Email:              u.Email,
		Locale:             u.Locale,
		Timezone:           u.Timezone,
		HasPassword:        u.HasPassword(),
		PasswordAllowReset: u.PasswordAllowReset,
	}
}

// KeyView never carries the secret value beyond its creation response.
type KeyView struct {
	ID        uuid.UUID       `json:"id"`
	IsEnabled bool            `json:"is_enabled"`
	IsRevoked bool            `json:"is_revoked"`
	Type      domain.KeyType  `json:"type"`
	Name      string          `json:"name"`
	ServiceID *uuid.UUID      `json:"service_id,omitempty"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
}

func NewKeyView(k domain.Key) KeyView {
	return KeyView{
		ID:        k.ID,
		IsEnabled: k.IsEnabled,
		IsRevoked: k.IsRevoked,
		Type:      k.Type,
		Name:      k.Name,
		ServiceID: k.ServiceID,
		UserID:    k.UserID,
	}
}

// KeyWithValueView is returned exactly once, at creation time.
type KeyWithValueView struct {
	KeyView
	Value string `json:"value"`
}

func NewKeyWithValueView(k domain.KeyWithValue) KeyWithValueView {
	return KeyWithValueView{KeyView: NewKeyView(k.Key), Value: k.Value}
}

type AuditView struct {
	ID         uuid.UUID      `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Type       string         `json:"type"`
	Subject    *string        `json:"subject,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	StatusCode *int           `json:"status_code,omitempty"`
	ServiceID  *uuid.UUID     `json:"service_id,omitempty"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	KeyID      *uuid.UUID     `json:"key_id,omitempty"`
	UserKeyID  *uuid.UUID     `json:"user_key_id,omitempty"`
}

func NewAuditView(a domain.Audit) AuditView {
	return AuditView{
		ID:         a.ID,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
		Type:       a.Type,
		Subject:    a.Subject,
		Data:       a.Data,
		StatusCode: a.StatusCode,
		ServiceID:  a.ServiceID,
		UserID:     a.UserID,
		KeyID:      a.KeyID,
		UserKeyID:  a.UserKeyID,
	}
}
