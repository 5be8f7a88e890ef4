package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/mojzu/sso/internal/domain"
)

var validate = validator.New()

// Validate runs struct-tag validation and maps the first failing field
// onto the domain's bad-request taxonomy, matching the teacher's
// app/handlers/validation.go convention of a single shared *validator.Validate.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domain.ErrInvalidField(fe.Field(), fe.Tag())
		}
		return domain.ErrInvalidField("request", err.Error())
	}
	return nil
}

// -------- Local-password auth (§4.6) --------

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type UpdateEmailRequest struct {
	Password string `json:"password" validate:"required"`
	NewEmail string `json:"new_email" validate:"required,email"`
}

type UpdatePasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type RevokeRequest struct {
	Token string `json:"token" validate:"required"`
}

// -------- Token refresh (§4.3, §4.5) --------

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// -------- OAuth2 (§4.7) --------

// OAuth2CallbackQuery is filled from the callback's query string, not JSON.
type OAuth2CallbackQuery struct {
	State string `validate:"required"`
	Code  string `validate:"required"`
}

// -------- Service / user / key admin surface (root- and service-scoped) --------

type ServiceCreateRequest struct {
	Name                       string `json:"name" validate:"required"`
	URL                        string `json:"url" validate:"required,url"`
	ProviderLocalURL           string `json:"provider_local_url"`
	ProviderGithubOAuth2URL    string `json:"provider_github_oauth2_url"`
	ProviderMicrosoftOAuth2URL string `json:"provider_microsoft_oauth2_url"`
	UserAllowRegister          bool   `json:"user_allow_register"`
	UserEmailText              string `json:"user_email_text"`
	IsEnabled                  bool   `json:"is_enabled"`
}

type UserCreateRequest struct {
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Locale             string `json:"locale"`
	Timezone           string `json:"timezone"`
	IsEnabled          bool   `json:"is_enabled"`
	PasswordAllowReset bool   `json:"password_allow_reset"`
}

type KeyCreateRootRequest struct {
	IsEnabled bool   `json:"is_enabled"`
	Name      string `json:"name"`
}

type KeyCreateServiceRequest struct {
	IsEnabled bool   `json:"is_enabled"`
	Name      string `json:"name"`
	ServiceID string `json:"service_id" validate:"required,uuid4"`
}

type KeyCreateUserRequest struct {
	IsEnabled bool   `json:"is_enabled"`
	Type      string `json:"type" validate:"required,oneof=key token totp"`
	Name      string `json:"name"`
	ServiceID string `json:"service_id" validate:"required,uuid4"`
	UserID    string `json:"user_id" validate:"required,uuid4"`
}

type KeyUpdateRequest struct {
	IsEnabled *bool   `json:"is_enabled"`
	IsRevoked *bool   `json:"is_revoked"`
	Name      *string `json:"name"`
}

// -------- Audit listing (§4.4) --------

type AuditUpdateRequest struct {
	Subject    *string        `json:"subject"`
	Data       map[string]any `json:"data"`
	StatusCode *int           `json:"status_code"`
}
