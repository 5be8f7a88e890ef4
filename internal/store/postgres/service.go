package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mojzu/sso/internal/domain"
)

type ServiceRepo struct {
	db *sql.DB
}

func (r *ServiceRepo) Create(ctx context.Context, s domain.Service) (domain.Service, error) {
	if s.ID == uuid.Nil {
		s.ID = domain.NewID()
	}
	const q = `
INSERT INTO service (id, is_enabled, name, url, provider_local_url, provider_github_oauth2_url, provider_microsoft_oauth2_url, user_allow_register, user_email_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, is_enabled, name, url, provider_local_url, provider_github_oauth2_url, provider_microsoft_oauth2_url, user_allow_register, user_email_text;
`
	var out domain.Service
	err := r.db.QueryRowContext(ctx, q,
		s.ID, s.IsEnabled, s.Name, s.URL, s.ProviderLocalURL, s.ProviderGithubOAuth2URL, s.ProviderMicrosoftOAuth2URL, s.UserAllowRegister, s.UserEmailText,
	).Scan(&out.ID, &out.IsEnabled, &out.Name, &out.URL, &out.ProviderLocalURL, &out.ProviderGithubOAuth2URL, &out.ProviderMicrosoftOAuth2URL, &out.UserAllowRegister, &out.UserEmailText)
	if err != nil {
		return domain.Service{}, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *ServiceRepo) ReadByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	const q = `
SELECT id, is_enabled, name, url, provider_local_url, provider_github_oauth2_url, provider_microsoft_oauth2_url, user_allow_register, user_email_text
FROM service WHERE id = $1;
`
	var out domain.Service
	err := r.db.QueryRowContext(ctx, q, id).Scan(&out.ID, &out.IsEnabled, &out.Name, &out.URL, &out.ProviderLocalURL, &out.ProviderGithubOAuth2URL, &out.ProviderMicrosoftOAuth2URL, &out.UserAllowRegister, &out.UserEmailText)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.ErrDBUnavailable(err)
	}
	return &out, nil
}
