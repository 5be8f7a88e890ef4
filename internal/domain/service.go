package domain

import "github.com/google/uuid"

// Service is a tenant: the owner of a population of users and the
// service-scoped keys that authenticate them.
type Service struct {
	ID                     uuid.UUID
	IsEnabled              bool
	Name                   string
	URL                    string
	ProviderLocalURL       string // local callback URL, receives minted tokens after OAuth2 callback
	ProviderGithubOAuth2URL    string
	ProviderMicrosoftOAuth2URL string
	UserAllowRegister      bool
	UserEmailText          string
}

// Check returns an error if the service may not authenticate requests.
func (s *Service) Check() error {
	if !s.IsEnabled {
		return ErrServiceDisabled()
	}
	return nil
}
