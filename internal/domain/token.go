package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserToken is the access/refresh pair minted on a successful login,
// shared by the local-password provider and the OAuth2 callback
// redirect, which carries the same four fields as query parameters (§6).
type UserToken struct {
	UserID               uuid.UUID
	AccessToken          string
	AccessTokenExpires   time.Time
	RefreshToken         string
	RefreshTokenExpires  time.Time
}
