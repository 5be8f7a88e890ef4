package domain

import "github.com/google/uuid"

// User is global to the install: email is unique across all services,
// and a single user may be shared by several services via distinct keys.
type User struct {
	ID                  uuid.UUID
	IsEnabled           bool
	Name                string
	Email               string
	Locale              string
	Timezone            string
	PasswordHash        string // phc-encoded argon2id, empty if the user has no local password
	PasswordAllowReset  bool
	PasswordRequireUpdate bool
}

// Check returns an error if the user may not authenticate requests.
func (u *User) Check() error {
	if !u.IsEnabled {
		return ErrUserDisabled()
	}
	return nil
}

// HasPassword reports whether a local password hash is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
