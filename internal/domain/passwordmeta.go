package domain

// PasswordMeta is advisory-only metadata attached to login/register/reset
// responses. Either field may be nil on failure of the underlying check;
// neither ever gates the primary flow (§4.8, §9 "Password oracle").
type PasswordMeta struct {
	PasswordStrength *int  // 0-4 zxcvbn-style score
	PasswordPwned    *bool // true if found in a breached-password corpus
}

// Invalid is used for an empty password: lowest strength, treated as pwned.
func PasswordMetaInvalid() PasswordMeta {
	zero := 0
	yes := true
	return PasswordMeta{PasswordStrength: &zero, PasswordPwned: &yes}
}
