package model

// Credential is the bearer token for the current session plus the
// verification flag reported by the authentication service
type Credential struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type,omitempty"`
	Verified  bool     `json:"verified"`
	Profile   *Profile `json:"profile,omitempty"`
}

// Valid reports whether the credential carries a usable token
func (c *Credential) Valid() bool {
	return c != nil && c.Token != ""
}

// Profile is the current-user record returned by the authentication service
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
}
