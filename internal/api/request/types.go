package request

import "net/url"

// LoginForm is the OAuth2 password-grant form posted to the authenticate endpoint
type LoginForm struct {
	Username string
	Password string
}

// Values encodes the form; the grant type is fixed to password
func (f LoginForm) Values() url.Values {
	return url.Values{
		"username":   {f.Username},
		"password":   {f.Password},
		"grant_type": {"password"},
	}
}

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest is the request body for confirming an email address
type VerifyRequest struct {
	Token string `json:"token"`
}
