package response

import "github.com/mcoot/aiventure/internal/model"

// Token is returned by the authenticate and refresh endpoints
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the current-user record
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
}

// ToProfile converts the wire record to a model.Profile
func (u User) ToProfile() *model.Profile {
	return &model.Profile{
		ID:         u.ID,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
	}
}

// UserFromProfile converts a model.Profile to its wire form
func UserFromProfile(p *model.Profile) User {
	return User{
		ID:         p.ID,
		Email:      p.Email,
		IsAdmin:    p.IsAdmin,
		IsVerified: p.IsVerified,
	}
}

// StatusMessage is the generic {status, message} reply
type StatusMessage struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Health is the health endpoint reply
type Health struct {
	Status string `json:"status"`
}

// Version is the version endpoint reply
type Version struct {
	Version string `json:"version"`
}
