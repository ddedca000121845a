package model

import "errors"

// Common errors used across the application
var (
	// Credential errors
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrCredentialMalformed = errors.New("credential record is malformed")

	// Entity errors
	ErrInvalidLocation = errors.New("invalid lab location")
)
