package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the authentication service
type Error struct {
	StatusCode int
	Message    string
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// body covers both error shapes the server emits: the framework's
// {"detail": ...} and the handler-written {"status": false, "message": ...}
type body struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// FromResponse builds an Error from a status code and raw response body
func FromResponse(status int, raw []byte) *Error {
	e := &Error{StatusCode: status}

	var b body
	if err := json.Unmarshal(raw, &b); err == nil {
		switch {
		case b.Message != "":
			e.Message = b.Message
		case len(b.Detail) > 0:
			var detail string
			if json.Unmarshal(b.Detail, &detail) == nil {
				e.Message = detail
			} else {
				e.Message = string(b.Detail)
			}
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// StatusCode extracts the HTTP status from err, if it carries one
func StatusCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode, true
	}
	return 0, false
}

// IsUnauthorized reports whether err is a 401 or 403 API error
func IsUnauthorized(err error) bool {
	code, ok := StatusCode(err)
	return ok && (code == http.StatusUnauthorized || code == http.StatusForbidden)
}
