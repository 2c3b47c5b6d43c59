package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeInvalidPassword = "invalid_password"
	ErrCodeNotHost         = "not_host"
	ErrCodeBadRequest      = "bad_request"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrMemberNotFound  = errors.New("member not found")
	ErrNotHost         = errors.New("not host")
	ErrBadRequest      = errors.New("bad request")
)

// CoreError wraps a code and the human-readable message surfaced to the
// requesting connection.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
