package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront session layer
var (
	// Credential errors
	ErrUntrustedServerToken = errors.New("server returned expired token")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidLoginResponse = errors.New("invalid login response")
	ErrRefreshFailed        = errors.New("token refresh failed")
	ErrNoRefreshToken       = errors.New("no refresh token")
	ErrInvalidToken         = errors.New("invalid token")

	// Profile errors
	ErrIncompleteProfile = errors.New("incomplete profile")
	ErrProfileFetch      = errors.New("profile fetch failed")

	// Role errors
	ErrInvalidRole = errors.New("invalid role")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// LoginRejectedError carries the identity service's rejection message verbatim.
type LoginRejectedError struct {
	Message string
}

func (e *LoginRejectedError) Error() string {
	return e.Message
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers only import this package.
func New(text string) error {
	return errors.New(text)
}
