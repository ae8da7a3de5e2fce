package sessionstore

import (
	"errors"

	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
)

// Store persists the credential pair and cached profile per role.
// All writes are whole-value replacements for one role.
type Store interface {
	// Tokens returns the persisted pair for role, or nil when none is stored
	Tokens(role profile.Role) (*token.Pair, error)

	// SetTokens replaces the persisted pair for role
	SetTokens(role profile.Role, pair token.Pair) error

	// User returns the cached profile for role, or nil when none is stored
	User(role profile.Role) (profile.Profile, error)

	// SetUser replaces the cached profile of the profile's own role
	SetUser(p profile.Profile) error

	// Clear removes both tokens and profile for role
	Clear(role profile.Role) error
}

// AccessToken returns the persisted access token for role, empty when absent or unreadable.
func AccessToken(s Store, role profile.Role) string {
	pair, err := s.Tokens(role)
	if err != nil || pair == nil {
		return ""
	}
	return pair.AccessToken
}

// RefreshToken returns the persisted refresh token for role, empty when absent or unreadable.
func RefreshToken(s Store, role profile.Role) string {
	pair, err := s.Tokens(role)
	if err != nil || pair == nil {
		return ""
	}
	return pair.RefreshToken
}

// ClearAll clears every role, attempting all of them before reporting errors.
func ClearAll(s Store) error {
	var errs []error
	for _, role := range profile.Roles {
		if err := s.Clear(role); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
