package identity

import (
	"context"

	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
)

// LoginResult is the identity service's answer to a login attempt.
// Success=false carries the rejection in Message; User and Tokens are then empty.
type LoginResult struct {
	Success bool
	Message string
	User    profile.Profile
	Tokens  token.Pair
}

type RefreshResult struct {
	Success bool
	Message string
}

// Service is the remote identity service. Timeouts and retries are its own concern;
// callers only distinguish success from failure.
type Service interface {
	LoginCustomer(ctx context.Context, email, password string) (*LoginResult, error)
	LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error)

	// Refresh renews the role's tokens with the persisted refresh token and persists
	// the new pair itself.
	Refresh(ctx context.Context, role profile.Role) (*RefreshResult, error)

	AdminProfile(ctx context.Context) (*profile.AdminProfile, error)
	CustomerProfile(ctx context.Context) (*profile.CustomerProfile, error)

	// Logout invalidates the role's session with the service.
	Logout(ctx context.Context, role profile.Role) error
}

// Login dispatches to the role-specific login.
func Login(ctx context.Context, s Service, email, password string, role profile.Role) (*LoginResult, error) {
	if role == profile.RoleAdmin {
		return s.LoginAdmin(ctx, email, password)
	}
	return s.LoginCustomer(ctx, email, password)
}
