package identity

import (
	"encoding/json"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/token"
)

// Storefront identity API routes
const (
	PathCustomerLogin   = "/api/auth/customer/login"
	PathAdminLogin      = "/api/auth/admin/login"
	PathRefresh         = "/api/auth/refresh"
	PathLogout          = "/api/auth/logout"
	PathAdminProfile    = "/api/admin/profile"
	PathCustomerProfile = "/api/customer/profile"
)

// LoginRequest is the body of both login routes.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by both login routes. User holds an admin or a
// customer profile depending on the route.
type LoginResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
	Tokens  *token.Pair     `json:"tokens,omitempty"`
}

// RefreshRequest exchanges a refresh token for a new pair. It is also the body of
// the logout route, which revokes the refresh token.
type RefreshRequest struct {
	Role         profile.Role `json:"role"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Tokens  *token.Pair `json:"tokens,omitempty"`
}

type AdminProfileResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Admin   *profile.AdminProfile `json:"admin,omitempty"`
}

type CustomerProfileResponse struct {
	Success  bool                     `json:"success"`
	Message  string                   `json:"message,omitempty"`
	Customer *profile.CustomerProfile `json:"customer,omitempty"`
}

// DecodeUser decodes a login response user for role.
func DecodeUser(role profile.Role, raw json.RawMessage) (profile.Profile, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.Wrapf(errors.ErrInvalidLoginResponse, "missing user")
	}

	var p profile.Profile
	switch role {
	case profile.RoleAdmin:
		p = &profile.AdminProfile{}
	case profile.RoleCustomer:
		p = &profile.CustomerProfile{}
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRole, "%q", string(role))
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidLoginResponse, "decoding %s user: %v", role, err)
	}
	return p, nil
}
