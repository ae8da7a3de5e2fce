package auth

import (
	"context"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
)

// Logout ends role's session and recomputes the primary identity: the other role
// becomes primary if its token is still valid, otherwise it is cleared as well and
// no identity is primary. Identity service and store failures are logged only.
// A login for the same role that completes meanwhile is left untouched.
func (c *Controller) Logout(ctx context.Context, role profile.Role) error {
	if !role.Valid() {
		return errors.Wrapf(errors.ErrInvalidRole, "[Logout] %q", string(role))
	}

	c.mu.Lock()
	c.state.clearSession(role)
	c.publishLocked()
	c.mu.Unlock()

	// The identity service needs the stored bearer, so the store is cleared after.
	if !c.replaced(role) {
		if err := c.deps.Identity.Logout(ctx, role); err != nil {
			c.logger.Warn().Err(err).Str("role", role.String()).Msg("identity service logout failed")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Session(role).Exists() {
		c.logger.Info().Str("role", role.String()).Msg("new session installed during logout, keeping it")
		return nil
	}
	if err := c.deps.Store.Clear(role); err != nil {
		c.logger.Warn().Err(err).Str("role", role.String()).Msg("clearing stored session failed")
	}
	c.metrics.SessionCleared(role.String(), metrics.ReasonLogout)
	c.logger.Info().Str("role", role.String()).Msg("logged out")

	other := c.state.Session(role.Other())
	switch {
	case c.sessionValid(other):
		c.state.PrimaryRole = other.Role
	case other.Exists():
		c.clearRoleLocked(other.Role, other.ID, metrics.ReasonExpired)
		c.state.PrimaryRole = ""
		c.logger.Info().Str("role", other.Role.String()).Msg("remaining session expired, cleared")
	default:
		c.state.PrimaryRole = ""
	}
	c.publishLocked()
	return nil
}

// replaced reports whether a session was installed for role since it was cleared.
func (c *Controller) replaced(role profile.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Session(role).Exists()
}

// LogoutAll ends both sessions.
func (c *Controller) LogoutAll(ctx context.Context) {
	c.mu.Lock()
	for _, role := range profile.Roles {
		c.state.clearSession(role)
	}
	c.state.PrimaryRole = ""
	c.publishLocked()
	c.mu.Unlock()

	for _, role := range profile.Roles {
		if sessionstore.AccessToken(c.deps.Store, role) == "" {
			continue
		}
		if err := c.deps.Identity.Logout(ctx, role); err != nil {
			c.logger.Warn().Err(err).Str("role", role.String()).Msg("identity service logout failed")
		}
		c.metrics.SessionCleared(role.String(), metrics.ReasonLogout)
	}
	if err := sessionstore.ClearAll(c.deps.Store); err != nil {
		c.logger.Warn().Err(err).Msg("clearing stored sessions failed")
	}
	c.logger.Info().Msg("logged out of all sessions")
}
