package auth

import (
	"context"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
)

// RefreshUser re-validates the primary identity and reloads its profile.
//
// An expired primary token clears that role's session and the primary identity
// without attempting a token refresh. A profile request the service answers with
// errors.ErrUnauthorized triggers one token refresh and one retry; if the refresh
// fails the role's session is cleared. Other failures keep the cached profile.
func (c *Controller) RefreshUser(ctx context.Context) {
	state := c.State()
	role := state.PrimaryRole
	if role == "" {
		return
	}
	sess := state.Session(role)
	logger := c.logger.With().Str("role", role.String()).Logger()

	if !c.sessionValid(sess) {
		logger.Info().Msg("primary session expired")
		c.clearRole(role, sess.ID, metrics.ReasonExpired)
		return
	}

	err := c.fetchProfile(ctx, sess)
	if errors.Is(err, errors.ErrUnauthorized) {
		logger.Info().Msg("profile request unauthorized, refreshing token")
		if !c.validator.AttemptRefresh(ctx, role) {
			logger.Warn().Err(errors.ErrRefreshFailed).Msg("clearing session")
			c.clearRole(role, sess.ID, metrics.ReasonRefreshFailed)
			return
		}
		c.syncStoredTokens(sess)
		err = c.fetchProfile(ctx, sess)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("profile refresh failed, keeping cached profile")
	}
}
