package auth

import (
	"context"

	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
)

// Login authenticates role with the identity service and installs the resulting
// session as the primary identity.
//
// A rejection is returned as *errors.LoginRejectedError carrying the service's
// message unchanged. A token that is already expired on receipt fails with
// errors.ErrUntrustedServerToken. In both cases no state changes. Once the session
// is installed the richer role profile is fetched; failing to get it is not an
// error and the login response profile stays in place.
func (c *Controller) Login(ctx context.Context, email, password string, role profile.Role) (*identity.LoginResult, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidRole, "[Login] %q", string(role))
	}
	logger := c.logger.With().Str("role", role.String()).Logger()

	result, err := identity.Login(ctx, c.deps.Identity, email, password, role)
	if err != nil {
		c.metrics.Login(role.String(), metrics.OutcomeError)
		logger.Warn().Err(err).Msg("login request failed")
		return nil, err
	}
	if result == nil {
		c.metrics.Login(role.String(), metrics.OutcomeError)
		return nil, errors.ErrInvalidLoginResponse
	}
	if !result.Success {
		c.metrics.Login(role.String(), metrics.OutcomeRejected)
		logger.Info().Str("message", result.Message).Msg("login rejected")
		return nil, &errors.LoginRejectedError{Message: result.Message}
	}
	if c.codec.IsExpired(result.Tokens.AccessToken) {
		c.metrics.Login(role.String(), metrics.OutcomeUntrusted)
		logger.Error().Msg("identity service issued an expired access token")
		return nil, errors.ErrUntrustedServerToken
	}
	if profile.IsNil(result.User) || result.User.Role() != role {
		c.metrics.Login(role.String(), metrics.OutcomeError)
		return nil, errors.Wrapf(errors.ErrInvalidLoginResponse, "[Login] missing %s user", role)
	}

	sess, err := c.installLogin(result)
	if err != nil {
		c.metrics.Login(role.String(), metrics.OutcomeError)
		logger.Error().Err(err).Msg("persisting login failed")
		return nil, err
	}
	c.metrics.Login(role.String(), metrics.OutcomeSuccess)
	logger.Info().Str("email", result.User.EmailAddress()).Msg("logged in")

	if err := c.fetchProfile(ctx, sess); err != nil {
		logger.Warn().Err(err).Msg("profile fetch after login failed, keeping login profile")
	}
	return result, nil
}

// installLogin persists the login tokens and provisional profile and makes the
// new session primary.
func (c *Controller) installLogin(result *identity.LoginResult) (Session, error) {
	role := result.User.Role()
	pair := result.Tokens

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.deps.Store.SetTokens(role, pair); err != nil {
		return Session{}, errors.Wrapf(err, "[Login] storing %s tokens", role)
	}
	if err := c.deps.Store.SetUser(result.User); err != nil {
		return Session{}, errors.Wrapf(err, "[Login] storing %s profile", role)
	}

	sess := Session{
		Role:    role,
		ID:      c.newID(),
		Profile: result.User,
		Tokens:  &pair,
	}
	c.state.setSession(sess)
	c.state.PrimaryRole = role
	c.publishLocked()
	return sess, nil
}
