package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
)

// Initialize reconciles the persisted sessions with their current validity and
// resolves the primary identity. It runs at most once per controller: calls made
// while it is in progress or after it finished return immediately.
//
// Near-expiry tokens are refreshed in the background after the state is published.
// Any failure clears every session (fail closed) and is available from InitError.
func (c *Controller) Initialize(ctx context.Context) {
	if !c.beginInit() {
		c.logger.Debug().Msg("initialization already started, ignoring")
		return
	}

	var pending []Session
	defer func() {
		c.finishInit()
		for _, sess := range pending {
			c.refreshInBackground(ctx, sess)
		}
	}()

	var err error
	pending, err = c.reconcile(ctx)
	if err != nil {
		pending = nil
		c.failClosed(err)
	}
}

func (c *Controller) beginInit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != InitNotStarted {
		return false
	}
	c.phase = InitInProgress
	c.state.IsLoading = true
	c.publishLocked()
	return true
}

func (c *Controller) finishInit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = InitDone
	c.state.IsLoading = false
	c.publishLocked()
}

// reconcile performs the startup sequence and returns the sessions whose tokens
// are close enough to expiry to be refreshed.
func (c *Controller) reconcile(ctx context.Context) (pending []Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			pending = nil
			err = fmt.Errorf("panic during session initialization: %v", r)
		}
	}()

	validity := c.validator.ReconcileStoredTokens()

	// Admin before customer: the customer refetch depends on the admin outcome.
	admin, err := c.loadSession(profile.RoleAdmin, validity.AdminValid)
	if err != nil {
		return nil, err
	}
	customer, err := c.loadSession(profile.RoleCustomer, validity.CustomerValid)
	if err != nil {
		return nil, err
	}

	// A customer profile request while an admin session is active can be resolved
	// against the admin identity by the service, so it is skipped then.
	refetched := false
	if customer.Exists() && !admin.Exists() {
		customer.Profile, refetched = c.refetchCustomer(ctx, customer.Profile)
	}

	primary := c.markers.ResolvePrimary(c.router.CurrentPath(), admin.Exists(), customer.Exists())
	c.logger.Debug().
		Bool("admin_valid", admin.Exists()).
		Bool("customer_valid", customer.Exists()).
		Str("primary", primary.String()).
		Msg("sessions reconciled")

	c.mu.Lock()
	defer c.mu.Unlock()
	// A login that completed meanwhile wins over the persisted state.
	for _, sess := range []Session{admin, customer} {
		if c.state.Session(sess.Role).Exists() {
			continue
		}
		if sess.Role == profile.RoleCustomer && refetched {
			if err := c.deps.Store.SetUser(sess.Profile); err != nil {
				c.logger.Warn().Err(err).Msg("persisting refetched customer profile failed")
			}
		}
		c.state.setSession(sess)
		if sess.Exists() && c.codec.ExpiresWithin(sess.Tokens.AccessToken, c.nearExpiry) {
			pending = append(pending, sess)
		}
	}
	if c.state.PrimaryRole == "" {
		c.state.PrimaryRole = primary
	}
	c.publishLocked()
	return pending, nil
}

// loadSession builds role's session from the store. A session needs both an
// unexpired token pair and a cached profile; a role holding only one of the two
// is cleared.
func (c *Controller) loadSession(role profile.Role, tokensValid bool) (Session, error) {
	empty := Session{Role: role}

	user, err := c.deps.Store.User(role)
	if err != nil {
		return empty, errors.Wrapf(err, "reading stored %s profile", role)
	}
	if !tokensValid {
		if !profile.IsNil(user) {
			c.logger.Info().Str("role", role.String()).Msg("clearing stored profile without valid tokens")
			if err := c.deps.Store.Clear(role); err != nil {
				return empty, errors.Wrapf(err, "clearing stored %s session", role)
			}
		}
		return empty, nil
	}

	pair, err := c.deps.Store.Tokens(role)
	if err != nil {
		return empty, errors.Wrapf(err, "reading stored %s tokens", role)
	}
	if profile.IsNil(user) || pair == nil {
		c.logger.Info().Str("role", role.String()).Msg("clearing stored tokens without profile")
		if err := c.deps.Store.Clear(role); err != nil {
			return empty, errors.Wrapf(err, "clearing stored %s session", role)
		}
		return empty, nil
	}
	if user.Role() != role {
		return empty, errors.Wrapf(errors.ErrInvalidRole, "stored %s profile has role %s", role, user.Role())
	}

	return Session{
		Role:    role,
		ID:      c.newID(),
		Profile: user,
		Tokens:  pair,
	}, nil
}

// refetchCustomer returns the freshly fetched customer profile when it is
// complete, otherwise the cached one. The bool reports whether the fetched
// profile was taken.
func (c *Controller) refetchCustomer(ctx context.Context, cached profile.Profile) (profile.Profile, bool) {
	customer, err := c.deps.Identity.CustomerProfile(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("customer profile refetch failed, keeping stored profile")
		return cached, false
	}
	if !customer.Complete() {
		c.logger.Warn().Msg("refetched customer profile is incomplete, keeping stored profile")
		return cached, false
	}
	return customer, true
}

// failClosed clears both roles in memory and in the store.
func (c *Controller) failClosed(cause error) {
	c.logger.Error().Err(cause).Msg("session initialization failed, clearing all sessions")
	if err := sessionstore.ClearAll(c.deps.Store); err != nil {
		c.logger.Warn().Err(err).Msg("clearing stored sessions failed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErr = cause
	for _, role := range profile.Roles {
		c.state.clearSession(role)
		c.metrics.SessionCleared(role.String(), metrics.ReasonInitFailure)
	}
	c.state.PrimaryRole = ""
	c.publishLocked()
}

// refreshInBackground renews sess's tokens without blocking the caller. The
// refreshed pair is applied only while sess is still the role's session.
func (c *Controller) refreshInBackground(ctx context.Context, sess Session) {
	ctx = context.WithoutCancel(ctx)

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		c.logger.Debug().Str("role", sess.Role.String()).Msg("token near expiry, refreshing")
		if c.validator.AttemptRefresh(ctx, sess.Role) {
			c.syncStoredTokens(sess)
		}
	}()
}
