package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/internal/metrics"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dependencies holds the collaborators the Controller cannot work without.
type Dependencies struct {
	Store    sessionstore.Store // Persisted tokens and profiles per role
	Identity identity.Service   // Remote login, refresh and profile endpoints
}

// Controller owns the admin and customer sessions and the primary identity.
// State only changes through Initialize, Login, Logout, LogoutAll, RefreshUser
// and CheckSessions.
type Controller struct {
	deps       Dependencies
	codec      *token.Codec
	router     Router
	markers    PathMarkers
	nearExpiry time.Duration
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	newID      func() string
	validator  *Validator

	mu               sync.Mutex
	state            State
	phase            InitPhase
	initErr          error
	profileRefreshes int
	subscribers      map[int]chan State
	nextSubscriber   int

	background sync.WaitGroup
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithCodec sets the token codec (primarily for testing with a fixed clock)
func WithCodec(codec *token.Codec) ControllerOption {
	return func(c *Controller) {
		c.codec = codec
	}
}

// WithRouter sets the source of the current navigation path
func WithRouter(router Router) ControllerOption {
	return func(c *Controller) {
		c.router = router
	}
}

func WithPathMarkers(markers PathMarkers) ControllerOption {
	return func(c *Controller) {
		c.markers = markers
	}
}

func WithNearExpiryThreshold(threshold time.Duration) ControllerOption {
	return func(c *Controller) {
		c.nearExpiry = threshold
	}
}

func WithMetrics(recorder *metrics.Recorder) ControllerOption {
	return func(c *Controller) {
		c.metrics = recorder
	}
}

func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSessionIDFunc sets the session generation stamp source (primarily for testing)
func WithSessionIDFunc(newID func() string) ControllerOption {
	return func(c *Controller) {
		c.newID = newID
	}
}

// NewController creates a controller in the loading state. Initialize must be
// called once before the state reflects the persisted sessions.
func NewController(deps Dependencies, options ...ControllerOption) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewController] Store is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("[NewController] Identity service is required")
	}

	c := &Controller{
		deps:        deps,
		router:      StaticPath("/"),
		markers:     DefaultPathMarkers(),
		nearExpiry:  token.DefaultNearExpiryThreshold,
		logger:      log.Logger.With().Str("component", "auth_controller").Logger(),
		newID:       uuid.NewString,
		subscribers: make(map[int]chan State),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.codec == nil {
		c.codec = token.NewCodec()
	}

	c.validator = NewValidator(deps.Store, deps.Identity, c.codec,
		WithValidatorLogger(c.logger),
		WithValidatorMetrics(c.metrics),
	)
	c.state = emptyState()
	c.state.IsLoading = true
	return c, nil
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the primary identity's profile, nil when none.
func (c *Controller) User() profile.Profile {
	return c.State().Primary()
}

func (c *Controller) AdminUser() *profile.AdminProfile {
	admin, _ := c.State().Admin.Profile.(*profile.AdminProfile)
	return admin
}

func (c *Controller) CustomerUser() *profile.CustomerProfile {
	customer, _ := c.State().Customer.Profile.(*profile.CustomerProfile)
	return customer
}

func (c *Controller) IsLoading() bool {
	return c.State().IsLoading
}

func (c *Controller) IsProfileRefreshing() bool {
	return c.State().IsProfileRefreshing
}

// IsAuthenticated reports whether a primary identity exists and its token is unexpired.
func (c *Controller) IsAuthenticated() bool {
	state := c.State()
	if state.PrimaryRole == "" {
		return false
	}
	return c.sessionValid(state.Session(state.PrimaryRole))
}

func (c *Controller) IsAdminAuthenticated() bool {
	return c.sessionValid(c.State().Admin)
}

func (c *Controller) IsCustomerAuthenticated() bool {
	return c.sessionValid(c.State().Customer)
}

// InitError returns the failure that made initialization fail closed, if any.
func (c *Controller) InitError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

// InitPhase returns the progress of the one-shot initialization.
func (c *Controller) InitPhase() InitPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Wait blocks until background token refreshes have finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

// Subscribe returns a channel receiving a snapshot after every state change. The
// channel holds only the latest undelivered snapshot. The returned func
// unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubscriber
	c.nextSubscriber++
	ch := make(chan State, 1)
	ch <- c.state
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

// publishLocked must be called with c.mu held.
func (c *Controller) publishLocked() {
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}

func (c *Controller) sessionValid(sess Session) bool {
	return sess.Present() && c.codec.Valid(sess.Tokens)
}

// clearRoleLocked empties role in memory and in the store. An expectedID that no
// longer matches the role's session means the session was replaced meanwhile and
// nothing is cleared. Must be called with c.mu held.
func (c *Controller) clearRoleLocked(role profile.Role, expectedID string, reason string) bool {
	if c.state.Session(role).ID != expectedID {
		return false
	}
	c.state.clearSession(role)
	if err := c.deps.Store.Clear(role); err != nil {
		c.logger.Warn().Err(err).Str("role", role.String()).Msg("clearing stored session failed")
	}
	c.metrics.SessionCleared(role.String(), reason)
	return true
}

func (c *Controller) clearRole(role profile.Role, expectedID string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearRoleLocked(role, expectedID, reason) {
		c.logger.Info().Str("role", role.String()).Str("reason", reason).Msg("session cleared")
		c.publishLocked()
	}
}

// installProfile replaces the cached profile of sess's role if sess is still the
// role's current session. The primary identity follows automatically.
func (c *Controller) installProfile(sess Session, p profile.Profile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.Session(sess.Role)
	if current.ID != sess.ID {
		c.logger.Debug().Str("role", sess.Role.String()).Msg("discarding profile for replaced session")
		return false
	}
	if err := c.deps.Store.SetUser(p); err != nil {
		c.logger.Warn().Err(err).Str("role", sess.Role.String()).Msg("persisting profile failed")
	}
	current.Profile = p
	c.state.setSession(current)
	c.publishLocked()
	return true
}

// syncStoredTokens copies the persisted pair into sess's role if the session is unchanged.
func (c *Controller) syncStoredTokens(sess Session) {
	pair, err := c.deps.Store.Tokens(sess.Role)
	if err != nil || pair == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.state.Session(sess.Role)
	if current.ID != sess.ID {
		return
	}
	current.Tokens = pair
	c.state.setSession(current)
	c.publishLocked()
}

func (c *Controller) beginProfileRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileRefreshes++
	c.state.IsProfileRefreshing = true
	c.publishLocked()
}

func (c *Controller) endProfileRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileRefreshes--
	c.state.IsProfileRefreshing = c.profileRefreshes > 0
	c.publishLocked()
}

// fetchProfile loads the richer profile for sess's role and installs it. An
// incomplete customer profile is reported as errors.ErrIncompleteProfile and
// leaves the cached profile in place.
func (c *Controller) fetchProfile(ctx context.Context, sess Session) error {
	if sess.Role == profile.RoleAdmin {
		admin, err := c.deps.Identity.AdminProfile(ctx)
		if err != nil {
			return err
		}
		if admin == nil {
			return errors.ErrProfileFetch
		}
		c.installProfile(sess, admin)
		return nil
	}

	c.beginProfileRefresh()
	defer c.endProfileRefresh()

	customer, err := c.deps.Identity.CustomerProfile(ctx)
	if err != nil {
		return err
	}
	if !customer.Complete() {
		return errors.ErrIncompleteProfile
	}
	c.installProfile(sess, customer)
	return nil
}
