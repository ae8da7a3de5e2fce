// Package devserver is a local storefront identity API for development and
// client tests. It serves the same routes as the production service with
// in-memory accounts and short-lived HS256 access tokens.
package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	shutdownTimeout           = 5 * time.Second
)

type Server struct {
	accounts AccountRepo
	refresh  *refreshManager
	access   *accessTokens
	revoked  RevokedTokenCache
	nowFunc  func() time.Time
	logger   zerolog.Logger
	router   chi.Router
}

type Option func(*Server)

// WithNowFunc sets the clock used for issuing and verifying tokens (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

// WithAccessTokenExpiry sets the lifetime of issued access tokens. A negative
// lifetime issues tokens that are already expired.
func WithAccessTokenExpiry(expiry time.Duration) Option {
	return func(s *Server) {
		s.access.expiry = expiry
	}
}

func WithRefreshTokenExpiry(expiry time.Duration) Option {
	return func(s *Server) {
		s.refresh.expiry = expiry
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server signing access tokens with secret.
func New(secret string, options ...Option) (*Server, error) {
	if secret == "" {
		return nil, errors.New("[devserver.New] secret is required")
	}

	s := &Server{
		accounts: newMemAccountRepo(),
		revoked:  NewInMemoryRevokedTokenCache(),
		nowFunc:  time.Now,
		logger:   log.Logger.With().Str("component", "devserver").Logger(),
	}
	s.refresh = &refreshManager{repo: newMemRefreshRepo(), expiry: defaultRefreshTokenExpiry}
	s.access = &accessTokens{secret: []byte(secret), expiry: defaultAccessTokenExpiry}

	for _, opt := range options {
		opt(s)
	}
	s.refresh.nowFunc = s.now
	s.access.nowFunc = s.now
	s.router = s.routes()
	return s, nil
}

func (s *Server) now() time.Time {
	return s.nowFunc()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post(identity.PathCustomerLogin, s.loginHandler(profile.RoleCustomer))
	r.Post(identity.PathAdminLogin, s.loginHandler(profile.RoleAdmin))
	r.Post(identity.PathRefresh, s.refreshHandler)
	r.Post(identity.PathLogout, s.logoutHandler)

	r.With(s.requireRole(profile.RoleAdmin)).Get(identity.PathAdminProfile, s.adminProfileHandler)
	r.With(s.requireRole(profile.RoleCustomer)).Get(identity.PathCustomerProfile, s.customerProfileHandler)
	return r
}

// Handler returns the HTTP handler serving the identity API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddAccount registers a login for p's role. The password must pass
// ValidatePasswordStrength.
func (s *Server) AddAccount(p profile.Profile, password string) (*Account, error) {
	if profile.IsNil(p) {
		return nil, errors.New("[AddAccount] profile is required")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, errors.Wrap(err, "[AddAccount] weak password")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[AddAccount] hashing password")
	}

	account := &Account{Role: p.Role(), Email: p.EmailAddress(), PasswordHash: hash}
	switch v := p.(type) {
	case *profile.AdminProfile:
		copied := *v
		account.Admin = &copied
		account.ID = v.ID
	case *profile.CustomerProfile:
		copied := *v
		account.Customer = &copied
		account.ID = v.ID
	}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, errors.Wrap(err, "[AddAccount] storing account")
	}
	if account.Admin != nil {
		account.Admin.ID = account.ID
	} else {
		account.Customer.ID = account.ID
	}
	return account, nil
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("identity dev server listening")
		errCh <- srv.ListenAndServe()
	}()

	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cleanup.C:
			s.revoked.Cleanup(s.now())
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
