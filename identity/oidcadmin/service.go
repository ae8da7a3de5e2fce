// Package oidcadmin federates the admin role to an OpenID Connect provider while
// customer calls go to the storefront identity API.
package oidcadmin

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultRejectMessage = "Invalid email or password"

var _ identity.Service = (*Service)(nil)

type Service struct {
	customers  identity.Service
	store      sessionstore.Store
	provider   *oidc.Provider
	oauth      *oauth2.Config
	revokeURL  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config names the provider and the client registered for admin logins.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

type Option func(*Service)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New discovers the provider at cfg.IssuerURL. customers serves every customer call.
func New(ctx context.Context, cfg Config, customers identity.Service, store sessionstore.Store, options ...Option) (*Service, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("[oidcadmin.New] IssuerURL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidcadmin.New] ClientID is required")
	}
	if customers == nil {
		return nil, errors.New("[oidcadmin.New] customer identity service is required")
	}
	if store == nil {
		return nil, errors.New("[oidcadmin.New] store is required")
	}

	s := &Service{
		customers:  customers,
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.Logger.With().Str("component", "oidc_admin").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create OIDC provider")
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, errors.Wrapf(err, "reading provider metadata")
	}

	s.provider = provider
	s.revokeURL = extra.RevocationEndpoint
	s.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
	}
	return s, nil
}

func (s *Service) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// LoginAdmin runs the resource owner password grant and reads the admin profile
// from the userinfo endpoint.
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	tok, err := s.oauth.PasswordCredentialsToken(s.clientContext(ctx), email, password)
	if err != nil {
		if msg, rejected := rejection(err); rejected {
			return &identity.LoginResult{Success: false, Message: msg}, nil
		}
		return nil, errors.Wrapf(err, "[LoginAdmin] password grant")
	}

	admin, err := s.userInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoginAdmin] userinfo")
	}
	return &identity.LoginResult{
		Success: true,
		User:    admin,
		Tokens:  token.PairFromOAuth2(tok, ""),
	}, nil
}

func (s *Service) LoginCustomer(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	return s.customers.LoginCustomer(ctx, email, password)
}

// Refresh renews the admin pair at the provider's token endpoint and persists it.
func (s *Service) Refresh(ctx context.Context, role profile.Role) (*identity.RefreshResult, error) {
	if role != profile.RoleAdmin {
		return s.customers.Refresh(ctx, role)
	}

	refreshToken := sessionstore.RefreshToken(s.store, role)
	if refreshToken == "" {
		return nil, errors.Wrapf(errors.ErrNoRefreshToken, "[Refresh] admin")
	}

	tok, err := s.oauth.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		if msg, rejected := rejection(err); rejected {
			return &identity.RefreshResult{Success: false, Message: msg}, nil
		}
		return nil, errors.Wrapf(err, "[Refresh] admin")
	}
	if err := s.store.SetTokens(role, token.PairFromOAuth2(tok, refreshToken)); err != nil {
		return nil, errors.Wrapf(err, "[Refresh] storing admin tokens")
	}
	return &identity.RefreshResult{Success: true}, nil
}

func (s *Service) AdminProfile(ctx context.Context) (*profile.AdminProfile, error) {
	access := sessionstore.AccessToken(s.store, profile.RoleAdmin)
	if access == "" {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "no admin access token")
	}
	return s.userInfo(ctx, access)
}

func (s *Service) CustomerProfile(ctx context.Context) (*profile.CustomerProfile, error) {
	return s.customers.CustomerProfile(ctx)
}

// Logout revokes the admin refresh token when the provider advertises a
// revocation endpoint.
func (s *Service) Logout(ctx context.Context, role profile.Role) error {
	if role != profile.RoleAdmin {
		return s.customers.Logout(ctx, role)
	}

	refreshToken := sessionstore.RefreshToken(s.store, role)
	if s.revokeURL == "" || refreshToken == "" {
		return nil
	}

	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrapf(err, "[Logout] building revocation request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(url.QueryEscape(s.oauth.ClientID), url.QueryEscape(s.oauth.ClientSecret))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Logout] revoking admin refresh token")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrUnsupported, "[Logout] revocation returned %d", resp.StatusCode)
	}
	s.logger.Debug().Msg("admin refresh token revoked")
	return nil
}

type userInfoClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (s *Service) userInfo(ctx context.Context, accessToken string) (*profile.AdminProfile, error) {
	source := oauth2.StaticTokenSource(token.Pair{AccessToken: accessToken}.OAuth2(time.Time{}))
	info, err := s.provider.UserInfo(oidc.ClientContext(ctx, s.httpClient), source)
	if err != nil {
		// go-oidc reports non-200 responses as "<status>: <body>"
		if strings.HasPrefix(err.Error(), "401") || strings.HasPrefix(err.Error(), "403") {
			return nil, errors.Wrapf(errors.ErrUnauthorized, "userinfo: %v", err)
		}
		return nil, errors.Wrapf(errors.ErrProfileFetch, "userinfo: %v", err)
	}

	var claims userInfoClaims
	if err := info.Claims(&claims); err != nil {
		return nil, errors.Wrapf(errors.ErrProfileFetch, "userinfo claims: %v", err)
	}
	email := claims.Email
	if email == "" {
		email = info.Email
	}
	return &profile.AdminProfile{
		ID:      info.Subject,
		Name:    claims.Name,
		Email:   email,
		Picture: claims.Picture,
	}, nil
}

// rejection reports whether err is the provider refusing the grant, with the
// message to show.
func rejection(err error) (string, bool) {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		return "", false
	}
	switch retrieveErr.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
	default:
		return "", false
	}
	if retrieveErr.ErrorDescription != "" {
		return retrieveErr.ErrorDescription, true
	}
	return defaultRejectMessage, true
}
