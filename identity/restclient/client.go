package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/storefront-session/identity"
	"github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/profile"
	"github.com/jrsteele09/storefront-session/sessionstore"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	tracerName       = "github.com/jrsteele09/storefront-session/identity/restclient"
	requestIDHeader  = "X-Request-ID"
	maxResponseBytes = 1 << 20
)

var _ identity.Service = (*Client)(nil)

// Client talks to the storefront identity API. Role-scoped calls authenticate with
// the role's persisted access token, and Refresh persists the renewed pair.
type Client struct {
	baseURL    string
	store      sessionstore.Store
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient sets the client used for every request (its Transport carries the bearer)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, store sessionstore.Store, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[restclient.New] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[restclient.New] store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tracer:     otel.Tracer(tracerName),
		logger:     log.Logger.With().Str("component", "identity_client").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) LoginCustomer(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	return c.login(ctx, identity.PathCustomerLogin, profile.RoleCustomer, email, password)
}

func (c *Client) LoginAdmin(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	return c.login(ctx, identity.PathAdminLogin, profile.RoleAdmin, email, password)
}

func (c *Client) login(ctx context.Context, path string, role profile.Role, email, password string) (*identity.LoginResult, error) {
	var resp identity.LoginResponse
	status, err := c.do(ctx, http.MethodPost, path, "", identity.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil && !errors.Is(err, errors.ErrUnauthorized) {
		return nil, err
	}
	// A rejected login still carries the service's message.
	if !resp.Success {
		if resp.Message == "" {
			return nil, errors.Wrapf(errors.ErrInvalidLoginResponse, "%s returned %d", path, status)
		}
		return &identity.LoginResult{Success: false, Message: resp.Message}, nil
	}

	user, err := identity.DecodeUser(role, resp.User)
	if err != nil {
		return nil, err
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" {
		return nil, errors.Wrapf(errors.ErrInvalidLoginResponse, "%s returned no tokens", path)
	}
	return &identity.LoginResult{
		Success: true,
		Message: resp.Message,
		User:    user,
		Tokens:  *resp.Tokens,
	}, nil
}

// Refresh exchanges role's persisted refresh token and persists the new pair.
func (c *Client) Refresh(ctx context.Context, role profile.Role) (*identity.RefreshResult, error) {
	refreshToken := sessionstore.RefreshToken(c.store, role)
	if refreshToken == "" {
		return nil, errors.Wrapf(errors.ErrNoRefreshToken, "[Refresh] %s", role)
	}

	var resp identity.RefreshResponse
	_, err := c.do(ctx, http.MethodPost, identity.PathRefresh, "", identity.RefreshRequest{Role: role, RefreshToken: refreshToken}, &resp)
	if err != nil && !errors.Is(err, errors.ErrUnauthorized) {
		return nil, err
	}
	if !resp.Success || resp.Tokens == nil || resp.Tokens.AccessToken == "" {
		return &identity.RefreshResult{Success: false, Message: resp.Message}, nil
	}

	pair := *resp.Tokens
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := c.store.SetTokens(role, pair); err != nil {
		return nil, errors.Wrapf(err, "[Refresh] storing %s tokens", role)
	}
	return &identity.RefreshResult{Success: true, Message: resp.Message}, nil
}

func (c *Client) AdminProfile(ctx context.Context) (*profile.AdminProfile, error) {
	var resp identity.AdminProfileResponse
	if _, err := c.do(ctx, http.MethodGet, identity.PathAdminProfile, profile.RoleAdmin, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Admin == nil {
		return nil, errors.Wrapf(errors.ErrProfileFetch, "admin: %s", resp.Message)
	}
	return resp.Admin, nil
}

func (c *Client) CustomerProfile(ctx context.Context) (*profile.CustomerProfile, error) {
	var resp identity.CustomerProfileResponse
	if _, err := c.do(ctx, http.MethodGet, identity.PathCustomerProfile, profile.RoleCustomer, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Customer == nil {
		return nil, errors.Wrapf(errors.ErrProfileFetch, "customer: %s", resp.Message)
	}
	return resp.Customer, nil
}

// Logout revokes role's session with the service. Nothing is sent when no
// access token is stored.
func (c *Client) Logout(ctx context.Context, role profile.Role) error {
	if sessionstore.AccessToken(c.store, role) == "" {
		return nil
	}
	body := identity.RefreshRequest{Role: role, RefreshToken: sessionstore.RefreshToken(c.store, role)}
	_, err := c.do(ctx, http.MethodPost, identity.PathLogout, role, body, nil)
	return err
}

// do sends one request. bearerRole selects the stored access token to attach;
// empty sends the request unauthenticated. A 401 or 403 is returned as
// errors.ErrUnauthorized after out has been decoded.
func (c *Client) do(ctx context.Context, method, path string, bearerRole profile.Role, body, out any) (int, error) {
	ctx, span := c.tracer.Start(ctx, "identity "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			attribute.String("storefront.role", bearerRole.String()),
		),
	)
	defer span.End()

	status, err := c.send(ctx, method, path, bearerRole, body, out)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return status, err
}

func (c *Client) send(ctx context.Context, method, path string, bearerRole profile.Role, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrapf(err, "encoding %s request", path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, errors.Wrapf(err, "building %s request", path)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient, err := c.clientFor(ctx, bearerRole)
	if err != nil {
		return 0, err
	}

	logger := c.logger.With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("identity request failed")
		return 0, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	logger.Debug().Int("status", resp.StatusCode).Msg("identity request completed")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, errors.Wrapf(err, "reading %s response", path)
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < http.StatusBadRequest {
			return resp.StatusCode, errors.Wrapf(errors.ErrInvalidLoginResponse, "decoding %s response: %v", path, err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, errors.Wrapf(errors.ErrUnauthorized, "%s %s returned %d", method, path, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return resp.StatusCode, fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// clientFor returns an HTTP client that attaches role's stored access token.
func (c *Client) clientFor(ctx context.Context, role profile.Role) (*http.Client, error) {
	if role == "" {
		return c.httpClient, nil
	}
	pair, err := c.store.Tokens(role)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s tokens", role)
	}
	if pair == nil || pair.AccessToken == "" {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "no %s access token", role)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := oauth2.StaticTokenSource(token.Pair{AccessToken: pair.AccessToken}.OAuth2(time.Time{}))
	client := oauth2.NewClient(ctx, source)
	client.Timeout = c.httpClient.Timeout
	return client, nil
}
